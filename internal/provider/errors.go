// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// Error variables for the provider failure modes.
var (
	// ErrMissingCredential indicates the provider's environment variable is not set.
	ErrMissingCredential = errors.New("missing credential")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrRejected indicates the provider refused the request (4xx-equivalent).
	ErrRejected = errors.New("provider rejected request")

	// ErrEmptyHistory indicates the history contains no non-system message.
	ErrEmptyHistory = errors.New("history has no user turns")
)

// MissingCredentialError reports an unset credential environment variable.
// Fatal for the requested provider; never retried.
type MissingCredentialError struct {
	Provider Name
	EnvVar   string
}

// Error implements the error interface.
func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s: credential not set (export %s)", e.Provider, e.EnvVar)
}

// Is allows comparison with ErrMissingCredential via errors.Is.
func (e *MissingCredentialError) Is(target error) bool {
	return target == ErrMissingCredential
}

// RejectedError represents a 4xx response from a provider. Reported verbatim
// and never retried.
type RejectedError struct {
	Provider Name
	Status   int
	Message  string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s rejected request (HTTP %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s rejected request (HTTP %d)", e.Provider, e.Status)
}

// Is allows comparison with ErrRejected via errors.Is.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// TransportError represents a network-level failure (connect, timeout, read).
// Retried with backoff only while the request is still idempotent, before any
// streamed output has reached the caller.
type TransportError struct {
	Provider Name
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimitError represents a rate limit response with retry information.
type RateLimitError struct {
	Provider   Name
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Provider)
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StreamError represents a failure during streaming, preserving any partial
// content received before the error. Partial output already shown to the user
// is never retracted, only annotated as incomplete.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
