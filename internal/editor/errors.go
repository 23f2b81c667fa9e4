// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrAmbiguousSelection is returned when a listing buffer selects more than
// one conversation. Use errors.Is to check for this error.
var ErrAmbiguousSelection = errors.New("ambiguous selection")

// ErrEditorLaunch is returned when the external editor cannot be started or
// exits abnormally. Use errors.Is to check for this error.
var ErrEditorLaunch = errors.New("editor launch failed")

// AmbiguousSelectionError reports every conversation id the buffer selected.
// The caller surfaces the full set so the user can re-edit rather than have
// one selection silently win.
type AmbiguousSelectionError struct {
	IDs []string
}

// Error implements the error interface.
func (e *AmbiguousSelectionError) Error() string {
	return fmt.Sprintf("ambiguous selection: %d conversations marked load (%s)",
		len(e.IDs), strings.Join(e.IDs, ", "))
}

// Is implements errors.Is support.
func (e *AmbiguousSelectionError) Is(target error) bool {
	return target == ErrAmbiguousSelection
}

// LaunchError wraps a failure to run the external editor.
type LaunchError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("editor %q: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *LaunchError) Is(target error) bool {
	return target == ErrEditorLaunch
}
