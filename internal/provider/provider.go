// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/morganforge/tllm/internal/model"
)

// =============================================================================
// PROVIDER NAMES
// =============================================================================

// Name identifies a backend provider. The set is closed and fixed at build
// time; adding a provider means adding a client implementation here.
type Name string

const (
	Anthropic Name = "anthropic"
	OpenAI    Name = "openai"
	Gemini    Name = "gemini"
	Groq      Name = "groq"
)

// All lists the supported provider names.
var All = []Name{Anthropic, OpenAI, Gemini, Groq}

// ParseName resolves a provider name from user input.
func ParseName(s string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, n := range All {
		if name == n {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (supported: anthropic, openai, gemini, groq)", s)
}

// String returns the string representation of the name.
func (n Name) String() string {
	return string(n)
}

// EnvVar returns the environment variable holding the provider's credential.
func (n Name) EnvVar() string {
	switch n {
	case Anthropic:
		return "ANTHROPIC_API_KEY"
	case OpenAI:
		return "OPENAI_API_KEY"
	case Gemini:
		return "GEMINI_API_KEY"
	case Groq:
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the model used when none is configured.
func (n Name) DefaultModel() string {
	switch n {
	case Anthropic:
		return "claude-3-5-sonnet-latest"
	case OpenAI:
		return "gpt-4o-mini"
	case Gemini:
		return "gemini-1.5-flash-latest"
	case Groq:
		return "llama-3.2-90b-text-preview"
	default:
		return ""
	}
}

// defaultBaseURL returns the provider's API base URL.
func (n Name) defaultBaseURL() string {
	switch n {
	case Anthropic:
		return "https://api.anthropic.com/v1"
	case OpenAI:
		return "https://api.openai.com/v1"
	case Gemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	case Groq:
		return "https://api.groq.com/openai/v1"
	default:
		return ""
	}
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Configuration constants shared by all provider clients.
const (
	// DefaultTimeout is the default timeout for non-streaming API requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024
)

// Config selects and tunes a provider client.
type Config struct {
	// Name selects the backend. Required.
	Name Name

	// Model overrides the provider's default model identifier.
	Model string

	// BaseURL overrides the provider's API endpoint. Used in tests.
	BaseURL string

	// APIKey overrides environment-variable credential resolution.
	APIKey string

	// MaxRetries bounds retry attempts for transient errors.
	// Zero means DefaultMaxRetries.
	MaxRetries int
}

// =============================================================================
// CLIENT CONTRACT
// =============================================================================

// Reply is the completed result of one provider request.
type Reply struct {
	// Text is the full assistant response.
	Text string

	// StopReason is the provider's termination reason, normalized to the
	// provider's own vocabulary ("stop", "end_turn", ...).
	StopReason string

	// Model is the model that produced the reply.
	Model string

	// Provider is the backend that produced the reply.
	Provider Name
}

// FragmentFunc receives streamed text fragments in network arrival order.
type FragmentFunc func(text string)

// Client is the uniform contract each backend satisfies.
//
// Send performs a blocking request and returns the complete reply.
// SendStreaming delivers text fragments through onFragment as they arrive
// and returns the final Reply once the stream completes; the concatenation
// of all fragments equals Reply.Text for an uninterrupted stream. A
// transport failure mid-stream returns a StreamError carrying the partial
// text already delivered.
type Client interface {
	Name() Name
	Send(ctx context.Context, history []*model.Message) (*Reply, error)
	SendStreaming(ctx context.Context, history []*model.Message, onFragment FragmentFunc) (*Reply, error)
}

// New creates a client for the configured provider. The credential is
// resolved from the provider's environment variable unless cfg.APIKey is
// set; an absent credential fails with MissingCredentialError before any
// network call.
func New(cfg Config) (Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(cfg.Name.EnvVar()))
	}
	if apiKey == "" {
		return nil, &MissingCredentialError{Provider: cfg.Name, EnvVar: cfg.Name.EnvVar()}
	}

	core := newCore(cfg, apiKey)

	switch cfg.Name {
	case Anthropic:
		return &anthropicClient{core: core}, nil
	case OpenAI, Groq:
		return &openAIClient{core: core}, nil
	case Gemini:
		return &geminiClient{core: core}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// validateHistory checks the shared contract precondition: at least one
// non-system message must be present.
func validateHistory(history []*model.Message) error {
	for _, msg := range history {
		if msg.Role != model.RoleSystem {
			return nil
		}
	}
	return ErrEmptyHistory
}

// splitHistory separates the leading system prompt from the turn sequence.
func splitHistory(history []*model.Message) (system string, turns []*model.Message) {
	if len(history) > 0 && history[0].Role == model.RoleSystem {
		return history[0].Content, history[1:]
	}
	return "", history
}
