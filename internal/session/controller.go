// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/morganforge/tllm/internal/model"
	"github.com/morganforge/tllm/internal/provider"
	"github.com/morganforge/tllm/internal/store"
	"github.com/morganforge/tllm/internal/term"
)

// =============================================================================
// STATES
// =============================================================================

// State is the controller's position in the conversation loop.
type State int

const (
	// StateIdle accepts new input, loads, and listings.
	StateIdle State = iota

	// StateAwaitingReply has sent a request and waits for the full reply.
	StateAwaitingReply

	// StateStreaming is receiving reply fragments.
	StateStreaming

	// StateEditing has handed the terminal to the external editor.
	StateEditing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateStreaming:
		return "streaming"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned for operations attempted outside the idle state.
	ErrBusy = errors.New("session is busy")

	// ErrEmptyInput marks the continuation-loop sentinel: an empty message
	// means "stop", never "send".
	ErrEmptyInput = errors.New("empty input")

	// ErrNoConversation is returned when no conversation is active.
	ErrNoConversation = errors.New("no active conversation")
)

// =============================================================================
// CONTROLLER
// =============================================================================

// maxInputFileSize bounds how large a file-path message may be.
const maxInputFileSize = 1 << 20

// Controller owns the active conversation and mediates between user input,
// the provider client, and the store.
type Controller struct {
	store  *store.Store
	client provider.Client
	sink   term.Sink

	stream       bool
	systemPrompt string

	state  State
	convID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithStreaming toggles streaming replies.
func WithStreaming(enabled bool) Option {
	return func(c *Controller) { c.stream = enabled }
}

// WithSystemPrompt seeds new conversations with a system message.
func WithSystemPrompt(prompt string) Option {
	return func(c *Controller) { c.systemPrompt = prompt }
}

// NewController creates an idle controller with no active conversation.
func NewController(s *store.Store, client provider.Client, sink term.Sink, opts ...Option) *Controller {
	c := &Controller{
		store:  s,
		client: client,
		sink:   sink,
		stream: true,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// ConversationID returns the active conversation id, or "" when none.
func (c *Controller) ConversationID() string {
	return c.convID
}

// Conversation returns the active conversation with its full history.
func (c *Controller) Conversation() (*model.Conversation, error) {
	if c.convID == "" {
		return nil, ErrNoConversation
	}
	return c.store.Get(c.convID)
}

// =============================================================================
// LOADING
// =============================================================================

// Load activates a stored conversation. Permitted only while idle.
func (c *Controller) Load(id string) error {
	if c.state != StateIdle {
		return ErrBusy
	}
	if _, err := c.store.Get(id); err != nil {
		return err
	}
	c.convID = id
	return nil
}

// LoadLast activates the most recently updated conversation. Repeated calls
// without intervening activity resolve to the same conversation.
func (c *Controller) LoadLast() error {
	if c.state != StateIdle {
		return ErrBusy
	}
	id, err := c.store.MostRecent()
	if err != nil {
		return err
	}
	c.convID = id
	return nil
}

// StartNew detaches from the active conversation so the next Send creates a
// fresh one.
func (c *Controller) StartNew() error {
	if c.state != StateIdle {
		return ErrBusy
	}
	c.convID = ""
	return nil
}

// =============================================================================
// EDITING
// =============================================================================

// BeginEditing marks the session while the external editor holds the
// terminal. Only one editor session at a time.
func (c *Controller) BeginEditing() error {
	if c.state != StateIdle {
		return ErrBusy
	}
	c.state = StateEditing
	return nil
}

// EndEditing returns to idle after the editor exits.
func (c *Controller) EndEditing() {
	if c.state == StateEditing {
		c.state = StateIdle
	}
}

// =============================================================================
// SENDING
// =============================================================================

// ResolveInput expands a message that names a readable file into that file's
// contents. Anything else passes through untouched. Resolution happens once,
// before the message enters the conversation.
func ResolveInput(input string) string {
	candidate := strings.TrimSpace(input)
	if candidate == "" || strings.ContainsAny(candidate, "\n") {
		return input
	}

	info, err := os.Stat(candidate)
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxInputFileSize {
		return input
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		return input
	}
	return string(data)
}

// Send appends the user's message to the active conversation (creating one
// if needed) and obtains the assistant's reply. The returned message is the
// persisted assistant turn; on a mid-stream transport failure it carries the
// partial text, flagged truncated, alongside the error.
func (c *Controller) Send(ctx context.Context, input string) (*model.Message, error) {
	if c.state != StateIdle {
		return nil, ErrBusy
	}

	input = strings.TrimSpace(ResolveInput(input))
	if input == "" {
		return nil, ErrEmptyInput
	}

	if c.convID == "" {
		id, err := c.store.Create(c.systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		c.convID = id
	}

	if err := c.store.Append(c.convID, model.NewUserMessage(input)); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	conv, err := c.store.Get(c.convID)
	if err != nil {
		return nil, err
	}

	c.state = StateAwaitingReply
	defer func() { c.state = StateIdle }()

	if c.stream {
		return c.respondStreaming(ctx, conv.Messages)
	}
	return c.respondBlocking(ctx, conv.Messages)
}

// respondBlocking waits for the complete reply, then persists and displays
// it. The user's message stays persisted even when the provider fails.
func (c *Controller) respondBlocking(ctx context.Context, history []*model.Message) (*model.Message, error) {
	reply, err := c.client.Send(ctx, history)
	if err != nil {
		return nil, err
	}

	msg := model.NewAssistantMessage(reply.Text, c.client.Name().String())
	if err := c.store.Append(c.convID, msg); err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}
	c.sink.Complete(reply.Text)
	return msg, nil
}

// respondStreaming relays fragments to the sink as they arrive. Three
// outcomes: a clean stream persists the full reply; a user interrupt
// discards the partial without appending; a transport failure persists
// whatever arrived, flagged truncated.
func (c *Controller) respondStreaming(ctx context.Context, history []*model.Message) (*model.Message, error) {
	c.state = StateStreaming

	reply, err := c.client.SendStreaming(ctx, history, c.sink.Fragment)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.sink.Status("interrupted; partial reply discarded")
			return nil, err
		}

		var streamErr *provider.StreamError
		if errors.As(err, &streamErr) {
			// A stream that dies before any fragment has nothing to
			// persist, but the failure is still reported.
			if streamErr.Partial == "" {
				c.sink.Status("connection lost before any reply arrived")
				return nil, err
			}
			msg := model.NewAssistantMessage(streamErr.Partial, c.client.Name().String())
			msg.Truncated = true
			if appendErr := c.store.Append(c.convID, msg); appendErr != nil {
				return nil, fmt.Errorf("persist truncated reply: %w", appendErr)
			}
			c.sink.Status("connection lost; partial reply saved as truncated")
			return msg, err
		}
		return nil, err
	}

	msg := model.NewAssistantMessage(reply.Text, c.client.Name().String())
	if err := c.store.Append(c.convID, msg); err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}
	c.sink.Complete(reply.Text)
	return msg, nil
}
