// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package term

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SINK
// =============================================================================

// Sink receives reply output as it is produced. Fragment is called for each
// streamed piece in arrival order; Complete is called once with the full
// reply text; Status carries out-of-band notices.
type Sink interface {
	Fragment(text string)
	Complete(text string)
	Status(msg string)
}

// =============================================================================
// TERMINAL SINK
// =============================================================================

// Terminal writes replies to a terminal. On an interactive stdout the
// complete reply is re-rendered as markdown; fragments are always written
// raw so streaming stays visibly incremental.
type Terminal struct {
	out      io.Writer
	errOut   io.Writer
	markdown bool
	width    int

	statusStyle lipgloss.Style
	streamed    bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithWriter redirects reply output.
func WithWriter(w io.Writer) TerminalOption {
	return func(t *Terminal) { t.out = w }
}

// WithErrWriter redirects status output.
func WithErrWriter(w io.Writer) TerminalOption {
	return func(t *Terminal) { t.errOut = w }
}

// WithMarkdown forces markdown rendering on or off.
func WithMarkdown(enabled bool) TerminalOption {
	return func(t *Terminal) { t.markdown = enabled }
}

// NewTerminal creates a sink bound to stdout/stderr, with markdown
// rendering enabled only when stdout is an interactive terminal.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:         os.Stdout,
		errOut:      os.Stderr,
		markdown:    IsStdoutTTY() && ColorsEnabled(),
		width:       Width(),
		statusStyle: lipgloss.NewStyle().Faint(true),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fragment writes one streamed piece as-is.
func (t *Terminal) Fragment(text string) {
	t.streamed = true
	fmt.Fprint(t.out, text)
}

// Complete finishes a reply. After streaming only the trailing newline is
// needed; in blocking mode the whole reply is printed, rendered as markdown
// when the terminal supports it.
func (t *Terminal) Complete(text string) {
	if t.streamed {
		t.streamed = false
		fmt.Fprintln(t.out)
		return
	}
	fmt.Fprintln(t.out, t.render(text))
}

// Status writes an out-of-band notice to the error stream.
func (t *Terminal) Status(msg string) {
	if ColorsEnabled() {
		msg = t.statusStyle.Render(msg)
	}
	fmt.Fprintln(t.errOut, msg)
}

// render converts markdown to styled terminal output when enabled, falling
// back to the raw text on any rendering failure.
func (t *Terminal) render(text string) string {
	if !t.markdown {
		return text
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(t.width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
