// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/morganforge/tllm/internal/config"
	"github.com/morganforge/tllm/internal/editor"
	"github.com/morganforge/tllm/internal/export"
	"github.com/morganforge/tllm/internal/logging"
	"github.com/morganforge/tllm/internal/model"
	"github.com/morganforge/tllm/internal/provider"
	"github.com/morganforge/tllm/internal/session"
	"github.com/morganforge/tllm/internal/store"
	"github.com/morganforge/tllm/internal/term"
)

// =============================================================================
// APP
// =============================================================================

// app carries the wired components through one invocation.
type app struct {
	cfg          *config.Config
	store        *store.Store
	ctrl         *session.Controller
	sink         *term.Terminal
	editorCmd    string
	systemPrompt string
}

// Run executes one tllm invocation and returns the process exit code.
func Run(args []string) int {
	opts := parseOptions(NewArgParser(args))
	if opts.Help {
		fmt.Println(usage)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tllm:", err)
		return 1
	}
	applyOptions(cfg, opts)

	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintln(os.Stderr, "tllm:", err)
		return 1
	}
	if logDir, dirErr := config.LogDir(); dirErr == nil {
		if closer, logErr := logging.Setup(logDir); logErr == nil {
			defer closer.Close()
		}
	}

	sink := term.NewTerminal()

	dbPath, err := cfg.DatabaseFile()
	if err != nil {
		sink.Status(err.Error())
		return 1
	}

	// Export is pure store work; no provider credential needed.
	if opts.ExportDir != "" {
		return runExport(dbPath, opts, sink)
	}

	// The provider credential is resolved before any conversation state is
	// touched, so a missing key fails fast with nothing persisted.
	name, err := provider.ParseName(cfg.Provider)
	if err != nil {
		sink.Status(err.Error())
		return 1
	}
	client, err := provider.New(provider.Config{Name: name, Model: cfg.Model})
	if err != nil {
		sink.Status(err.Error())
		return 1
	}

	st, err := store.Open(dbPath)
	if err != nil {
		sink.Status(err.Error())
		return 1
	}
	defer st.Close()

	systemPrompt, err := cfg.SystemPrompt()
	if err != nil {
		sink.Status(err.Error())
		return 1
	}

	a := &app{
		cfg:   cfg,
		store: st,
		ctrl: session.NewController(st, client, sink,
			session.WithStreaming(cfg.Stream),
			session.WithSystemPrompt(systemPrompt)),
		sink:         sink,
		editorCmd:    cfg.Editor,
		systemPrompt: systemPrompt,
	}

	if err := a.dispatch(opts); err != nil {
		return 1
	}
	return 0
}

// applyOptions overlays flag values onto the loaded config; flags win.
func applyOptions(cfg *config.Config, opts Options) {
	if opts.Provider != "" {
		cfg.Provider = opts.Provider
	}
	if opts.DBPath != "" {
		cfg.DatabasePath = opts.DBPath
	}
	if opts.SystemPromptFile != "" {
		cfg.SystemPromptPath = opts.SystemPromptFile
	}
	if opts.StreamSet {
		cfg.Stream = opts.Stream
	}
}

// runExport renders every stored conversation and reports the count.
func runExport(dbPath string, opts Options, sink *term.Terminal) int {
	st, err := store.Open(dbPath)
	if err != nil {
		sink.Status(err.Error())
		return 1
	}
	defer st.Close()

	count, err := export.WriteAll(st, opts.ExportDir, export.ForFormat(opts.ExportFormat))
	if err != nil {
		sink.Status(err.Error())
		return 1
	}
	fmt.Printf("exported %d conversations to %s\n", count, opts.ExportDir)
	return 0
}

// =============================================================================
// DISPATCH
// =============================================================================

// dispatch routes the invocation to its flow.
func (a *app) dispatch(opts Options) error {
	// One-shot mode: send, print, done.
	if opts.Adhoc != "" {
		if opts.Continue {
			if err := a.loadLast(); err != nil {
				return err
			}
		}
		return a.send(opts.Adhoc)
	}

	if opts.Continue {
		if err := a.loadLast(); err != nil {
			return err
		}
	}

	if opts.List {
		selected, err := a.listFlow()
		if err != nil {
			return err
		}
		if !selected {
			return nil
		}
	}

	// Bare -n titles the latest conversation without a new exchange.
	if opts.Name && opts.Message == "" && !opts.Editor && !opts.Respond && !opts.List && !opts.Continue {
		if err := a.loadLast(); err != nil {
			return err
		}
		return a.nameConversation()
	}

	if opts.Message != "" {
		if err := a.send(opts.Message); err != nil && isFatal(err) {
			return err
		}
	}

	if err := a.converse(opts); err != nil {
		return err
	}

	if opts.Name {
		return a.nameConversation()
	}
	return nil
}

// converse runs the continuation loop appropriate for the invocation.
func (a *app) converse(opts Options) error {
	switch {
	case opts.Respond:
		return a.respondLoop()
	case opts.Editor:
		if a.editorCmd == "" {
			a.sink.Status("no editor configured; set $EDITOR or editor in config.toml")
			return a.respondLoop()
		}
		return a.editorLoop()
	case opts.Message != "" || opts.List || opts.Continue:
		// An explicit opening flow continues interactively on a terminal.
		if !term.IsTTY() {
			return nil
		}
		return a.continueInteractive()
	default:
		if !term.IsTTY() {
			return a.sendStdin()
		}
		return a.continueInteractive()
	}
}

// continueInteractive picks the editor when one is configured, otherwise
// line input.
func (a *app) continueInteractive() error {
	if a.editorCmd != "" {
		return a.editorLoop()
	}
	return a.respondLoop()
}

// sendStdin treats piped standard input as a single message.
func (a *app) sendStdin() error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	return a.send(text)
}

// =============================================================================
// FLOWS
// =============================================================================

// loadLast resumes the most recent conversation; an empty store just starts
// a fresh one.
func (a *app) loadLast() error {
	err := a.ctrl.LoadLast()
	if errors.Is(err, store.ErrConversationNotFound) {
		a.sink.Status("no previous conversation; starting a new one")
		return nil
	}
	return err
}

// send runs one exchange with its own interrupt scope so Ctrl-C abandons
// the in-flight reply without killing the loop.
func (a *app) send(text string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err := a.ctrl.Send(ctx, text)
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}

	// Stream failures, truncated or not, are already reported by the
	// controller.
	var streamErr *provider.StreamError
	if !errors.As(err, &streamErr) {
		a.sink.Status(err.Error())
	}
	return err
}

// isFatal separates errors worth aborting the invocation for from per-turn
// failures the loop can survive.
func isFatal(err error) bool {
	return errors.Is(err, provider.ErrMissingCredential) ||
		errors.Is(err, store.ErrConversationNotFound) ||
		errors.Is(err, session.ErrBusy)
}

// editorLoop composes turns in the external editor until a save with no new
// message ends the conversation.
func (a *app) editorLoop() error {
	for {
		var buffer string
		if conv, err := a.ctrl.Conversation(); err == nil {
			buffer = editor.FormatConversation(conv)
		} else {
			buffer = editor.FormatConversation(model.NewConversationWithSystemPrompt(a.systemPrompt))
		}

		if err := a.ctrl.BeginEditing(); err != nil {
			return err
		}
		edited, err := editor.Launch(a.editorCmd, buffer)
		a.ctrl.EndEditing()
		if err != nil {
			a.sink.Status(err.Error())
			return err
		}

		msg, ok := editor.ParseConversation(edited)
		if !ok {
			return nil
		}
		if err := a.send(msg); err != nil && isFatal(err) {
			return err
		}
	}
}

// listFlow presents the recency listing for selection. Returns true when a
// conversation was loaded.
func (a *app) listFlow() (bool, error) {
	entries, err := a.store.ListRecent()
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		a.sink.Status("no conversations yet")
		return false, nil
	}

	metas := make([]model.ConversationMeta, len(entries))
	for i, e := range entries {
		metas[i] = model.ConversationMeta{
			ID:           e.ID,
			Title:        e.Title,
			MessageCount: e.MessageCount,
			UpdatedAt:    e.UpdatedAt,
		}
	}

	// Without an editor on a terminal, print the listing instead.
	if a.editorCmd == "" || !term.IsTTY() {
		for _, m := range metas {
			title := m.Title
			if title == "" {
				title = "untitled"
			}
			fmt.Printf("%s  %s  %s (%d messages)\n",
				m.ID, m.UpdatedAt.Format("2006-01-02 15:04"), title, m.MessageCount)
		}
		return false, nil
	}

	if err := a.ctrl.BeginEditing(); err != nil {
		return false, err
	}
	edited, err := editor.Launch(a.editorCmd, editor.FormatListing(metas))
	a.ctrl.EndEditing()
	if err != nil {
		a.sink.Status(err.Error())
		return false, err
	}

	id, ok, err := editor.ParseListing(edited)
	if err != nil {
		// Ambiguous selections are rejected, never guessed.
		a.sink.Status(err.Error())
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := a.ctrl.Load(id); err != nil {
		a.sink.Status(err.Error())
		return false, err
	}
	return true, nil
}

// nameConversation asks the provider to title the active conversation.
func (a *app) nameConversation() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	title, err := a.ctrl.GenerateTitle(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoConversation) {
			a.sink.Status("nothing to name")
			return nil
		}
		a.sink.Status(err.Error())
		return err
	}
	fmt.Println(title)
	return nil
}
