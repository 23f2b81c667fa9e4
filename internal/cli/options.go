// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

// =============================================================================
// OPTIONS
// =============================================================================

// Options is the resolved invocation: flags win over config-file values.
type Options struct {
	// Message is sent as the opening turn before the continuation loop.
	Message string

	// Provider overrides the configured provider.
	Provider string

	// SystemPromptFile overrides the system prompt location for this run.
	SystemPromptFile string

	// List opens the conversation listing for selection.
	List bool

	// Continue resumes the most recently updated conversation.
	Continue bool

	// Editor composes messages in the external editor.
	Editor bool

	// Respond reads messages line by line from the terminal.
	Respond bool

	// Stream overrides the configured streaming setting when StreamSet.
	Stream    bool
	StreamSet bool

	// Name asks the provider to title the conversation.
	Name bool

	// Adhoc sends one message and exits.
	Adhoc string

	// ExportDir renders every stored conversation into this directory.
	ExportDir string

	// ExportFormat selects the export format ("markdown" or "json").
	ExportFormat string

	// DBPath overrides the database location.
	DBPath string

	// Help prints usage.
	Help bool
}

// parseOptions maps parsed flags onto the Options record.
func parseOptions(p *ArgParser) Options {
	opts := Options{
		Message:          p.Flag("m", "message"),
		Provider:         p.Flag("a", "provider"),
		SystemPromptFile: p.Flag("s", "system-prompt"),
		List:             p.BoolFlag("l", "list"),
		Continue:         p.BoolFlag("c", "continue"),
		Editor:           p.BoolFlag("e", "editor"),
		Respond:          p.BoolFlag("r", "respond"),
		Name:             p.BoolFlag("n", "name"),
		Adhoc:            p.Flag("i", "adhoc"),
		ExportDir:        p.Flag("export"),
		ExportFormat:     p.Flag("format"),
		DBPath:           p.Flag("db"),
		Help:             p.BoolFlag("h", "help"),
	}

	if p.HasFlag("stream") {
		opts.StreamSet = true
		opts.Stream = p.BoolFlag("stream")
	}

	// A bare positional argument is the message.
	if opts.Message == "" && p.PositionalCount() > 0 {
		opts.Message = p.Positional(0)
	}

	return opts
}

const usage = `tllm - converse with language models from the terminal

Usage:
  tllm [flags] [message]

Flags:
  -m, --message TEXT     send TEXT as the next message, then keep responding
  -a, --provider NAME    provider: anthropic, openai, gemini, groq
  -s, --system-prompt F  read the system prompt for new conversations from F
  -l, --list             pick a conversation from the recency listing
  -c, --continue         resume the most recent conversation
  -e, --editor           compose messages in $EDITOR
  -r, --respond          read messages line by line from the terminal
      --stream[=BOOL]    stream reply fragments as they arrive
  -n, --name             ask the provider to title the conversation
  -i, --adhoc TEXT       send one message, print the reply, exit
      --export DIR       write every conversation to DIR
      --format FMT       export format: markdown (default) or json
      --db PATH          use the conversation database at PATH
  -h, --help             show this help

A message that names a readable file sends the file's contents. An empty
message ends the continuation loop.`
