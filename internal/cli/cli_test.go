// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParserFlags(t *testing.T) {
	p := NewArgParser([]string{"-a", "openai", "--stream", "-m", "hello world"})

	assert.Equal(t, "openai", p.Flag("a", "provider"))
	assert.True(t, p.BoolFlag("stream"))
	assert.Equal(t, "hello world", p.Flag("m", "message"))
}

func TestArgParserEqualsForm(t *testing.T) {
	p := NewArgParser([]string{"--provider=groq", "--stream=false", "--db=/tmp/x.db"})

	assert.Equal(t, "groq", p.Flag("provider"))
	assert.False(t, p.BoolFlag("stream"))
	assert.True(t, p.HasFlag("stream"))
	assert.Equal(t, "/tmp/x.db", p.Flag("db"))
}

func TestArgParserPositional(t *testing.T) {
	p := NewArgParser([]string{"what is the capital of france?"})

	assert.Equal(t, 1, p.PositionalCount())
	assert.Equal(t, "what is the capital of france?", p.Positional(0))
	assert.Equal(t, "", p.Positional(1))
}

// =============================================================================
// OPTIONS TESTS
// =============================================================================

func TestParseOptions(t *testing.T) {
	opts := parseOptions(NewArgParser([]string{
		"-a", "gemini", "-c", "--stream", "-m", "hello",
		"--export", "/tmp/out", "--format", "json",
	}))

	assert.Equal(t, "gemini", opts.Provider)
	assert.True(t, opts.Continue)
	assert.True(t, opts.StreamSet)
	assert.True(t, opts.Stream)
	assert.Equal(t, "hello", opts.Message)
	assert.Equal(t, "/tmp/out", opts.ExportDir)
	assert.Equal(t, "json", opts.ExportFormat)
}

func TestParseOptionsStreamUnsetByDefault(t *testing.T) {
	opts := parseOptions(NewArgParser([]string{"-m", "hello"}))

	assert.False(t, opts.StreamSet)
}

func TestParseOptionsPositionalMessage(t *testing.T) {
	opts := parseOptions(NewArgParser([]string{"capital of france?"}))

	assert.Equal(t, "capital of france?", opts.Message)
}

func TestParseOptionsFlagWinsOverPositional(t *testing.T) {
	opts := parseOptions(NewArgParser([]string{"-m", "from flag", "stray"}))

	assert.Equal(t, "from flag", opts.Message)
}

func TestParseOptionsAdhocAndName(t *testing.T) {
	opts := parseOptions(NewArgParser([]string{"-i", "one shot", "-n"}))

	assert.Equal(t, "one shot", opts.Adhoc)
	assert.True(t, opts.Name)
}
