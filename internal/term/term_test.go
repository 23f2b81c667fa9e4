// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package term

import (
	"bytes"
	"strings"
	"testing"
)

func newTestTerminal() (*Terminal, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	t := NewTerminal(WithWriter(&out), WithErrWriter(&errOut), WithMarkdown(false))
	return t, &out, &errOut
}

func TestFragmentsArriveInOrder(t *testing.T) {
	sink, out, _ := newTestTerminal()

	sink.Fragment("Par")
	sink.Fragment("is")
	sink.Complete("Paris")

	if out.String() != "Paris\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCompleteAfterStreamOnlyTerminatesLine(t *testing.T) {
	sink, out, _ := newTestTerminal()

	sink.Fragment("hello")
	sink.Complete("hello")

	// The full text must not be printed a second time.
	if strings.Count(out.String(), "hello") != 1 {
		t.Errorf("reply printed twice: %q", out.String())
	}
}

func TestCompleteBlockingMode(t *testing.T) {
	sink, out, _ := newTestTerminal()

	sink.Complete("full reply")
	if out.String() != "full reply\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestStatusGoesToErrStream(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	sink, out, errOut := newTestTerminal()

	sink.Status("interrupted")
	if out.Len() != 0 {
		t.Error("status leaked into reply output")
	}
	if !strings.Contains(errOut.String(), "interrupted") {
		t.Errorf("errOut = %q", errOut.String())
	}
}

func TestStreamedResetBetweenReplies(t *testing.T) {
	sink, out, _ := newTestTerminal()

	sink.Fragment("one")
	sink.Complete("one")
	sink.Complete("two")

	if !strings.Contains(out.String(), "two") {
		t.Error("second blocking reply should be printed in full")
	}
}

func TestWidthBounds(t *testing.T) {
	// Non-TTY test environment falls back to the default.
	if w := Width(); w < MinWidth {
		t.Errorf("Width = %d, below minimum", w)
	}
}
