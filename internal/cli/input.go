// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// respondLoop reads messages line by line. An empty line, Ctrl-C at the
// prompt, or EOF ends the loop; per-turn provider failures are reported and
// the prompt returns.
func (a *app) respondLoop() error {
	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)

	for {
		text, err := rl.Prompt("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		rl.AppendHistory(text)

		if err := a.send(text); err != nil && isFatal(err) {
			return err
		}
	}
}
