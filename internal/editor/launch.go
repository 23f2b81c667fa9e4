// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// =============================================================================
// EXTERNAL EDITOR
// =============================================================================

// Launch writes initial to a temporary buffer file, runs the editor command
// against it on the caller's terminal, and returns the edited contents. The
// buffer file is removed on every exit path, including the child failing to
// start.
func Launch(command string, initial string) (string, error) {
	if command == "" {
		return "", &LaunchError{Command: command, Err: fmt.Errorf("no editor configured")}
	}

	f, err := os.CreateTemp("", "tllm-*.md")
	if err != nil {
		return "", fmt.Errorf("create buffer file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("write buffer file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close buffer file: %w", err)
	}

	// The command may carry flags, e.g. "code --wait".
	parts := strings.Fields(command)
	args := append(parts[1:], path)

	cmd := exec.Command(parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", &LaunchError{Command: command, Err: err}
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read buffer file: %w", err)
	}
	return string(edited), nil
}
