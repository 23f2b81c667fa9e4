// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Setup redirects the default logger to a timestamped file under dir and
// returns a closer for the file. Logging falls back to discard if the file
// cannot be created; a CLI run should never fail because of diagnostics.
func Setup(dir string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, time.Now().Format("20060102_150405")+".log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
	}

	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
