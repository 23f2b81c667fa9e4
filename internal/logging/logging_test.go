// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	closer, err := Setup(dir)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer func() {
		log.SetOutput(os.Stderr)
		closer.Close()
	}()

	log.Printf("probe entry")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("log files = %d, want 1", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "probe entry") {
		t.Errorf("log contents = %q", string(data))
	}
}

func TestSetupUnwritableDirFallsBack(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	closer, err := Setup(filepath.Join(file, "logs"))
	defer func() {
		log.SetOutput(os.Stderr)
		closer.Close()
	}()

	if err == nil {
		t.Error("expected an error for unwritable directory")
	}
	if log.Writer() != io.Discard {
		t.Error("logging should fall back to discard")
	}
}
