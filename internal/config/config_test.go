// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if !cfg.Stream {
		t.Error("streaming should default on")
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TLLM_PROVIDER", "")
	t.Setenv("TLLM_MODEL", "")
	t.Setenv("TLLM_EDITOR", "")
	t.Setenv("TLLM_DB", "")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q, want default", cfg.Provider)
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("TLLM_PROVIDER", "")
	t.Setenv("TLLM_MODEL", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `provider = "openai"
model = "gpt-4o"
stream = false
editor = "vim"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o" || cfg.Stream || cfg.Editor != "vim" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadDefersProviderValidation(t *testing.T) {
	t.Setenv("TLLM_PROVIDER", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte(`provider = "cohere"`), 0600)

	// A bad provider in the file must not abort loading; the -a flag
	// overlays the value afterward and validation runs on the result.
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "cohere" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unknown provider")
	}

	cfg.Provider = "openai"
	if err := cfg.Validate(); err != nil {
		t.Errorf("overlaid provider should validate, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TLLM_PROVIDER", "gemini")
	t.Setenv("TLLM_MODEL", "gemini-1.5-pro")
	t.Setenv("TLLM_EDITOR", "nano")
	t.Setenv("TLLM_DB", "/tmp/other.db")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "gemini" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.Model != "gemini-1.5-pro" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.Editor != "nano" {
		t.Errorf("editor = %q", cfg.Editor)
	}
	if cfg.DatabasePath != "/tmp/other.db" {
		t.Errorf("db = %q", cfg.DatabasePath)
	}
}

func TestEditorFallsBackToEDITOR(t *testing.T) {
	t.Setenv("TLLM_EDITOR", "")
	t.Setenv("EDITOR", "emacs")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Editor != "emacs" {
		t.Errorf("editor = %q, want emacs", cfg.Editor)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Provider = "groq"
	cfg.Model = "llama-3.2-90b-text-preview"
	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}

	t.Setenv("TLLM_PROVIDER", "")
	t.Setenv("TLLM_MODEL", "")
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != "groq" || loaded.Model != "llama-3.2-90b-text-preview" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSystemPromptMissingFile(t *testing.T) {
	cfg := Default()
	cfg.SystemPromptPath = filepath.Join(t.TempDir(), "missing")

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt failed: %v", err)
	}
	if prompt != "" {
		t.Errorf("prompt = %q, want empty", prompt)
	}
}

func TestSystemPromptTrimmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system_prompt")
	os.WriteFile(path, []byte("be brief\n"), 0600)

	cfg := Default()
	cfg.SystemPromptPath = path

	prompt, err := cfg.SystemPrompt()
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "be brief" {
		t.Errorf("prompt = %q", prompt)
	}
	if strings.ContainsAny(prompt, "\n") {
		t.Error("prompt should be trimmed")
	}
}
