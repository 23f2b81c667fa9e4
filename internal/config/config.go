// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config represents the complete tllm configuration.
type Config struct {
	// Provider is the default provider: "anthropic", "openai", "gemini", "groq".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model when set.
	Model string `toml:"model"`

	// Stream enables streaming replies by default.
	Stream bool `toml:"stream"`

	// Editor is the command used for editor-based composition. Empty falls
	// back to $EDITOR at runtime.
	Editor string `toml:"editor"`

	// DatabasePath overrides the conversation database location.
	DatabasePath string `toml:"database_path"`

	// SystemPromptPath overrides the system prompt file location.
	SystemPromptPath string `toml:"system_prompt_path"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: "anthropic",
		Stream:   true,
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the tllm configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tllm"), nil
}

// DataDir returns the directory holding the database and logs.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "tllm"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDirs creates the config and data directories.
func EnsureDirs() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	dataDir, err := DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// DatabaseFile resolves the conversation database path, honoring an
// explicit override.
func (c *Config) DatabaseFile() (string, error) {
	if c.DatabasePath != "" {
		return c.DatabasePath, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tllm.db"), nil
}

// LogDir resolves the directory for per-invocation log files.
func LogDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the config file, falling back to defaults when it does not
// exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file. A missing file is
// not an error; defaults apply. The provider is not validated here: flags
// overlay the loaded value, so validation happens after the overlay.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	return cfg, nil
}

// SetDefaults fills in any missing values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProviders := map[string]bool{
		"anthropic": true, "openai": true, "gemini": true, "groq": true,
	}
	if !validProviders[strings.ToLower(c.Provider)] {
		return fmt.Errorf("provider: invalid provider %q, must be one of: anthropic, openai, gemini, groq", c.Provider)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - TLLM_PROVIDER: overrides provider
//   - TLLM_MODEL: overrides model
//   - TLLM_EDITOR, EDITOR: override editor (in that order)
//   - TLLM_DB: overrides database_path
func (c *Config) ApplyEnvOverrides() {
	if p := os.Getenv("TLLM_PROVIDER"); p != "" {
		c.Provider = p
	}
	if m := os.Getenv("TLLM_MODEL"); m != "" {
		c.Model = m
	}
	if e := os.Getenv("TLLM_EDITOR"); e != "" {
		c.Editor = e
	} else if c.Editor == "" {
		c.Editor = os.Getenv("EDITOR")
	}
	if db := os.Getenv("TLLM_DB"); db != "" {
		c.DatabasePath = db
	}
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default config file with restrictive
// permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to a specific TOML file.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# tllm configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// SYSTEM PROMPT
// =============================================================================

// SystemPrompt reads the system prompt file. A missing file yields an empty
// prompt, which seeds no system message.
func (c *Config) SystemPrompt() (string, error) {
	path := c.SystemPromptPath
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "system_prompt")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
