// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists tllm settings.
//
// Settings live in config.toml under the user config directory, with
// environment variables overriding the file and command-line flags
// overriding both. The package also owns the data directory layout
// (database, logs) and the optional system prompt file.
package config
