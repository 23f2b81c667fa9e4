// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package term handles terminal output: TTY detection, capability probing,
// and rendering of replies as they arrive. Interactive terminals get
// markdown rendering and styled status lines; piped output stays plain.
package term
