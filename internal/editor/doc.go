// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor bridges conversation state and an external text editor.
//
// Formatting and parsing are pure transformations: conversation mode renders
// role-tagged turns with a trailing editable region for the next user turn,
// and listing mode renders one command-prefixed line per conversation. The
// only I/O lives in Launch, which runs $EDITOR against a temporary buffer
// file and guarantees cleanup on every exit path, including launch failure.
package editor
