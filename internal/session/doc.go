// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one conversation at a time through a small state
// machine: Idle, AwaitingReply, Streaming, Editing. The controller is the
// only writer to the active conversation; every state transition that
// persists something goes through the store atomically, so an interrupted
// reply either appears as a truncated assistant message or not at all.
package session
