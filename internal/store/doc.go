// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides durable conversation persistence on SQLite.
//
// Each conversation is an append-only message log. Append is the only
// mutation after creation, and every append atomically updates both the
// message log and the conversation's last-updated timestamp so recency
// ordering stays consistent with actual activity. A single process is
// assumed to hold the store exclusively for one invocation.
package store
