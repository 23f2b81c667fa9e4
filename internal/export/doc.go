// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders stored conversations to portable formats.
//
// Exporters turn a conversation into Markdown or JSON; WriteAll walks
// the store and writes one file per conversation with a slugged name.
package export
