// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging directs the standard logger to a per-run file.
//
// Each invocation gets a timestamped log file in the data directory.
// Setup never fails the program: if the file cannot be created the
// logger is silenced instead.
package logging
