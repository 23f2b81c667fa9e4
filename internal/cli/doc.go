// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires configuration, storage, the provider client, and the
// session controller into the tllm command. It owns flag parsing, flow
// dispatch, and interactive input; everything stateful lives in the
// packages underneath.
package cli
