// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the uniform client contract over the backend
// LLM APIs (anthropic, openai, gemini, groq).
//
// Each backend maps the shared conversation history to its own wire format
// and maps its response shape back to a Reply or a stream of text fragments.
// This package is the only place provider-specific knowledge lives; every
// other component is provider-agnostic.
//
// Credentials are resolved from one environment variable per provider
// (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, GROQ_API_KEY). A
// missing credential fails fast with MissingCredentialError before any
// network activity.
//
// # Usage
//
//	client, err := provider.New(provider.Config{Name: provider.OpenAI})
//	if err != nil {
//	    return err
//	}
//	reply, err := client.Send(ctx, conv.Messages)
package provider
