// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/morganforge/tllm/internal/model"
	"github.com/morganforge/tllm/internal/util"
)

// namingPrompt asks the provider for a short conversation name. The reply is
// normalized through util.Slug, so stray punctuation or extra words from an
// unruly model still produce a usable title.
const namingPrompt = "Provide a short name for the following conversation. " +
	"Respond with at most five words and no punctuation.\n\n"

// maxTitleWords bounds generated titles.
const maxTitleWords = 5

// GenerateTitle asks the provider to name the active conversation and
// persists the normalized result. Naming does not change the conversation's
// recency position.
func (c *Controller) GenerateTitle(ctx context.Context) (string, error) {
	if c.state != StateIdle {
		return "", ErrBusy
	}
	if c.convID == "" {
		return "", ErrNoConversation
	}

	conv, err := c.store.Get(c.convID)
	if err != nil {
		return "", err
	}

	var transcript strings.Builder
	for _, msg := range conv.Turns() {
		transcript.WriteString(msg.Role.DisplayName())
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	history := []*model.Message{model.NewUserMessage(namingPrompt + transcript.String())}
	reply, err := c.client.Send(ctx, history)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}

	title := util.Slug(reply.Text, maxTitleWords)
	if title == "" {
		title = "untitled"
	}
	if err := c.store.SetTitle(c.convID, title); err != nil {
		return "", err
	}
	return title, nil
}
