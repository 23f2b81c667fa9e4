// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/morganforge/tllm/internal/model"
)

// anthropicVersion is the required API version header value.
const anthropicVersion = "2023-06-01"

// anthropicMaxTokens is the fixed completion budget per request.
const anthropicMaxTokens = 4096

// =============================================================================
// ANTHROPIC CLIENT
// =============================================================================

// anthropicClient speaks the Anthropic messages wire format. The system
// prompt travels as a top-level field, not as a message turn.
type anthropicClient struct {
	core core
}

// Name returns the backend name.
func (c *anthropicClient) Name() Name {
	return Anthropic
}

// anthropicRequest is the messages endpoint request body.
type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream,omitempty"`
}

// anthropicResponse is the non-streaming response body.
type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// anthropicEvent is one streamed SSE payload. Only delta events carry text.
type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
}

// buildRequest returns a request builder for the messages endpoint.
func (c *anthropicClient) buildRequest(history []*model.Message, stream bool) buildRequestFunc {
	system, turns := splitHistory(history)

	messages := make([]chatMessage, 0, len(turns))
	for _, msg := range turns {
		messages = append(messages, chatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}

	reqBody := anthropicRequest{
		Model:     c.core.model,
		MaxTokens: anthropicMaxTokens,
		System:    system,
		Messages:  messages,
		Stream:    stream,
	}

	return func(ctx context.Context) (*http.Request, error) {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}

		url := c.core.baseURL + "/messages"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}

		req.Header.Set("x-api-key", c.core.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
		req.Header.Set("Content-Type", "application/json")
		if stream {
			req.Header.Set("Accept", "text/event-stream")
			req.Header.Set("Cache-Control", "no-cache")
		}
		return req, nil
	}
}

// Send performs a blocking messages request.
func (c *anthropicClient) Send(ctx context.Context, history []*model.Message) (*Reply, error) {
	if err := validateHistory(history); err != nil {
		return nil, err
	}

	resp, err := c.core.do(ctx, sharedHTTPClient, c.buildRequest(history, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &RejectedError{Provider: Anthropic, Status: http.StatusOK, Message: "response contained no text content"}
	}

	return &Reply{
		Text:       text.String(),
		StopReason: msgResp.StopReason,
		Model:      msgResp.Model,
		Provider:   Anthropic,
	}, nil
}

// SendStreaming performs a streaming messages request. Text arrives as
// content_block_delta events; message_stop ends the stream.
func (c *anthropicClient) SendStreaming(ctx context.Context, history []*model.Message, onFragment FragmentFunc) (*Reply, error) {
	if err := validateHistory(history); err != nil {
		return nil, err
	}

	resp, err := c.core.do(ctx, sharedStreamingClient, c.buildRequest(history, true))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var accumulated strings.Builder
	stopReason := ""
	reader := NewSSEReader(resp.Body)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &StreamError{
				Partial: accumulated.String(),
				Err:     &TransportError{Provider: Anthropic, Err: err},
			}
		}

		if eventType == "message_stop" {
			break
		}

		var event anthropicEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Text != "" {
				accumulated.WriteString(event.Delta.Text)
				onFragment(event.Delta.Text)
			}
		case "message_delta":
			if event.Delta.StopReason != "" {
				stopReason = event.Delta.StopReason
			}
		case "message_stop":
			// Some servers omit the event: line and signal via type only.
			return &Reply{
				Text:       accumulated.String(),
				StopReason: stopReason,
				Model:      c.core.model,
				Provider:   Anthropic,
			}, nil
		}
	}

	return &Reply{
		Text:       accumulated.String(),
		StopReason: stopReason,
		Model:      c.core.model,
		Provider:   Anthropic,
	}, nil
}
