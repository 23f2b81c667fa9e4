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

// =============================================================================
// OPENAI-COMPATIBLE CLIENT
// =============================================================================

// openAIClient speaks the OpenAI chat-completions wire format. Groq exposes
// the same format at a different endpoint, so both share this client.
type openAIClient struct {
	core core
}

// Name returns the backend name.
func (c *openAIClient) Name() Name {
	return c.core.name
}

// chatMessage is one turn on the wire.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// chatChunk is one streamed SSE payload.
type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// buildMessages maps the shared history to the wire shape. The system
// prompt, if present, leads the message list.
func (c *openAIClient) buildMessages(history []*model.Message) []chatMessage {
	system, turns := splitHistory(history)

	messages := make([]chatMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, msg := range turns {
		messages = append(messages, chatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	return messages
}

// buildRequest returns a request builder for the chat-completions endpoint.
func (c *openAIClient) buildRequest(history []*model.Message, stream bool) buildRequestFunc {
	reqBody := chatRequest{
		Model:    c.core.model,
		Messages: c.buildMessages(history),
		Stream:   stream,
	}

	return func(ctx context.Context) (*http.Request, error) {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}

		url := c.core.baseURL + "/chat/completions"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", "Bearer "+c.core.apiKey)
		req.Header.Set("Content-Type", "application/json")
		if stream {
			req.Header.Set("Accept", "text/event-stream")
			req.Header.Set("Cache-Control", "no-cache")
		}
		return req, nil
	}
}

// Send performs a blocking chat-completions request.
func (c *openAIClient) Send(ctx context.Context, history []*model.Message) (*Reply, error) {
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

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, &RejectedError{Provider: c.core.name, Status: http.StatusOK, Message: "response contained no choices"}
	}

	return &Reply{
		Text:       chatResp.Choices[0].Message.Content,
		StopReason: chatResp.Choices[0].FinishReason,
		Model:      chatResp.Model,
		Provider:   c.core.name,
	}, nil
}

// SendStreaming performs a streaming chat-completions request. Retries apply
// only to establishing the stream; once fragments flow, a failure truncates
// the reply and is returned as a StreamError.
func (c *openAIClient) SendStreaming(ctx context.Context, history []*model.Message, onFragment FragmentFunc) (*Reply, error) {
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

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &StreamError{
				Partial: accumulated.String(),
				Err:     &TransportError{Provider: c.core.name, Err: err},
			}
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if content := chunk.Choices[0].Delta.Content; content != "" {
			accumulated.WriteString(content)
			onFragment(content)
		}
		if reason := chunk.Choices[0].FinishReason; reason != "" {
			stopReason = reason
		}
	}

	return &Reply{
		Text:       accumulated.String(),
		StopReason: stopReason,
		Model:      c.core.model,
		Provider:   c.core.name,
	}, nil
}
