// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/morganforge/tllm/internal/model"
)

// =============================================================================
// GEMINI CLIENT
// =============================================================================

// geminiClient speaks the Gemini generateContent wire format. The credential
// travels as a query parameter and the assistant role is named "model".
// Gemini has no incremental delivery here; SendStreaming emits the complete
// reply as a single fragment.
type geminiClient struct {
	core core
}

// Name returns the backend name.
func (c *geminiClient) Name() Name {
	return Gemini
}

// geminiPart is one text block.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent is one turn with its parts.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiRequest is the generateContent request body.
type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

// geminiResponse is the generateContent response body.
type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// buildRequest returns a request builder for the generateContent endpoint.
func (c *geminiClient) buildRequest(history []*model.Message) buildRequestFunc {
	system, turns := splitHistory(history)

	contents := make([]geminiContent, 0, len(turns))
	for _, msg := range turns {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	reqBody := geminiRequest{Contents: contents}
	if system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	return func(ctx context.Context) (*http.Request, error) {
		bodyBytes, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}

		endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
			c.core.baseURL, c.core.model, url.QueryEscape(c.core.apiKey))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

// Send performs a blocking generateContent request.
func (c *geminiClient) Send(ctx context.Context, history []*model.Message) (*Reply, error) {
	if err := validateHistory(history); err != nil {
		return nil, err
	}

	resp, err := c.core.do(ctx, sharedHTTPClient, c.buildRequest(history))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var genResp geminiResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return nil, &RejectedError{Provider: Gemini, Status: http.StatusOK, Message: "response contained no candidates"}
	}

	candidate := genResp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	return &Reply{
		Text:       text.String(),
		StopReason: candidate.FinishReason,
		Model:      c.core.model,
		Provider:   Gemini,
	}, nil
}

// SendStreaming satisfies the streaming contract by delivering the complete
// reply as one fragment.
func (c *geminiClient) SendStreaming(ctx context.Context, history []*model.Message, onFragment FragmentFunc) (*Reply, error) {
	reply, err := c.Send(ctx, history)
	if err != nil {
		return nil, err
	}
	if reply.Text != "" {
		onFragment(reply.Text)
	}
	return reply, nil
}
