// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// SHARED HTTP CLIENTS
// =============================================================================

var (
	// Shared HTTP client with connection pooling for non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streaming is context-controlled.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// CORE CLIENT STATE
// =============================================================================

// core holds the per-client state shared by all backends: credential,
// endpoint, model, retry bounds, and client-side request pacing.
type core struct {
	name       Name
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	limiter    *rate.Limiter
}

// newCore builds the shared client state from a Config.
func newCore(cfg Config, apiKey string) core {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Name.defaultBaseURL()
	}
	model := cfg.Model
	if model == "" {
		model = cfg.Name.DefaultModel()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return core{
		name:       cfg.Name,
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		maxRetries: maxRetries,
		// Client-side pacing: at most 2 requests/sec with a small burst,
		// independent of server-side 429 handling.
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

// logRequest logs an API request without headers or body.
func (c *core) logRequest(req *http.Request) {
	log.Printf("%s request: %s %s", c.name, req.Method, req.URL.Path)
}

// logResponse logs an API response status with duration.
func (c *core) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("%s response: %d (%v)", c.name, resp.StatusCode, duration)
}

// =============================================================================
// REQUEST EXECUTION WITH RETRY
// =============================================================================

// buildRequestFunc constructs a fresh request for each attempt so the body
// is re-readable across retries.
type buildRequestFunc func(ctx context.Context) (*http.Request, error)

// do executes a request with bounded retries and exponential backoff.
// Retries apply only to transient failures (network errors, 5xx, 429);
// rejections are returned immediately. Rate limit responses honor the
// provider's Retry-After hint when present.
func (c *core) do(ctx context.Context, client *http.Client, build buildRequestFunc) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.logRequest(req)

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = &TransportError{Provider: c.name, Err: err}
			continue
		}
		c.logResponse(resp, time.Since(start))

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		respErr := c.handleErrorResponse(resp, body)

		if !isRetryable(respErr) {
			return nil, respErr
		}
		lastErr = respErr
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, errors.New("max retries exceeded")
}

// retryDelay picks the backoff for the next attempt, honoring any
// provider-supplied retry hint over the computed exponential delay.
func (c *core) retryDelay(attempt int, lastErr error) time.Duration {
	var rlErr *RateLimitError
	if errors.As(lastErr, &rlErr) && rlErr.RetryAfter > 0 {
		if rlErr.RetryAfter > retryMaxDelay {
			return retryMaxDelay
		}
		return rlErr.RetryAfter
	}
	return calculateBackoff(attempt)
}

// calculateBackoff returns the exponential delay before the next retry.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// apiErrorResponse is the common error envelope shape across backends.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// handleErrorResponse converts HTTP error responses to the error taxonomy.
func (c *core) handleErrorResponse(resp *http.Response, body []byte) error {
	message := string(body)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   c.name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &RejectedError{Provider: c.name, Status: resp.StatusCode, Message: message}
	default:
		return &TransportError{
			Provider: c.name,
			Err:      fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, message),
		}
	}
}

// parseRetryAfter parses a Retry-After header as seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		return time.Until(t)
	}
	return 0
}

// readResponse reads a response body with the size cap applied.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type (often empty) and data, or io.EOF at stream end.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}
