// Package ollama talks to an Ollama server's generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-screener/internal/llm"
	"resume-screener/internal/shared/telemetry"
)

const maxErrorBody = 64 * 1024

type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Breaker    BreakerSettings
}

// Client implements llm.Completer for Ollama.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *breaker
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Deadlines come from the caller's context.
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		httpClient: httpClient,
		breaker:    newBreaker(opts.Model, opts.Breaker),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends one non-streaming generate request.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	return c.breaker.execute(func() (string, error) {
		return c.generate(ctx, req)
	})
}

func (c *Client) generate(ctx context.Context, req llm.Request) (string, error) {
	body := generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if req.JSON {
		body.Format = "json"
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := string(raw)
		telemetry.Warn("model.request", map[string]any{
			"model":       c.model,
			"status":      resp.StatusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"body":        telemetry.Truncate(text, 300),
		})
		return "", &llm.ModelError{
			Message:    fmt.Sprintf("AI model request failed with status %d: %s", resp.StatusCode, text),
			StatusCode: resp.StatusCode,
			Body:       text,
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &llm.ModelError{
			Message:    fmt.Sprintf("AI model returned an unreadable response: %v", err),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	telemetry.Info("model.request", map[string]any{
		"model":       c.model,
		"status":      resp.StatusCode,
		"json":        req.JSON,
		"duration_ms": time.Since(start).Milliseconds(),
		"chars":       len(out.Response),
	})
	return out.Response, nil
}
