package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-screener/internal/llm"
	"resume-screener/internal/shared/telemetry"
)

// DefaultBaseURL is the hosted OpenAI API. Any server exposing
// /chat/completions under a base URL works.
const DefaultBaseURL = "https://api.openai.com/v1"

const maxErrorBody = 64 * 1024

type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	// NoTemperatureModels lists models that reject an explicit temperature.
	NoTemperatureModels []string
}

// Client implements llm.Completer with Chat Completions.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	noTemp     map[string]struct{}
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("MODEL_NAME is required for OpenAI")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if baseURL == DefaultBaseURL && strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("MODEL_API_KEY is required for %s", DefaultBaseURL)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	noTemp := make(map[string]struct{}, len(opts.NoTemperatureModels))
	for _, m := range opts.NoTemperatureModels {
		if m = normalizeModel(m); m != "" {
			noTemp[m] = struct{}{}
		}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      strings.TrimSpace(opts.Model),
		httpClient: httpClient,
		noTemp:     noTemp,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
}

// Complete sends one chat completion. A 400 that names the temperature
// parameter is retried once without it.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	withTemp := c.sendsTemperature()
	out, err := c.chat(ctx, req, withTemp)
	if withTemp && rejectsTemperature(err) {
		telemetry.Warn("model.temperature_rejected", map[string]any{"model": c.model})
		return c.chat(ctx, req, false)
	}
	return out, err
}

func (c *Client) chat(ctx context.Context, req llm.Request, withTemp bool) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	body := chatRequest{Model: c.model, Messages: messages}
	if withTemp {
		temp := float32(0)
		body.Temperature = &temp
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("openai read: %w", err)
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.Error != nil {
		text := string(raw)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		msg := fmt.Sprintf("AI model request failed with status %d: %s", resp.StatusCode, text)
		if parsed.Error != nil {
			msg = fmt.Sprintf("AI model request failed with status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		telemetry.Warn("model.request", map[string]any{
			"model":       c.model,
			"status":      resp.StatusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"body":        telemetry.Truncate(text, 300),
		})
		return "", &llm.ModelError{Message: msg, StatusCode: resp.StatusCode, Body: text}
	}
	if decodeErr != nil {
		return "", &llm.ModelError{
			Message:    fmt.Sprintf("AI model returned an unreadable response: %v", decodeErr),
			StatusCode: resp.StatusCode,
			Err:        decodeErr,
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.ModelError{Message: "AI model response has no choices", StatusCode: resp.StatusCode}
	}

	content := parsed.Choices[0].Message.Content
	fields := map[string]any{
		"model":       c.model,
		"status":      resp.StatusCode,
		"json":        req.JSON,
		"duration_ms": time.Since(start).Milliseconds(),
		"chars":       len(content),
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
	}
	telemetry.Info("model.request", fields)
	return content, nil
}

func (c *Client) sendsTemperature() bool {
	if isGPT5(c.model) {
		return false
	}
	_, denied := c.noTemp[normalizeModel(c.model)]
	return !denied
}

func rejectsTemperature(err error) bool {
	var modelErr *llm.ModelError
	if !errors.As(err, &modelErr) || modelErr.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(modelErr.Body), "temperature")
}

func isGPT5(model string) bool {
	return strings.HasPrefix(normalizeModel(model), "gpt-5")
}

func normalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

var _ llm.Completer = (*Client)(nil)
