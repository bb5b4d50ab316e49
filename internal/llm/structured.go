package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/telemetry"
)

const logPayloadLimit = 500

// Client adds timeouts, output validation and a single correction retry on
// top of a Completer.
type Client struct {
	completer      Completer
	defaultTimeout time.Duration
}

func NewClient(c Completer, defaultTimeout time.Duration) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = 120 * time.Second
	}
	return &Client{completer: c, defaultTimeout: defaultTimeout}
}

func (c *Client) timeout(p Prompt) time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return c.defaultTimeout
}

// GenerateStructured asks for JSON and decodes it into T. An empty, malformed
// or schema-violating response is retried once with a correction prompt. Both
// attempts share one deadline. Cancellation of ctx is returned unchanged.
func GenerateStructured[T any](ctx context.Context, c *Client, p Prompt) (T, error) {
	var zero T
	timeout := c.timeout(p)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := attemptStructured[T](callCtx, c, p.Text, p)
	if err == nil {
		metrics.IncModelRequest("structured", "ok")
		return out, nil
	}
	if ctx.Err() != nil {
		metrics.IncModelRequest("structured", "cancelled")
		return zero, ctx.Err()
	}
	if callCtx.Err() != nil {
		metrics.IncModelRequest("structured", "timeout")
		return zero, timeoutError(timeout, false)
	}
	if !retryable(err) {
		metrics.IncModelRequest("structured", "error")
		return zero, err
	}

	metrics.IncModelRetry()
	telemetry.Warn("model.retry", map[string]any{"error": err})

	out, err = attemptStructured[T](callCtx, c, CorrectionPrompt(err, p.Text), p)
	if err == nil {
		metrics.IncModelRequest("structured", "ok_after_retry")
		return out, nil
	}
	if ctx.Err() != nil {
		metrics.IncModelRequest("structured", "cancelled")
		return zero, ctx.Err()
	}
	if callCtx.Err() != nil {
		metrics.IncModelRequest("structured", "timeout")
		return zero, timeoutError(timeout, true)
	}

	metrics.IncModelRequest("structured", "error")
	telemetry.Error("model.retry_failed", map[string]any{"error": err})
	return zero, &ModelError{
		Message: "AI model failed to provide valid JSON after a retry attempt.",
		Err:     err,
	}
}

// GenerateText returns the raw model output with no format constraint and
// no retry.
func (c *Client) GenerateText(ctx context.Context, p Prompt) (string, error) {
	timeout := c.timeout(p)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.completer.Complete(callCtx, Request{Prompt: p.Text, System: p.System})
	if err == nil {
		metrics.IncModelRequest("text", "ok")
		return raw, nil
	}
	if ctx.Err() != nil {
		metrics.IncModelRequest("text", "cancelled")
		return "", ctx.Err()
	}
	if callCtx.Err() != nil {
		metrics.IncModelRequest("text", "timeout")
		return "", timeoutError(timeout, false)
	}
	metrics.IncModelRequest("text", "error")
	telemetry.Error("model.text_failed", map[string]any{"error": err})
	return "", err
}

// CorrectionPrompt builds the second-attempt prompt from the first failure.
func CorrectionPrompt(reason error, original string) string {
	return fmt.Sprintf(
		"Your previous response was invalid.\nError: %s\n\nPlease try again and provide ONLY the corrected, valid JSON.\n\nOriginal Context:\n%s",
		reason.Error(), original,
	)
}

func attemptStructured[T any](ctx context.Context, c *Client, text string, p Prompt) (T, error) {
	var zero T
	raw, err := c.completer.Complete(ctx, Request{Prompt: text, System: p.System, JSON: true})
	if err != nil {
		return zero, err
	}
	if strings.TrimSpace(raw) == "" {
		return zero, &ModelError{Message: "AI model returned an empty or null response"}
	}
	telemetry.Debug("model.response", map[string]any{"raw": telemetry.Truncate(raw, logPayloadLimit)})
	return decodeStructured[T](raw, p.Schema)
}

func decodeStructured[T any](raw string, schema *Schema) (T, error) {
	var out T
	cleaned := CleanJSONBlock(raw)
	if cleaned == "null" {
		return out, fmt.Errorf("%w: response was null", ErrInvalidOutput)
	}
	if schema != nil {
		if err := schema.Validate(cleaned); err != nil {
			return out, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return out, nil
}

func retryable(err error) bool {
	var modelErr *ModelError
	return errors.As(err, &modelErr) || errors.Is(err, ErrInvalidOutput)
}

func timeoutError(timeout time.Duration, retry bool) error {
	secs := int(timeout.Seconds())
	msg := fmt.Sprintf("AI model request timed out after %d seconds.", secs)
	if retry {
		msg = fmt.Sprintf("AI model request timed out during retry after %d seconds.", secs)
	}
	return &ModelError{Message: msg, Err: ErrTimeout}
}
