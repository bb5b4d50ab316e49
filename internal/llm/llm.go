package llm

import (
	"context"
	"errors"
	"time"
)

// Request is a single prompt sent to the model.
type Request struct {
	Prompt string
	System string
	// JSON asks the backend to constrain output to a JSON document.
	JSON bool
}

// Completer performs one round-trip to a model backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrInvalidOutput marks a response that could not be decoded or failed
	// schema validation.
	ErrInvalidOutput = errors.New("invalid structured output")
	// ErrTimeout marks a call that exceeded its own timeout while the caller
	// was still waiting.
	ErrTimeout = errors.New("model request timeout")
)

// ModelError is a failure reported by or about the model itself, as opposed
// to a transport or cancellation error.
type ModelError struct {
	Message    string
	StatusCode int
	Body       string
	Err        error
}

func (e *ModelError) Error() string {
	return e.Message
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Prompt describes one logical generation.
type Prompt struct {
	Text   string
	System string
	// Timeout overrides the client default when positive. It bounds the
	// first attempt and the retry together.
	Timeout time.Duration
	Schema  *Schema
}
