package ollama

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"resume-screener/internal/llm"
	"resume-screener/internal/shared/telemetry"
)

// BreakerSettings configures the circuit breaker around model round-trips.
type BreakerSettings struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

type breaker struct {
	cb *gobreaker.CircuitBreaker[string]
}

// newBreaker returns nil when the breaker is disabled.
func newBreaker(model string, s BreakerSettings) *breaker {
	if !s.Enabled {
		return nil
	}
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("ollama-%s", model),
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Warn("model.breaker_state", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker[string](settings)}
}

func (b *breaker) execute(fn func() (string, error)) (string, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("model circuit breaker: %w", err)
	}
	return out, err
}

// countsAsSuccess treats caller cancellation and 4xx responses as healthy.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var modelErr *llm.ModelError
	if errors.As(err, &modelErr) && modelErr.StatusCode >= 400 && modelErr.StatusCode < 500 {
		return true
	}
	return false
}
