package analyses

import (
	"context"

	"golang.org/x/sync/semaphore"

	"resume-screener/internal/shared/metrics"
)

// Gate bounds how many candidate pipelines call the model at once. Share one
// Gate between analyzers to bound them together.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	metrics.GateAcquired()
	return nil
}

// Release frees a slot taken by a successful Acquire.
func (g *Gate) Release() {
	metrics.GateReleased()
	g.sem.Release(1)
}
