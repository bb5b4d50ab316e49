package analyses

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores screenings in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Screening
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Screening)}
}

func (r *MemoryRepo) Create(ctx context.Context, screening Screening) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if screening.UpdatedAt.IsZero() {
		screening.UpdatedAt = screening.CreatedAt
	}
	r.byID[screening.ID] = screening
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, screeningID string) (Screening, error) {
	if err := ctx.Err(); err != nil {
		return Screening{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[screeningID]
	if !ok {
		return Screening{}, ErrNotFound
	}
	s.Results = append([]Result(nil), s.Results...)
	return s, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, screeningID string, startedAt time.Time) error {
	return r.update(ctx, screeningID, func(s *Screening) {
		s.Status = StatusProcessing
		if s.StartedAt == nil {
			s.StartedAt = &startedAt
		}
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, screeningID string, results []Result, summary Summary, completedAt time.Time) error {
	return r.update(ctx, screeningID, func(s *Screening) {
		s.Status = StatusCompleted
		s.Results = append([]Result(nil), results...)
		s.Summary = &summary
		s.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, screeningID, message string, completedAt time.Time) error {
	return r.update(ctx, screeningID, func(s *Screening) {
		s.Status = StatusFailed
		s.ErrorMessage = message
		s.CompletedAt = &completedAt
	})
}

func (r *MemoryRepo) update(ctx context.Context, screeningID string, fn func(*Screening)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[screeningID]
	if !ok {
		return ErrNotFound
	}
	fn(&s)
	s.UpdatedAt = time.Now().UTC()
	r.byID[screeningID] = s
	return nil
}
