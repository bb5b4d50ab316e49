package analyses

import (
	"context"
	"time"
)

// Repo persists screenings.
type Repo interface {
	Create(ctx context.Context, screening Screening) error
	GetByID(ctx context.Context, screeningID string) (Screening, error)
	MarkProcessing(ctx context.Context, screeningID string, startedAt time.Time) error
	Complete(ctx context.Context, screeningID string, results []Result, summary Summary, completedAt time.Time) error
	Fail(ctx context.Context, screeningID, message string, completedAt time.Time) error
}
