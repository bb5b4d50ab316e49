package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-screener/internal/extract"
	"resume-screener/internal/queue"
	"resume-screener/internal/shared/metrics"
	"resume-screener/internal/shared/storage/object"
	"resume-screener/internal/shared/telemetry"
	"resume-screener/internal/shared/util"
)

// ScreeningService stores analysis requests and runs them off the request
// path, either through the queue or on a goroutine when no queue is set.
type ScreeningService struct {
	Repo          Repo
	Store         object.ObjectStore
	Queue         queue.Client
	Analyzer      *Analyzer
	GlobalTimeout time.Duration
}

// Submit saves the uploads and a queued screening, then schedules it.
func (s *ScreeningService) Submit(ctx context.Context, req Request) (Screening, error) {
	if s.Repo == nil || s.Store == nil || s.Analyzer == nil {
		return Screening{}, errors.New("screening service not configured")
	}
	now := time.Now().UTC()
	screening := Screening{
		ID:             uuid.NewString(),
		Status:         StatusQueued,
		JobDescription: req.JobDescription,
		Texts:          req.Texts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, f := range req.Files {
		key, size, _, err := s.Store.Save(ctx, screening.ID, f.FileName, bytes.NewReader(f.Data))
		if err != nil {
			return Screening{}, fmt.Errorf("store upload %s: %w", f.FileName, err)
		}
		screening.Files = append(screening.Files, StoredFile{
			FileName:    f.FileName,
			ContentType: f.ContentType,
			StorageKey:  key,
			SizeBytes:   size,
		})
	}

	if err := s.Repo.Create(ctx, screening); err != nil {
		return Screening{}, err
	}
	metrics.IncScreeningJob("submitted")

	if s.Queue != nil {
		msg := queue.Message{
			ScreeningID: screening.ID,
			RequestID:   requestIDFromContext(ctx),
			EnqueuedAt:  now.Format(time.RFC3339),
			Version:     queue.CurrentVersion,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			s.fail(ctx, screening.ID, fmt.Errorf("enqueue screening: %w", err), nil)
			return Screening{}, err
		}
		return screening, nil
	}

	go s.processAsync(detachedWithRequestID(ctx), screening.ID)
	return screening, nil
}

func (s *ScreeningService) Get(ctx context.Context, screeningID string) (Screening, error) {
	if strings.TrimSpace(screeningID) == "" {
		return Screening{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, screeningID)
}

// ProcessScreening runs a stored screening. A failure that is recorded on the
// screening returns nil; only errors worth a redelivery are returned.
func (s *ScreeningService) ProcessScreening(ctx context.Context, screeningID string) error {
	screening, err := s.Repo.GetByID(ctx, screeningID)
	if err != nil {
		return fmt.Errorf("screening lookup: %w", err)
	}
	if screening.Status == StatusCompleted || screening.Status == StatusFailed {
		telemetry.Info("analysis.status", map[string]any{
			"request_id":   requestIDFromContext(ctx),
			"screening_id": screeningID,
			"status":       screening.Status,
			"skipped":      true,
		})
		return nil
	}

	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, screeningID, startedAt); err != nil {
		return fmt.Errorf("set processing: %w", err)
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"screening_id":      screeningID,
		"status":            StatusProcessing,
		"status_transition": screening.Status + "->processing",
	})

	uploads, err := s.loadUploads(ctx, screening.Files)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.fail(ctx, screeningID, err, &startedAt)
		return nil
	}

	runCtx := ctx
	if s.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.GlobalTimeout)
		defer cancel()
	}
	report, err := s.Analyzer.Analyze(runCtx, Request{
		JobDescription: screening.JobDescription,
		Files:          uploads,
		Texts:          screening.Texts,
	})
	if ctx.Err() != nil {
		// Worker shutdown; leave the screening for redelivery.
		return ctx.Err()
	}
	if err == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err = ErrRequestTimeout
	}
	if err != nil {
		s.fail(ctx, screeningID, err, &startedAt)
		return nil
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, screeningID, report.Results, report.Meta, completedAt); err != nil {
		return fmt.Errorf("store results: %w", err)
	}
	metrics.IncScreeningJob("completed")
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"screening_id":      screeningID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"processed":         report.Meta.Processed,
		"failed":            report.Meta.Failed,
		"duration_ms":       completedAt.Sub(startedAt).Milliseconds(),
	})
	return nil
}

func (s *ScreeningService) processAsync(ctx context.Context, screeningID string) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, screeningID, fmt.Errorf("panic: %v", r), nil)
		}
	}()
	if err := s.ProcessScreening(ctx, screeningID); err != nil {
		telemetry.Error("analysis.process_failed", map[string]any{
			"request_id":   requestIDFromContext(ctx),
			"screening_id": screeningID,
			"error":        err,
		})
	}
}

func (s *ScreeningService) loadUploads(ctx context.Context, files []StoredFile) ([]extract.Upload, error) {
	uploads := make([]extract.Upload, 0, len(files))
	for _, f := range files {
		data, err := readObject(ctx, s.Store, f.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("load upload %s: %w", f.FileName, err)
		}
		uploads = append(uploads, extract.Upload{FileName: f.FileName, ContentType: f.ContentType, Data: data})
	}
	return uploads, nil
}

func (s *ScreeningService) fail(ctx context.Context, screeningID string, err error, startedAt *time.Time) {
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.Fail(context.WithoutCancel(ctx), screeningID, msg, completedAt); updateErr != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"screening_id": screeningID,
			"error":        updateErr,
			"cause":        err,
		})
	}
	metrics.IncScreeningJob("failed")
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"screening_id":      screeningID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             msg,
	}
	if startedAt != nil {
		fields["duration_ms"] = completedAt.Sub(*startedAt).Milliseconds()
	}
	telemetry.Info("analysis.status", fields)
}

func readObject(ctx context.Context, store object.ObjectStore, key string) ([]byte, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// SortByScore returns a copy of results with successful results first, by
// score descending. Ties keep their stored order.
func SortByScore(results []Result) []Result {
	out := append([]Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Success != out[j].Success {
			return out[i].Success
		}
		return scoreOf(out[i]) > scoreOf(out[j])
	})
	return out
}

func scoreOf(r Result) int {
	if r.MatchScore == nil {
		return -1
	}
	return *r.MatchScore
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	return util.CutUTF8(msg, maxLen)
}
