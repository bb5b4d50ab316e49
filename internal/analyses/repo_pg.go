package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, s Screening) error {
	const query = `
INSERT INTO screenings (id, status, job_description, texts, files, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`
	texts, err := marshalJSONB(s.Texts, "[]")
	if err != nil {
		return err
	}
	files, err := marshalJSONB(s.Files, "[]")
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, s.ID, s.Status, s.JobDescription, texts, files, s.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, screeningID string) (Screening, error) {
	const query = `
SELECT id, status, job_description, texts, files, results, meta, error_message,
       created_at, started_at, completed_at, updated_at
FROM screenings
WHERE id = $1
LIMIT 1`
	var (
		s            Screening
		texts        []byte
		files        []byte
		results      []byte
		meta         []byte
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, screeningID).Scan(
		&s.ID,
		&s.Status,
		&s.JobDescription,
		&texts,
		&files,
		&results,
		&meta,
		&errorMessage,
		&s.CreatedAt,
		&startedAt,
		&completedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Screening{}, ErrNotFound
		}
		return Screening{}, err
	}
	if err := unmarshalJSONB(texts, &s.Texts); err != nil {
		return Screening{}, fmt.Errorf("decode texts: %w", err)
	}
	if err := unmarshalJSONB(files, &s.Files); err != nil {
		return Screening{}, fmt.Errorf("decode files: %w", err)
	}
	if err := unmarshalJSONB(results, &s.Results); err != nil {
		return Screening{}, fmt.Errorf("decode results: %w", err)
	}
	if len(meta) > 0 {
		var summary Summary
		if err := json.Unmarshal(meta, &summary); err != nil {
			return Screening{}, fmt.Errorf("decode meta: %w", err)
		}
		s.Summary = &summary
	}
	if errorMessage.Valid {
		s.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		s.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}
	return s, nil
}

func (r *PGRepo) MarkProcessing(ctx context.Context, screeningID string, startedAt time.Time) error {
	const query = `
UPDATE screenings
SET status = 'processing',
    started_at = COALESCE(started_at, $2),
    updated_at = now()
WHERE id = $1`
	return r.exec(ctx, query, screeningID, startedAt)
}

func (r *PGRepo) Complete(ctx context.Context, screeningID string, results []Result, summary Summary, completedAt time.Time) error {
	const query = `
UPDATE screenings
SET status = 'completed',
    results = $2::jsonb,
    meta = $3::jsonb,
    completed_at = $4,
    updated_at = now()
WHERE id = $1`
	resultsPayload, err := marshalJSONB(results, "[]")
	if err != nil {
		return err
	}
	metaPayload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.exec(ctx, query, screeningID, resultsPayload, metaPayload, completedAt)
}

func (r *PGRepo) Fail(ctx context.Context, screeningID, message string, completedAt time.Time) error {
	const query = `
UPDATE screenings
SET status = 'failed',
    error_message = $2,
    completed_at = $3,
    updated_at = now()
WHERE id = $1`
	return r.exec(ctx, query, screeningID, message, completedAt)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalJSONB(value any, empty string) ([]byte, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(payload) == "null" {
		return []byte(empty), nil
	}
	return payload, nil
}

func unmarshalJSONB(payload []byte, dst any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, dst)
}

var _ Repo = (*PGRepo)(nil)
var _ Repo = (*MemoryRepo)(nil)
