package workerproc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"resume-screener/internal/analyses"
	"resume-screener/internal/queue"
)

type recordingProcessor struct {
	ids []string
	err error
}

func (r *recordingProcessor) ProcessScreening(ctx context.Context, screeningID string) error {
	r.ids = append(r.ids, screeningID)
	return r.err
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		unrecoverable bool
		wantID        string
	}{
		{name: "valid", body: `{"screeningId":"s-1","requestId":"r-1","version":1}`, wantID: "s-1"},
		{name: "empty", body: "  ", unrecoverable: true},
		{name: "bad json", body: "{bad", unrecoverable: true},
		{name: "missing id", body: `{"requestId":"r-1"}`, unrecoverable: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			msg, meta, err := ParseMessage(tt.body)
			if tt.unrecoverable {
				if !Unrecoverable(err) {
					t.Fatalf("expected unrecoverable error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMessage: %v", err)
			}
			if msg.ScreeningID != tt.wantID {
				t.Fatalf("expected id %q, got %q", tt.wantID, msg.ScreeningID)
			}
			if meta.BodyLen != len(tt.body) || len(meta.BodySHA) != 64 {
				t.Fatalf("unexpected meta %+v", meta)
			}
		})
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	boom := errors.New("analysis blew up")
	proc := &recordingProcessor{err: boom}

	err := HandleMessage(context.Background(), proc, queue.Message{ScreeningID: "s-9", RequestID: "r-9"})
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.ScreeningID != "s-9" || !errors.Is(err, boom) {
		t.Fatalf("unexpected error %+v", procErr)
	}
	if Unrecoverable(err) {
		t.Fatalf("process errors must stay retryable")
	}
	if len(proc.ids) != 1 || proc.ids[0] != "s-9" {
		t.Fatalf("unexpected processed ids %v", proc.ids)
	}
}

func TestHandleMessageMissingScreeningIsUnrecoverable(t *testing.T) {
	proc := &recordingProcessor{err: fmt.Errorf("screening lookup: %w", analyses.ErrNotFound)}

	err := HandleMessage(context.Background(), proc, queue.Message{ScreeningID: "gone"})
	if err == nil || !Unrecoverable(err) {
		t.Fatalf("expected unrecoverable error, got %v", err)
	}
}

func TestHandleMessageNilProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, queue.Message{ScreeningID: "s-1"}); err == nil {
		t.Fatalf("expected error without a processor")
	}
}
