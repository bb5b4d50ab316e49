package workerproc

import (
	"context"
	"errors"
	"strings"

	"resume-screener/internal/analyses"
	"resume-screener/internal/queue"
	"resume-screener/internal/shared/util"
)

// Processor runs one stored screening to completion.
type Processor interface {
	ProcessScreening(ctx context.Context, screeningID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	return MessageMeta{BodyLen: len(body), BodySHA: util.SHA256Hex(body)}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingScreeningID indicates a message without a screening id.
type ErrMissingScreeningID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingScreeningID) Error() string { return "missing screening id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	ScreeningID string
	RequestID   string
	Err         error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process screening"
	}
	return "process screening: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether redelivering the message can never succeed:
// a malformed payload or a screening that no longer exists.
func Unrecoverable(err error) bool {
	if errors.Is(err, analyses.ErrNotFound) {
		return true
	}
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingScreeningID
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ScreeningID) == "" {
		return msg, meta, ErrMissingScreeningID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage processes an already parsed message.
func HandleMessage(ctx context.Context, proc Processor, msg queue.Message) error {
	if proc == nil {
		return errors.New("screening processor not configured")
	}
	if strings.TrimSpace(msg.ScreeningID) == "" {
		return ErrMissingScreeningID{RequestID: msg.RequestID}
	}
	ctx = analyses.WithRequestID(ctx, msg.RequestID)
	if err := proc.ProcessScreening(ctx, msg.ScreeningID); err != nil {
		return ErrProcess{ScreeningID: msg.ScreeningID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
