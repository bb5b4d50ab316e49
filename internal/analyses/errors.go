package analyses

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrTooManyCandidates = errors.New("too many candidates")
	ErrRequestTimeout    = errors.New("request timed out")
)

const (
	ErrorCodeValidation     = "validation_error"
	ErrorCodeRequestTimeout = "request_timeout"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeStorage        = "storage_error"
	ErrorCodeInternal       = "internal_error"
)
