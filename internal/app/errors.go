package service

import "errors"

// Sentinel kinds for orchestration failures. The HTTP layer maps these to
// status codes.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNotFound      = errors.New("unknown identifier")
	ErrUnavailable   = errors.New("recommendation engine unavailable")
	ErrBatchTooLarge = errors.New("interaction batch exceeds limit")
	ErrNoData        = errors.New("no data source and no snapshot to start from")
)
