package engine

import "errors"

// Sentinel kinds for engine failures.
var (
	ErrNotFitted   = errors.New("model not fitted")
	ErrUnknownUser = errors.New("user index outside model state")
	ErrUnknownItem = errors.New("item index outside model state")
	ErrModelIO     = errors.New("model read/write failed")
	ErrModelCodec  = errors.New("model encode/decode failed")
)
