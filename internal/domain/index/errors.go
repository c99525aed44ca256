package index

import "errors"

// Sentinel kinds for registry lookups.
var (
	ErrUnknownID    = errors.New("id not registered")
	ErrUnknownIndex = errors.New("index not registered")
)
