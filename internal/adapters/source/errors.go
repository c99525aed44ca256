package source

import "errors"

// Sentinel kinds for upstream reads.
var (
	ErrConnect = errors.New("source connect failed")
	ErrQuery   = errors.New("source query failed")
	ErrDecode  = errors.New("source decode failed")
)
