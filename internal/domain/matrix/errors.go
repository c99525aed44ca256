package matrix

import "errors"

// Sentinel kinds for matrix assembly.
var (
	ErrLengthMismatch  = errors.New("coordinate slices have mismatched lengths")
	ErrIndexOutOfRange = errors.New("coordinate outside matrix shape")
)
