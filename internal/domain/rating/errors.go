package rating

import "errors"

// ErrLengthMismatch reports parallel input slices of unequal length.
// No partial computation happens when it is returned.
var ErrLengthMismatch = errors.New("input slices have mismatched lengths")
