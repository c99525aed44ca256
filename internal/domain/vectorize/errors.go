package vectorize

import "errors"

// Sentinel kinds for vectorizer errors.
var (
	ErrNotFitted    = errors.New("vectorizer not fitted")
	ErrInvalidState = errors.New("invalid vectorizer state")
)
