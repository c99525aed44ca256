package dataset

import "errors"

// Sentinel kinds for dataset operations.
var (
	ErrBuild         = errors.New("dataset build failed")
	ErrEmptyBatch    = errors.New("empty interaction batch")
	ErrSnapshotIO    = errors.New("snapshot read/write failed")
	ErrSnapshotCodec = errors.New("snapshot encode/decode failed")
)
