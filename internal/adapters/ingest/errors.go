package ingest

import "errors"

// Sentinel kinds for ingest errors.
var (
	ErrMissingInput    = errors.New("missing input")
	ErrEmptyInput      = errors.New("empty input")
	ErrMalformedRecord = errors.New("malformed record")
)
