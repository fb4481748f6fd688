package tickindex

import "errors"

// Sentinel kinds for index construction errors.
var (
	ErrMalformedSeries = errors.New("malformed series")
)
