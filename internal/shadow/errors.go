package shadow

import "errors"

// Sentinel kinds for shadow errors.
var (
	ErrMalformedIntent = errors.New("malformed intent")
)
