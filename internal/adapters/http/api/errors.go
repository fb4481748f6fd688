package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoVerdict  = errors.New("no verdict recorded yet")
	ErrNotFound   = errors.New("not found")
)
