package phase

import "errors"

// Sentinel kinds for phase errors.
var (
	ErrNoInputs    = errors.New("no input files")
	ErrPhaseFailed = errors.New("phase failed")
)
