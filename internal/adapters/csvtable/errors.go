package csvtable

import "errors"

// Sentinel kinds for table errors.
var (
	ErrEmptyTable     = errors.New("empty table")
	ErrHeaderMismatch = errors.New("header mismatch")
	ErrRowWidth       = errors.New("row width does not match header")
	ErrMissingColumn  = errors.New("missing column")
)
