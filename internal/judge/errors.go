package judge

import "errors"

// Sentinel kinds for judgement errors.
var (
	ErrJudgeFailed = errors.New("judgement failed")
)
