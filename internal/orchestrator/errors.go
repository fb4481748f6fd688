package orchestrator

import (
	"errors"
	"fmt"
)

// Sentinel kinds for terminal protocol failures.
var (
	ErrNoTrainCandidates               = errors.New("no train candidates")
	ErrAllCandidatesRejectedInValidate = errors.New("all candidates rejected in validate")
	ErrAllCandidatesDegradedInForward  = errors.New("all candidates degraded in forward")
	ErrNoTrainInputs                   = errors.New("train inputs are required")
)

// FailureKind distinguishes terminal failures.
type FailureKind string

// Failure kinds.
const (
	KindNoTrainCandidates               FailureKind = "NoTrainCandidates"
	KindAllCandidatesRejectedInValidate FailureKind = "AllCandidatesRejectedInValidate"
	KindAllCandidatesDegradedInForward  FailureKind = "AllCandidatesDegradedInForward"
	KindPhaseError                      FailureKind = "PhaseError"
)

var kindSentinels = map[FailureKind]error{
	KindNoTrainCandidates:               ErrNoTrainCandidates,
	KindAllCandidatesRejectedInValidate: ErrAllCandidatesRejectedInValidate,
	KindAllCandidatesDegradedInForward:  ErrAllCandidatesDegradedInForward,
}

// Failure is a terminal, phase-tagged failure of a multi-phase run.
type Failure struct {
	Kind  FailureKind
	Phase string
	Err   error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Phase, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Phase, f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches the sentinel of the failure's kind.
func (f *Failure) Is(target error) bool {
	s, ok := kindSentinels[f.Kind]
	return ok && s == target
}
