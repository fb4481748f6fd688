package orchestrator

import (
	"math"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/phase"
)

// Policy constants.
const (
	// DegradationRatio is the share of the train average net a forward
	// candidate must retain.
	DegradationRatio = 0.7
)

// StateKind is a node of the phase state machine.
type StateKind string

// States.
const (
	StateTrain    StateKind = "train"
	StateValidate StateKind = "validate"
	StateForward  StateKind = "forward"
	StateDone     StateKind = "done"
	StateFailed   StateKind = "failed"
)

// State is the machine position plus the candidates still alive. Survivors
// always carry their train statistics.
type State struct {
	Kind      StateKind
	Survivors []model.CandidateStat
	Failure   *Failure
}

// Plan says which optional phases will run.
type Plan struct {
	Validate bool
	Forward  bool
}

func (p Plan) after(cur StateKind) StateKind {
	switch cur {
	case StateTrain:
		if p.Validate {
			return StateValidate
		}
		fallthrough
	case StateValidate:
		if p.Forward {
			return StateForward
		}
	}
	return StateDone
}

func failed(kind FailureKind, phaseName string) State {
	return State{Kind: StateFailed, Failure: &Failure{Kind: kind, Phase: phaseName}}
}

// Start is the initial state.
func Start() State { return State{Kind: StateTrain} }

// AfterTrain keeps the adopt candidates of the train judgement.
func AfterTrain(plan Plan, train *model.Judgement) State {
	var survivors []model.CandidateStat
	for _, c := range train.Candidates {
		if c.Decision == model.DecisionAdoptCandidate {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return failed(KindNoTrainCandidates, phase.Train)
	}
	return State{Kind: plan.after(StateTrain), Survivors: survivors}
}

// AfterValidate keeps survivors whose validate match exists and was not
// rejected.
func AfterValidate(plan Plan, s State, validate *model.Judgement) State {
	idx := validate.Index()
	var survivors []model.CandidateStat
	for _, c := range s.Survivors {
		if m, ok := idx[c.Key()]; ok && m.Decision != model.DecisionReject {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 0 {
		return failed(KindAllCandidatesRejectedInValidate, phase.Validate)
	}
	return State{Kind: plan.after(StateValidate), Survivors: survivors}
}

// AfterForward keeps survivors whose forward match was not rejected and
// retained at least DegradationRatio of the train average net.
func AfterForward(s State, forward *model.Judgement) State {
	idx := forward.Index()
	var adopted []model.CandidateStat
	for _, c := range s.Survivors {
		m, ok := idx[c.Key()]
		if !ok || m.Decision == model.DecisionReject {
			continue
		}
		if Retains(c.AvgNetReal, m.AvgNetReal) {
			adopted = append(adopted, c)
		}
	}
	if len(adopted) == 0 {
		return failed(KindAllCandidatesDegradedInForward, phase.Forward)
	}
	return State{Kind: StateDone, Survivors: adopted}
}

// Retains reports whether forward keeps DegradationRatio of train,
// inclusively.
func Retains(train, forward float64) bool {
	if math.IsNaN(train) || math.IsNaN(forward) {
		return false
	}
	return forward >= DegradationRatio*train
}
