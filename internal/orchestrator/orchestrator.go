// Package orchestrator runs the train, validate and forward phases in order
// and decides which candidates graduate.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fillcheck/internal/adapters/artifact"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/phase"
	"github.com/okian/fillcheck/pkg/logger"
	"github.com/okian/fillcheck/pkg/metrics"
)

// Verdict statuses.
const (
	StatusAdopted = "adopted"
	StatusFailed  = "failed"
)

// PhaseRunner executes one phase.
type PhaseRunner interface {
	Run(ctx context.Context, name string, files []string) (*phase.Result, error)
}

// Inputs are the files of each phase. Train is mandatory.
type Inputs struct {
	Train    []string `json:"train"`
	Validate []string `json:"validate,omitempty"`
	Forward  []string `json:"forward,omitempty"`
}

// PhaseRecord is what the verdict keeps of one executed phase.
type PhaseRecord struct {
	Summary    phase.Summary         `json:"summary"`
	Candidates []model.CandidateStat `json:"candidates"`
	Survivors  int                   `json:"survivors"`
}

// Adopted is one finally adopted candidate.
type Adopted struct {
	Type          string     `json:"type"`
	Side          model.Side `json:"side"`
	TrainAvgNet   float64    `json:"trainAvgNet"`
	ForwardAvgNet *float64   `json:"forwardAvgNet,omitempty"`
	RetainedRatio *float64   `json:"retainedRatio,omitempty"`
	TrainCount    int        `json:"trainCount"`
	TrainWinRate  float64    `json:"trainWinRate"`
	LastPhase     string     `json:"lastPhase"`
}

// FailureRecord is the serialized form of a terminal failure.
type FailureRecord struct {
	Kind    FailureKind `json:"kind"`
	Phase   string      `json:"phase"`
	Message string      `json:"message"`
}

// Verdict is the final record of a multi-phase run.
type Verdict struct {
	RunID      string         `json:"runId"`
	Status     string         `json:"status"`
	Adopted    []Adopted      `json:"adopted"`
	Failure    *FailureRecord `json:"failure,omitempty"`
	Phases     []PhaseRecord  `json:"phases"`
	Inputs     Inputs         `json:"inputs"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Orchestrator drives the phase state machine.
type Orchestrator struct {
	runner    PhaseRunner
	outputDir string
	logger    logger.Logger
}

// New creates an Orchestrator over runner.
func New(runner PhaseRunner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner: runner,
		logger: logger.Get().Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the phases strictly in order. A phase error or a protocol
// failure halts the run; the returned verdict is always non-nil once the
// inputs are valid, and err is a *Failure on any terminal failure.
func (o *Orchestrator) Run(ctx context.Context, in Inputs) (*Verdict, error) {
	if len(in.Train) == 0 {
		return nil, ErrNoTrainInputs
	}
	v := &Verdict{RunID: uuid.NewString(), Inputs: in, StartedAt: time.Now().UTC(), Adopted: []Adopted{}}
	ctx = phase.ContextWithRunID(ctx, v.RunID)
	plan := Plan{Validate: len(in.Validate) > 0, Forward: len(in.Forward) > 0}
	o.logger.Info(ctx, "validation run started",
		logger.String("run_id", v.RunID),
		logger.Bool("validate", plan.Validate),
		logger.Bool("forward", plan.Forward),
	)

	var (
		last    = phase.Train
		forward *model.Judgement
	)
	state := Start()
	for state.Kind != StateDone && state.Kind != StateFailed {
		name, files := string(state.Kind), o.files(in, state.Kind)
		res, err := o.runner.Run(ctx, name, files)
		if err != nil {
			state = State{Kind: StateFailed, Failure: &Failure{Kind: KindPhaseError, Phase: name, Err: err}}
			break
		}

		switch state.Kind {
		case StateTrain:
			state = AfterTrain(plan, res.Judgement)
		case StateValidate:
			state = AfterValidate(plan, state, res.Judgement)
		case StateForward:
			forward = res.Judgement
			state = AfterForward(state, res.Judgement)
		}
		last = name
		v.Phases = append(v.Phases, PhaseRecord{
			Summary:    res.Summary,
			Candidates: res.Judgement.Candidates,
			Survivors:  len(state.Survivors),
		})
		metrics.UpdateCandidates(name, len(state.Survivors))
		o.logger.Info(ctx, "phase judged",
			logger.String("phase", name),
			logger.Int("candidates", len(res.Judgement.Candidates)),
			logger.Int("survivors", len(state.Survivors)),
		)
	}

	v.FinishedAt = time.Now().UTC()
	var runErr error
	if state.Kind == StateFailed {
		v.Status = StatusFailed
		v.Failure = &FailureRecord{Kind: state.Failure.Kind, Phase: state.Failure.Phase, Message: state.Failure.Error()}
		runErr = state.Failure
		o.logger.Error(ctx, "validation run failed", logger.String("run_id", v.RunID), logger.Error(state.Failure))
	} else {
		v.Status = StatusAdopted
		v.Adopted = adoptedFrom(state.Survivors, forward, last)
		o.logger.Info(ctx, "validation run adopted candidates",
			logger.String("run_id", v.RunID),
			logger.Int("adopted", len(v.Adopted)),
		)
	}
	metrics.RecordVerdict(v.Status)

	if o.outputDir != "" {
		path := filepath.Join(artifact.RunDir(o.outputDir, v.RunID), artifact.VerdictFile)
		if err := artifact.WriteJSON(path, v); err != nil {
			return v, errors.Join(runErr, fmt.Errorf("write verdict: %w", err))
		}
	}
	return v, runErr
}

func (o *Orchestrator) files(in Inputs, k StateKind) []string {
	switch k {
	case StateValidate:
		return in.Validate
	case StateForward:
		return in.Forward
	default:
		return in.Train
	}
}

func adoptedFrom(survivors []model.CandidateStat, forward *model.Judgement, last string) []Adopted {
	var fidx map[model.CandidateKey]model.CandidateStat
	if forward != nil {
		fidx = forward.Index()
	}
	out := make([]Adopted, 0, len(survivors))
	for _, c := range survivors {
		a := Adopted{
			Type:         c.Type,
			Side:         c.Side,
			TrainAvgNet:  c.AvgNetReal,
			TrainCount:   c.Count,
			TrainWinRate: c.WinRate,
			LastPhase:    last,
		}
		if f, ok := fidx[c.Key()]; ok {
			fwd := f.AvgNetReal
			a.ForwardAvgNet = &fwd
			if c.AvgNetReal != 0 {
				r := fwd / c.AvgNetReal
				a.RetainedRatio = &r
			}
		}
		out = append(out, a)
	}
	return out
}
