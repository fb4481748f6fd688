// Package sweep grid-searches selection filters over the train phase and
// ranks the combinations by their judgement.
package sweep

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/okian/fillcheck/internal/adapters/artifact"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/selection"
	"github.com/okian/fillcheck/internal/phase"
	"github.com/okian/fillcheck/pkg/logger"
)

// Decision weights of the ranking score.
const (
	weightAdopt  = 3.0
	weightWatch  = 1.0
	weightReject = 0.25
	weightHold   = 0.1
)

// ErrEmptyGrid is returned when there is nothing to sweep.
var ErrEmptyGrid = errors.New("empty sweep grid")

// Grid lists the values tried per filter. An empty list keeps the base
// runner's value.
type Grid struct {
	MinScores    []float64 `json:"minScores"`
	MaxSpreadBps []float64 `json:"maxSpreadBps"`
	CooldownMs   []int64   `json:"cooldownMs"`
}

// Combination is one point of the grid.
type Combination struct {
	ID           int     `json:"id"`
	MinScore     float64 `json:"minScore"`
	MaxSpreadBps float64 `json:"maxSpreadBps"`
	CooldownMs   int64   `json:"cooldownMs"`
}

// Combinations expands the grid in nested order: min score, then max
// spread, then cooldown.
func (g Grid) Combinations(base selection.Filters) []Combination {
	scores := g.MinScores
	if len(scores) == 0 {
		scores = []float64{base.MinScore}
	}
	spreads := g.MaxSpreadBps
	if len(spreads) == 0 {
		spreads = []float64{base.MaxSpreadBps}
	}
	cooldowns := g.CooldownMs
	if len(cooldowns) == 0 {
		cooldowns = []int64{base.CooldownMs}
	}
	out := make([]Combination, 0, len(scores)*len(spreads)*len(cooldowns))
	for _, s := range scores {
		for _, sp := range spreads {
			for _, c := range cooldowns {
				out = append(out, Combination{ID: len(out), MinScore: s, MaxSpreadBps: sp, CooldownMs: c})
			}
		}
	}
	return out
}

// Outcome is the judged result of one combination.
type Outcome struct {
	Combination
	Score           float64 `json:"score"`
	Adopt           int     `json:"adopt"`
	Watch           int     `json:"watch"`
	Hold            int     `json:"hold"`
	Reject          int     `json:"reject"`
	GroupsEvaluated int     `json:"groupsEvaluated"`
	Events          int     `json:"events"`
	Error           string  `json:"error,omitempty"`
}

// Failed reports whether the combination's phase run failed.
func (o Outcome) Failed() bool { return o.Error != "" }

// Report is a ranked sweep.
type Report struct {
	ID      string    `json:"id"`
	Files   []string  `json:"files"`
	Results []Outcome `json:"results"`
}

// Score weighs a judgement's decisions and normalizes by the groups
// evaluated. A judgement without groups scores 0.
func Score(j *model.Judgement) float64 {
	groups := j.GroupsEvaluated
	if groups == 0 {
		groups = len(j.Candidates)
	}
	if groups == 0 {
		return 0
	}
	raw := weightAdopt*float64(j.Count(model.DecisionAdoptCandidate)) +
		weightWatch*float64(j.Count(model.DecisionWatch)) -
		weightReject*float64(j.Count(model.DecisionReject)) -
		weightHold*float64(j.Count(model.DecisionHoldSample))
	return raw / float64(groups)
}

// Rank orders outcomes by score, highest first. Failed combinations go
// last; ties keep combination order.
func Rank(results []Outcome) {
	sort.SliceStable(results, func(a, b int) bool {
		ra, rb := results[a], results[b]
		if ra.Failed() != rb.Failed() {
			return !ra.Failed()
		}
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		return ra.ID < rb.ID
	})
}

// Sweeper runs a grid over one set of train files.
type Sweeper struct {
	runner    *phase.Runner
	outputDir string
	logger    logger.Logger
}

// Option applies a configuration option to the Sweeper.
type Option func(*Sweeper)

// WithOutputDir writes sweep.json under <dir>/<sweep id>/.
func WithOutputDir(dir string) Option {
	return func(s *Sweeper) { s.outputDir = dir }
}

// WithLogger sets a custom logger for the sweeper.
func WithLogger(l logger.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Sweeper. Combination runs never write phase artifacts.
func New(runner *phase.Runner, opts ...Option) *Sweeper {
	s := &Sweeper{
		runner: runner.With(phase.WithOutputDir("")),
		logger: logger.Get().Named("sweep"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every combination sequentially and returns the ranking.
// Only cancellation or an empty grid fail the sweep itself.
func (s *Sweeper) Run(ctx context.Context, files []string, grid Grid) (*Report, error) {
	base := s.runner.Filters()
	combos := grid.Combinations(base)
	if len(combos) == 0 {
		return nil, ErrEmptyGrid
	}
	rep := &Report{ID: uuid.NewString(), Files: files, Results: make([]Outcome, 0, len(combos))}
	ctx = phase.ContextWithRunID(ctx, rep.ID)

	for _, c := range combos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := base
		f.MinScore, f.MaxSpreadBps, f.CooldownMs = c.MinScore, c.MaxSpreadBps, c.CooldownMs

		out := Outcome{Combination: c}
		res, err := s.runner.With(phase.WithFilters(f)).Run(ctx, phase.Train, files)
		if err != nil {
			out.Error = err.Error()
			s.logger.Warn(ctx, "combination failed", logger.Int("combination", c.ID), logger.Error(err))
		} else {
			j := res.Judgement
			out.Score = Score(j)
			out.Adopt = j.Count(model.DecisionAdoptCandidate)
			out.Watch = j.Count(model.DecisionWatch)
			out.Hold = j.Count(model.DecisionHoldSample)
			out.Reject = j.Count(model.DecisionReject)
			out.GroupsEvaluated = j.GroupsEvaluated
			out.Events = res.Summary.Events
		}
		rep.Results = append(rep.Results, out)
	}
	Rank(rep.Results)

	if s.outputDir != "" {
		path := filepath.Join(artifact.RunDir(s.outputDir, rep.ID), artifact.SweepFile)
		if err := artifact.WriteJSON(path, rep); err != nil {
			return rep, err
		}
	}
	s.logger.Info(ctx, "sweep finished", logger.String("sweep_id", rep.ID), logger.Int("combinations", len(combos)))
	return rep, nil
}
