// Package judge turns a phase's labeled event table into per-(type, side)
// candidate statistics and decisions.
package judge

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/fillcheck/internal/adapters/csvtable"
	"github.com/okian/fillcheck/internal/domain/model"
)

const (
	defaultMinSamples = 20
	defaultMinWinRate = 0.5
)

// Judge evaluates a merged labeled event table.
type Judge interface {
	Evaluate(ctx context.Context, events *csvtable.Table) (*model.Judgement, error)
}

// RulesJudge is the built-in judgement stage.
type RulesJudge struct {
	minSamples int
	minAvgNet  float64
	minWinRate float64
}

// NewRulesJudge creates a RulesJudge with configuration options.
func NewRulesJudge(opts ...Option) *RulesJudge {
	j := &RulesJudge{
		minSamples: defaultMinSamples,
		minWinRate: defaultMinWinRate,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Evaluate decodes the table and judges every (type, side) group.
func (j *RulesJudge) Evaluate(ctx context.Context, events *csvtable.Table) (*model.Judgement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := csvtable.DecodeLabeled(events)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJudgeFailed, err)
	}
	return j.Judge(rows), nil
}

type groupAcc struct {
	count, validNets, wins int
	netSum                 float64
	fills, fillObs         int
	slipSum                float64
	slipObs                int
}

// Judge aggregates labeled events by (type, side). Candidates are ordered
// by type then side.
func (j *RulesJudge) Judge(rows []model.LabeledEvent) *model.Judgement {
	groups := make(map[model.CandidateKey]*groupAcc)
	for _, r := range rows {
		k := r.Event.Key()
		g, ok := groups[k]
		if !ok {
			g = &groupAcc{}
			groups[k] = g
		}
		g.count++
		if r.Label.Net30Pes.Valid {
			g.validNets++
			g.netSum += r.Label.Net30Pes.V
			if r.Label.Net30Pes.V > 0 {
				g.wins++
			}
		}
		if r.Label.MakerFilled.Valid {
			g.fillObs++
			g.fills += r.Label.MakerFilled.V
		}
		if r.Label.DynSlipBps.Valid {
			g.slipObs++
			g.slipSum += r.Label.DynSlipBps.V
		}
	}

	keys := make([]model.CandidateKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Type != keys[b].Type {
			return keys[a].Type < keys[b].Type
		}
		return keys[a].Side < keys[b].Side
	})

	out := &model.Judgement{GroupsEvaluated: len(keys), Candidates: make([]model.CandidateStat, 0, len(keys))}
	for _, k := range keys {
		g := groups[k]
		c := model.CandidateStat{
			Type:            k.Type,
			Side:            k.Side,
			Count:           g.count,
			ValidNets:       g.validNets,
			AvgNetReal:      ratio(g.netSum, g.validNets),
			WinRate:         ratio(float64(g.wins), g.validNets),
			MakerFillRate:   ratio(float64(g.fills), g.fillObs),
			AvgSlipBps:      ratio(g.slipSum, g.slipObs),
			GroupsEvaluated: len(keys),
		}
		c.Decision = j.decide(c)
		out.Candidates = append(out.Candidates, c)
	}
	return out
}

func (j *RulesJudge) decide(c model.CandidateStat) model.Decision {
	switch {
	case c.ValidNets == 0:
		return model.DecisionReject
	case c.Count < j.minSamples:
		return model.DecisionHoldSample
	case c.AvgNetReal > j.minAvgNet && c.WinRate >= j.minWinRate:
		return model.DecisionAdoptCandidate
	case c.AvgNetReal > 0:
		return model.DecisionWatch
	default:
		return model.DecisionReject
	}
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
