package model

import "fmt"

// CandidateKey identifies a (signal type, side) group. Matching is exact.
type CandidateKey struct {
	Type string
	Side Side
}

// String renders the key as TYPE/SIDE.
func (k CandidateKey) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.Side)
}

// Decision is the judgement tag attached to a candidate.
type Decision string

// Judgement decisions.
const (
	DecisionAdoptCandidate Decision = "adopt_candidate"
	DecisionWatch          Decision = "watch"
	DecisionHoldSample     Decision = "hold_sample"
	DecisionReject         Decision = "reject"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAdoptCandidate, DecisionWatch, DecisionHoldSample, DecisionReject:
		return true
	}
	return false
}

// CandidateStat aggregates the labels of one (type, side) group in one phase.
type CandidateStat struct {
	Type            string   `json:"type"`
	Side            Side     `json:"side"`
	Decision        Decision `json:"decision"`
	Count           int      `json:"count"`
	ValidNets       int      `json:"validNets"`
	AvgNetReal      float64  `json:"avg_net_real"`
	WinRate         float64  `json:"win_rate"`
	MakerFillRate   float64  `json:"maker_fill_rate"`
	AvgSlipBps      float64  `json:"avg_slip_bps"`
	GroupsEvaluated int      `json:"groupsEvaluated"`
}

// Key returns the grouping key of the statistic.
func (c CandidateStat) Key() CandidateKey {
	return CandidateKey{Type: c.Type, Side: c.Side}
}

// Judgement is the record produced by the judgement stage for one phase.
type Judgement struct {
	Candidates      []CandidateStat `json:"candidates"`
	GroupsEvaluated int             `json:"groupsEvaluated"`
}

// Index maps candidates by key. Later duplicates overwrite earlier ones.
func (j *Judgement) Index() map[CandidateKey]CandidateStat {
	out := make(map[CandidateKey]CandidateStat, len(j.Candidates))
	for _, c := range j.Candidates {
		out[c.Key()] = c
	}
	return out
}

// Count returns how many candidates carry decision d.
func (j *Judgement) Count(d Decision) int {
	n := 0
	for _, c := range j.Candidates {
		if c.Decision == d {
			n++
		}
	}
	return n
}
