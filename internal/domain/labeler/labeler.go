// Package labeler turns candidate events into execution-reality labels:
// burst volume, dynamic slippage, pessimistic net P&L after fees, and a
// simulated maker fill.
package labeler

import (
	"math"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/tickindex"
)

// Slippage model coefficients.
const (
	BaseSlipBps      = 1.5
	SpreadSlipCoef   = 1.0
	PressureSlipCoef = 0.5
	BurstSlipCoef    = 0.1
	BurstScaleUSD    = 100_000.0

	// BurstWindowMs is the trailing window for burst volume; the window ends
	// one millisecond after entry so prints at the entry tick count.
	BurstWindowMs = 1000
)

// Maker-fill policy. MinMakerFillUSD is a fixed policy constant.
const (
	MakerPenetrationMinUSD = 0.2
	MakerPenetrationBps    = 0.5
	MakerHoldWindowMs      = 1000
	MakerFillWindowMs      = 5000
	MinMakerFillUSD        = 20_000.0
)

const (
	bpsPerUnit         = 10_000.0
	defaultNotionalUSD = 1000.0
	defaultTakerBps    = 5.0
)

// Labeler labels candidate events against a tick index. It holds only
// static parameters and is safe for concurrent use.
type Labeler struct {
	notionalUSD float64
	takerBps    float64
}

// New creates a Labeler with configuration options.
func New(opts ...Option) *Labeler {
	l := &Labeler{
		notionalUSD: defaultNotionalUSD,
		takerBps:    defaultTakerBps,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NotionalUSD returns the fixed position notional.
func (l *Labeler) NotionalUSD() float64 { return l.notionalUSD }

// TakerBps returns the per-side taker fee.
func (l *Labeler) TakerBps() float64 { return l.takerBps }

// Label computes the label for one event. Non-finite inputs or results
// yield null fields; Label never fails.
func (l *Labeler) Label(ix *tickindex.Index, ev model.CandidateEvent) model.Label {
	out := model.Label{Index: ev.Index}

	burst := BurstUSD1s(ix, ev.EntryTS)
	out.BurstUSD1s = model.Some(burst)

	slip, ok := DynSlipBps(ev.SpreadBps, ev.PressureImb, burst)
	if !ok {
		return l.withMakerFill(out, ix, ev)
	}
	out.DynSlipBps = model.Some(slip)

	if pes, ok := Move30Pes(ev.Move30, ev.EntryMid, slip); ok {
		if net, ok := NetPes(pes, ev.EntryMid, l.notionalUSD, l.takerBps); ok {
			out.Net30Pes = model.Some(net)
		}
	}
	return l.withMakerFill(out, ix, ev)
}

func (l *Labeler) withMakerFill(out model.Label, ix *tickindex.Index, ev model.CandidateEvent) model.Label {
	if !validMid(ev.EntryMid) {
		return out
	}
	if SimulateMakerFill(ix, ev.Side, ev.EntryTS, ev.EntryMid).Filled {
		out.MakerFilled = model.Some(1)
	} else {
		out.MakerFilled = model.Some(0)
	}
	return out
}

// LabelAll labels events in order on the calling goroutine.
func (l *Labeler) LabelAll(ix *tickindex.Index, events []model.CandidateEvent) []model.Label {
	out := make([]model.Label, len(events))
	for i, ev := range events {
		out[i] = l.Label(ix, ev)
	}
	return out
}

// BurstUSD1s returns the trade notional in [entryTS-1000, entryTS+1).
func BurstUSD1s(ix *tickindex.Index, entryTS int64) float64 {
	return ix.RangeSumNotional(entryTS-BurstWindowMs, entryTS+1)
}

// DynSlipBps returns the modeled slippage in basis points. It is
// non-decreasing in spreadBps, |pressureImb| and burstUSD.
func DynSlipBps(spreadBps, pressureImb, burstUSD float64) (float64, bool) {
	if !finite(spreadBps, pressureImb, burstUSD) {
		return 0, false
	}
	slip := BaseSlipBps +
		SpreadSlipCoef*spreadBps +
		PressureSlipCoef*math.Abs(pressureImb) +
		BurstSlipCoef*(burstUSD/BurstScaleUSD)
	return slip, finite(slip)
}

// Move30Pes subtracts the price-equivalent slippage cost from the forward
// move.
func Move30Pes(move30, entryMid, slipBps float64) (float64, bool) {
	if !validMid(entryMid) || !finite(move30, slipBps) {
		return 0, false
	}
	pes := move30 - entryMid*slipBps/bpsPerUnit
	return pes, finite(pes)
}

// NetPes converts a pessimistic per-unit move into net USD for a fixed
// notional, after the round-trip taker fee.
func NetPes(move30Pes, entryMid, notionalUSD, takerBps float64) (float64, bool) {
	if !validMid(entryMid) || !finite(move30Pes, notionalUSD, takerBps) {
		return 0, false
	}
	qty := notionalUSD / entryMid
	gross := move30Pes * qty
	fee := notionalUSD * 2 * takerBps / bpsPerUnit
	net := gross - fee
	return net, finite(net)
}

func validMid(mid float64) bool {
	return mid > 0 && !math.IsInf(mid, 0) && !math.IsNaN(mid)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
