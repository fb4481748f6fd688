package labeler

import (
	"math"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/tickindex"
)

// MakerFillStage names how far a simulated resting order got.
type MakerFillStage string

// Maker-fill stages, in order.
const (
	StageNoPenetration MakerFillStage = "no_penetration"
	StageRetreated     MakerFillStage = "retreated"
	StageThinVolume    MakerFillStage = "thin_volume"
	StageFilled        MakerFillStage = "filled"
)

// MakerFillResult describes one maker-fill simulation.
type MakerFillResult struct {
	RestingPx   float64
	Penetration int // position in the mid series, -1 when never touched
	VolumeUSD   float64
	Stage       MakerFillStage
	Filled      bool
}

// SimulateMakerFill decides whether a resting order would have filled.
//
// The order rests max(0.2 USD, 0.5bp of mid) away from entry: above for
// SHORT, below for LONG. It engages on the first mid tick in the hold window
// that touches the resting price, and the mid must stay at or through that
// price until the hold window ends. A held order fills only when favorable
// trade notional in the fill window reaches MinMakerFillUSD.
func SimulateMakerFill(ix *tickindex.Index, side model.Side, entryTS int64, entryMid float64) MakerFillResult {
	depth := math.Max(MakerPenetrationMinUSD, entryMid*MakerPenetrationBps/bpsPerUnit)
	res := MakerFillResult{Penetration: -1, Stage: StageNoPenetration}

	var touched, retreated, favorable func(px float64) bool
	switch side {
	case model.SideShort:
		res.RestingPx = entryMid + depth
		touched = func(px float64) bool { return px >= res.RestingPx }
		retreated = func(px float64) bool { return px < res.RestingPx }
		favorable = func(px float64) bool { return px >= entryMid }
	case model.SideLong:
		res.RestingPx = entryMid - depth
		touched = func(px float64) bool { return px <= res.RestingPx }
		retreated = func(px float64) bool { return px > res.RestingPx }
		favorable = func(px float64) bool { return px <= entryMid }
	default:
		return res
	}

	mids := ix.Mids()
	lo := ix.LowerBoundMid(entryTS)
	hi := ix.LowerBoundMid(entryTS + MakerHoldWindowMs)
	for i := lo; i < hi; i++ {
		if touched(mids[i].Mid) {
			res.Penetration = i
			break
		}
	}
	if res.Penetration < 0 {
		return res
	}

	for i := res.Penetration + 1; i < hi; i++ {
		if retreated(mids[i].Mid) {
			res.Stage = StageRetreated
			return res
		}
	}

	trades := ix.Trades()
	end := ix.LowerBoundTrade(entryTS + MakerFillWindowMs)
	for i := ix.LowerBoundTrade(entryTS); i < end; i++ {
		if favorable(trades[i].Px) {
			res.VolumeUSD += trades[i].USD
		}
	}
	if res.VolumeUSD < MinMakerFillUSD {
		res.Stage = StageThinVolume
		return res
	}

	res.Stage = StageFilled
	res.Filled = true
	return res
}
