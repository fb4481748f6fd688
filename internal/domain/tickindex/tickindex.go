// Package tickindex holds the immutable, time-sorted market data of one
// evaluation window and answers point and range queries over it.
//
// An Index is safe for concurrent readers: nothing is mutated after New
// returns.
package tickindex

import (
	"fmt"
	"sort"

	"github.com/okian/fillcheck/internal/domain/model"
)

// Index is the mid-price series and trade tape of one window plus a
// cumulative-notional prefix array over the trades.
type Index struct {
	mids   []model.MidTick
	trades []model.Trade
	// cumUSD[i] is the notional of trades[0:i]; len(cumUSD) == len(trades)+1.
	cumUSD []float64
}

// New builds an Index. Both series must already be sorted by timestamp
// (non-decreasing); New never sorts. The inputs are copied.
func New(mids []model.MidTick, trades []model.Trade) (*Index, error) {
	for i := 1; i < len(mids); i++ {
		if mids[i].TS < mids[i-1].TS {
			return nil, fmt.Errorf("%w: mid series ts %d at position %d precedes %d", ErrMalformedSeries, mids[i].TS, i, mids[i-1].TS)
		}
	}
	for i := 1; i < len(trades); i++ {
		if trades[i].TS < trades[i-1].TS {
			return nil, fmt.Errorf("%w: trade series ts %d at position %d precedes %d", ErrMalformedSeries, trades[i].TS, i, trades[i-1].TS)
		}
	}

	ix := &Index{
		mids:   append([]model.MidTick(nil), mids...),
		trades: append([]model.Trade(nil), trades...),
		cumUSD: make([]float64, len(trades)+1),
	}
	for i, t := range ix.trades {
		ix.cumUSD[i+1] = ix.cumUSD[i] + t.USD
	}
	return ix, nil
}

// Mids returns the mid series. Callers must not modify it.
func (ix *Index) Mids() []model.MidTick { return ix.mids }

// Trades returns the trade tape. Callers must not modify it.
func (ix *Index) Trades() []model.Trade { return ix.trades }

// LowerBoundMid returns the first position whose ts is >= ts, or
// len(mids) when none qualifies.
func (ix *Index) LowerBoundMid(ts int64) int {
	return sort.Search(len(ix.mids), func(i int) bool { return ix.mids[i].TS >= ts })
}

// LowerBoundTrade returns the first position whose ts is >= ts, or
// len(trades) when none qualifies.
func (ix *Index) LowerBoundTrade(ts int64) int {
	return sort.Search(len(ix.trades), func(i int) bool { return ix.trades[i].TS >= ts })
}

// RangeSumNotional returns the trade notional with ts in [start, endExclusive).
// Empty or inverted ranges sum to 0.
func (ix *Index) RangeSumNotional(start, endExclusive int64) float64 {
	if endExclusive <= start {
		return 0
	}
	return ix.cumUSD[ix.LowerBoundTrade(endExclusive)] - ix.cumUSD[ix.LowerBoundTrade(start)]
}

// MidAtOrAfter returns the first mid observed at or after ts.
func (ix *Index) MidAtOrAfter(ts int64) (float64, bool) {
	i := ix.LowerBoundMid(ts)
	if i == len(ix.mids) {
		return 0, false
	}
	return ix.mids[i].Mid, true
}
