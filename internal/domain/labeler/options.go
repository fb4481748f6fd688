package labeler

// Option applies a configuration option to the Labeler.
type Option func(*Labeler)

// WithNotionalUSD sets the fixed notional traded per event.
func WithNotionalUSD(usd float64) Option {
	return func(l *Labeler) {
		if usd > 0 {
			l.notionalUSD = usd
		}
	}
}

// WithTakerBps sets the per-side taker fee in basis points. The fee is
// charged on entry and exit.
func WithTakerBps(bps float64) Option {
	return func(l *Labeler) {
		if bps >= 0 {
			l.takerBps = bps
		}
	}
}
