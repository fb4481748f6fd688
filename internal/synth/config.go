package synth

import "github.com/okian/fillcheck/internal/domain/model"

// Default generator settings.
const (
	defaultStartTS        = int64(1_700_000_000_000)
	defaultTickMs         = 250
	defaultMid            = 100.0
	defaultEventSpacingMs = 60_000
	defaultTailMs         = 60_000
)

// Group describes the events emitted for one (type, side) candidate.
type Group struct {
	Type        string
	Side        model.Side
	Count       int
	Score       float64
	SpreadBps   float64
	PressureImb float64
	Move30      float64 // mean side-signed forward move in USD
	Jitter      float64 // standard deviation added to Move30
	OmitMove30  bool    // leave move30 to be derived from the mid series
}

// Config drives one generated window.
type Config struct {
	Seed           int64
	StartTS        int64
	TickMs         int64   // mid tick interval
	Mid            float64 // starting mid
	Volatility     float64 // random-walk step standard deviation; 0 keeps the mid flat
	TradeEveryMs   int64   // 0 disables the trade tape
	TradeUSD       float64
	EventSpacingMs int64
	Groups         []Group
}

func (c Config) withDefaults() Config {
	if c.StartTS == 0 {
		c.StartTS = defaultStartTS
	}
	if c.TickMs <= 0 {
		c.TickMs = defaultTickMs
	}
	if c.Mid <= 0 {
		c.Mid = defaultMid
	}
	if c.EventSpacingMs <= 0 {
		c.EventSpacingMs = defaultEventSpacingMs
	}
	return c
}

// Events returns the total number of events the config produces.
func (c Config) Events() int {
	n := 0
	for _, g := range c.Groups {
		n += g.Count
	}
	return n
}
