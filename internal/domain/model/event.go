package model

// Event is one row of event-detection output for a window.
type Event struct {
	TS          int64
	Type        string
	Side        Side
	Score       float64
	SpreadBps   float64
	Mid         float64 // 0 when the detector did not record it
	PressureImb float64 // signed order-book imbalance
	Move30      float64 // side-signed forward move in USD; NaN when absent
}

// Key returns the candidate grouping key of the event.
func (e Event) Key() CandidateKey {
	return CandidateKey{Type: e.Type, Side: e.Side}
}

// CandidateEvent is one labeling job.
type CandidateEvent struct {
	Index       int // position in the source batch
	EntryTS     int64
	EntryMid    float64
	Side        Side
	SpreadBps   float64
	PressureImb float64
	Move30      float64
}

// Label is the realized-outcome label for one CandidateEvent.
type Label struct {
	Index       int           `json:"index"`
	BurstUSD1s  Null[float64] `json:"burstUsd1s"`
	DynSlipBps  Null[float64] `json:"dynSlipBps"`
	Net30Pes    Null[float64] `json:"net30Pes"`
	MakerFilled Null[int]     `json:"makerFilled"`
}

// LabeledEvent joins a source event with its label.
type LabeledEvent struct {
	Event Event
	Label Label
}
