// Package synth generates deterministic JSONL evaluation windows for tests
// and the gen command.
package synth

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/okian/fillcheck/internal/adapters/ingest"
	"github.com/okian/fillcheck/internal/domain/model"
)

type midRecord struct {
	Kind string  `json:"kind"`
	TS   int64   `json:"ts"`
	Mid  float64 `json:"mid"`
}

type tradeRecord struct {
	Kind string  `json:"kind"`
	TS   int64   `json:"ts"`
	Px   float64 `json:"px"`
	USD  float64 `json:"usd"`
}

type eventRecord struct {
	Kind        string   `json:"kind"`
	TS          int64    `json:"ts"`
	Type        string   `json:"type"`
	Side        string   `json:"side"`
	Score       float64  `json:"score"`
	SpreadBps   float64  `json:"spread_bps"`
	Mid         float64  `json:"mid"`
	PressureImb float64  `json:"pressure_imb"`
	Move30      *float64 `json:"move30,omitempty"`
}

// Window is a generated window before serialization.
type Window struct {
	Mids   []model.MidTick
	Trades []model.Trade
	Events []model.Event
	omit   []bool
}

// Generate builds the window described by cfg. The same config always
// yields the same window.
func Generate(cfg Config) *Window {
	cfg = cfg.withDefaults()
	rnd := rand.New(rand.NewSource(cfg.Seed))

	total := cfg.Events()
	end := cfg.StartTS + int64(total+1)*cfg.EventSpacingMs + defaultTailMs

	w := &Window{}
	mid := cfg.Mid
	for ts := cfg.StartTS; ts <= end; ts += cfg.TickMs {
		if cfg.Volatility > 0 {
			mid += rnd.NormFloat64() * cfg.Volatility
			if mid <= 0 {
				mid = cfg.Mid
			}
		}
		w.Mids = append(w.Mids, model.MidTick{TS: ts, Mid: mid})
	}
	if cfg.TradeEveryMs > 0 {
		for ts := cfg.StartTS; ts <= end; ts += cfg.TradeEveryMs {
			px := midAt(w.Mids, ts)
			w.Trades = append(w.Trades, model.Trade{TS: ts, Px: px, USD: cfg.TradeUSD})
		}
	}

	// Interleave groups round-robin so every group spans the whole window.
	remaining := make([]int, len(cfg.Groups))
	for i, g := range cfg.Groups {
		remaining[i] = g.Count
	}
	k := 0
	for emitted := 0; emitted < total; {
		for gi, g := range cfg.Groups {
			if remaining[gi] == 0 {
				continue
			}
			remaining[gi]--
			emitted++
			k++
			ts := cfg.StartTS + int64(k)*cfg.EventSpacingMs
			move := g.Move30
			if g.Jitter > 0 {
				move += rnd.NormFloat64() * g.Jitter
			}
			w.Events = append(w.Events, model.Event{
				TS:          ts,
				Type:        g.Type,
				Side:        g.Side,
				Score:       g.Score,
				SpreadBps:   g.SpreadBps,
				Mid:         midAt(w.Mids, ts),
				PressureImb: g.PressureImb,
				Move30:      move,
			})
			w.omit = append(w.omit, g.OmitMove30)
		}
	}
	return w
}

// midAt returns the last mid at or before ts.
func midAt(mids []model.MidTick, ts int64) float64 {
	lo, hi := 0, len(mids)
	for lo < hi {
		m := (lo + hi) / 2
		if mids[m].TS <= ts {
			lo = m + 1
		} else {
			hi = m
		}
	}
	if lo == 0 {
		return mids[0].Mid
	}
	return mids[lo-1].Mid
}

// Write serializes the window as JSONL: mids, then trades, then events.
func (w *Window) Write(out io.Writer) error {
	bw := bufio.NewWriter(out)
	enc := json.NewEncoder(bw)
	for _, m := range w.Mids {
		if err := enc.Encode(midRecord{Kind: ingest.KindMid, TS: m.TS, Mid: m.Mid}); err != nil {
			return err
		}
	}
	for _, t := range w.Trades {
		if err := enc.Encode(tradeRecord{Kind: ingest.KindTrade, TS: t.TS, Px: t.Px, USD: t.USD}); err != nil {
			return err
		}
	}
	for i, e := range w.Events {
		rec := eventRecord{
			Kind: ingest.KindEvent, TS: e.TS, Type: e.Type, Side: string(e.Side),
			Score: e.Score, SpreadBps: e.SpreadBps, Mid: e.Mid, PressureImb: e.PressureImb,
		}
		if !w.omit[i] {
			move := e.Move30
			rec.Move30 = &move
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile generates cfg and writes it to path.
func WriteFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Generate(cfg).Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
