// Package ingest reads one evaluation window from a JSON Lines file of mid,
// trade and event records.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/pkg/logger"
)

const defaultMaxLineBytes = 1 << 20

// Record kinds.
const (
	KindMid   = "mid"
	KindTrade = "trade"
	KindEvent = "event"
)

// Window is the parsed content of one input file.
type Window struct {
	Path    string
	Mids    []model.MidTick
	Trades  []model.Trade
	Events  []model.Event
	Skipped int // records of unknown kind
}

// Reader parses JSONL windows.
type Reader struct {
	sortTicks bool
	maxLine   int
	logger    logger.Logger
}

// NewReader creates a Reader with configuration options.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		sortTicks: true,
		maxLine:   defaultMaxLineBytes,
		logger:    logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadFile opens and parses path.
func (r *Reader) ReadFile(ctx context.Context, path string) (*Window, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w, err := r.Read(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	w.Path = path
	return w, nil
}

// Read parses a JSONL stream. A stream without event records fails with
// ErrEmptyInput.
func (r *Reader) Read(ctx context.Context, in io.Reader) (*Window, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), r.maxLine)

	w := &Window{}
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		if err := r.parseLine(ctx, w, raw); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, line+1, err)
	}
	if len(w.Events) == 0 {
		return nil, ErrEmptyInput
	}

	if r.sortTicks {
		sort.SliceStable(w.Mids, func(a, b int) bool { return w.Mids[a].TS < w.Mids[b].TS })
		sort.SliceStable(w.Trades, func(a, b int) bool { return w.Trades[a].TS < w.Trades[b].TS })
	}
	return w, nil
}

func (r *Reader) parseLine(ctx context.Context, w *Window, raw string) error {
	if !gjson.Valid(raw) {
		return errors.New("not valid JSON")
	}
	rec := gjson.Parse(raw)
	if !rec.IsObject() {
		return errors.New("record is not an object")
	}

	switch kind := rec.Get("kind").String(); kind {
	case KindMid:
		ts, err := intField(rec, "ts")
		if err != nil {
			return err
		}
		mid, err := floatField(rec, "mid")
		if err != nil {
			return err
		}
		w.Mids = append(w.Mids, model.MidTick{TS: ts, Mid: mid})
	case KindTrade:
		ts, err := intField(rec, "ts")
		if err != nil {
			return err
		}
		px, err := floatField(rec, "px")
		if err != nil {
			return err
		}
		usd, err := floatField(rec, "usd")
		if err != nil {
			return err
		}
		w.Trades = append(w.Trades, model.Trade{TS: ts, Px: px, USD: usd})
	case KindEvent:
		ev, err := parseEvent(rec)
		if err != nil {
			return err
		}
		w.Events = append(w.Events, ev)
	default:
		w.Skipped++
		r.logger.Debug(ctx, "skipping record of unknown kind", logger.String("kind", kind))
	}
	return nil
}

func parseEvent(rec gjson.Result) (model.Event, error) {
	var ev model.Event
	var err error
	if ev.TS, err = intField(rec, "ts"); err != nil {
		return ev, err
	}
	typ := rec.Get("type")
	if typ.Type != gjson.String || typ.String() == "" {
		return ev, errors.New(`missing field "type"`)
	}
	ev.Type = typ.String()
	if ev.Side, err = model.ParseSide(rec.Get("side").String()); err != nil {
		return ev, err
	}

	if ev.Score, err = optFloat(rec, 0, "score"); err != nil {
		return ev, err
	}
	if ev.SpreadBps, err = optFloat(rec, math.NaN(), "spread_bps", "spreadBps"); err != nil {
		return ev, err
	}
	if ev.Mid, err = optFloat(rec, 0, "mid"); err != nil {
		return ev, err
	}
	// No imbalance reading means no imbalance surcharge.
	if ev.PressureImb, err = optFloat(rec, 0, "pressure_imb", "pressureImb"); err != nil {
		return ev, err
	}
	// net30 is the detector's name for the unadjusted forward move.
	if ev.Move30, err = optFloat(rec, math.NaN(), "move30", "net30"); err != nil {
		return ev, err
	}
	return ev, nil
}

func intField(rec gjson.Result, name string) (int64, error) {
	v := rec.Get(name)
	if !v.Exists() {
		return 0, fmt.Errorf("missing field %q", name)
	}
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("field %q is not a number", name)
	}
	return v.Int(), nil
}

func floatField(rec gjson.Result, name string) (float64, error) {
	v := rec.Get(name)
	if !v.Exists() {
		return 0, fmt.Errorf("missing field %q", name)
	}
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("field %q is not a number", name)
	}
	return v.Float(), nil
}

// optFloat reads the first of names that is present and not null, or
// returns def.
func optFloat(rec gjson.Result, def float64, names ...string) (float64, error) {
	for _, name := range names {
		v := rec.Get(name)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.Type != gjson.Number {
			return 0, fmt.Errorf("field %q is not a number", name)
		}
		return v.Float(), nil
	}
	return def, nil
}
