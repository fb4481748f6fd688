// Package shadow reconciles shadow-live open and close intents by id and
// reports realized net P&L under the labeler's fee conventions.
package shadow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/okian/fillcheck/internal/domain/dedupe"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/pkg/logger"
)

const (
	defaultNotionalUSD = 1000
	defaultTakerBps    = 5
	netPlaces          = 8
)

// Intent kinds.
const (
	KindOpen  = "open"
	KindClose = "close"
)

var (
	bpsDivisor = decimal.NewFromInt(10_000)
	two        = decimal.NewFromInt(2)
)

// Intent is one execution intent record.
type Intent struct {
	Kind string
	ID   string
	TS   int64
	Type string
	Side model.Side
	Px   decimal.Decimal
}

// Trade is a reconciled open/close pair.
type Trade struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Side    model.Side      `json:"side"`
	OpenTS  int64           `json:"openTs"`
	CloseTS int64           `json:"closeTs"`
	OpenPx  decimal.Decimal `json:"openPx"`
	ClosePx decimal.Decimal `json:"closePx"`
	Gross   decimal.Decimal `json:"gross"`
	Fee     decimal.Decimal `json:"fee"`
	Net     decimal.Decimal `json:"net"`
}

// GroupTotal aggregates closed trades of one (type, side).
type GroupTotal struct {
	Type   string          `json:"type"`
	Side   model.Side      `json:"side"`
	Closed int             `json:"closed"`
	Wins   int             `json:"wins"`
	Net    decimal.Decimal `json:"net"`
}

// Report is the shadow-live summary.
type Report struct {
	ID               string          `json:"id"`
	Closed           int             `json:"closed"`
	Wins             int             `json:"wins"`
	TotalNet         decimal.Decimal `json:"totalNet"`
	AvgNet           decimal.Decimal `json:"avgNet"`
	Groups           []GroupTotal    `json:"groups"`
	Trades           []Trade         `json:"trades"`
	OpenWithoutClose []string        `json:"openWithoutClose"`
	CloseWithoutOpen []string        `json:"closeWithoutOpen"`
	DuplicateIDs     []string        `json:"duplicateIds"`
}

// Summarizer builds shadow reports.
type Summarizer struct {
	notional decimal.Decimal
	takerBps decimal.Decimal
	logger   logger.Logger
}

// Option applies a configuration option to the Summarizer.
type Option func(*Summarizer)

// WithNotionalUSD sets the fixed notional of every shadow trade.
func WithNotionalUSD(usd float64) Option {
	return func(s *Summarizer) {
		if usd > 0 {
			s.notional = decimal.NewFromFloat(usd)
		}
	}
}

// WithTakerBps sets the per-side taker fee.
func WithTakerBps(bps float64) Option {
	return func(s *Summarizer) {
		if bps >= 0 {
			s.takerBps = decimal.NewFromFloat(bps)
		}
	}
}

// WithLogger sets a custom logger for the summarizer.
func WithLogger(l logger.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Summarizer.
func New(opts ...Option) *Summarizer {
	s := &Summarizer{
		notional: decimal.NewFromInt(defaultNotionalUSD),
		takerBps: decimal.NewFromInt(defaultTakerBps),
		logger:   logger.Get().Named("shadow"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadIntents parses a JSONL stream of intents. Blank lines are skipped.
func ReadIntents(in io.Reader) ([]Intent, error) {
	sc := bufio.NewScanner(in)
	var out []Intent
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		it, err := parseIntent(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedIntent, line, err)
		}
		out = append(out, it)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read intents: %w", err)
	}
	return out, nil
}

// ReadIntentsFile opens path and parses its intents.
func ReadIntentsFile(path string) ([]Intent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadIntents(f)
}

func parseIntent(raw string) (Intent, error) {
	if !gjson.Valid(raw) {
		return Intent{}, errors.New("not valid JSON")
	}
	rec := gjson.Parse(raw)
	it := Intent{
		Kind: rec.Get("kind").String(),
		ID:   rec.Get("id").String(),
		TS:   rec.Get("ts").Int(),
		Type: rec.Get("type").String(),
	}
	if it.Kind != KindOpen && it.Kind != KindClose {
		return it, fmt.Errorf("unknown kind %q", it.Kind)
	}
	if it.ID == "" {
		return it, errors.New(`missing field "id"`)
	}
	px := rec.Get("px")
	if px.Type != gjson.Number {
		return it, errors.New(`missing field "px"`)
	}
	// Raw keeps the printed digits exactly.
	p, err := decimal.NewFromString(px.Raw)
	if err != nil {
		return it, fmt.Errorf("px: %w", err)
	}
	if !p.IsPositive() {
		return it, fmt.Errorf("px must be positive, got %s", p)
	}
	it.Px = p
	if side := rec.Get("side"); side.Exists() {
		if it.Side, err = model.ParseSide(side.String()); err != nil {
			return it, err
		}
	} else if it.Kind == KindOpen {
		return it, errors.New(`missing field "side"`)
	}
	return it, nil
}

// Summarize reconciles intents. The first open and the first close of an
// id are used; repeats are reported as duplicates.
func (s *Summarizer) Summarize(ctx context.Context, intents []Intent) *Report {
	seen := dedupe.NewInMemoryDeduper()
	opens := make(map[string]Intent)
	closes := make(map[string]Intent)
	var closeOrder []string
	dups := make(map[string]struct{})

	for _, it := range intents {
		if seen.SeenAndRecord(ctx, it.Kind+"|"+it.ID) {
			dups[it.ID] = struct{}{}
			continue
		}
		if it.Kind == KindOpen {
			opens[it.ID] = it
		} else {
			closes[it.ID] = it
			closeOrder = append(closeOrder, it.ID)
		}
	}

	rep := &Report{
		ID:               uuid.NewString(),
		Trades:           []Trade{},
		OpenWithoutClose: []string{},
		CloseWithoutOpen: []string{},
		DuplicateIDs:     sortedKeys(dups),
	}
	groups := make(map[model.CandidateKey]*GroupTotal)
	for _, id := range closeOrder {
		cl := closes[id]
		op, ok := opens[id]
		if !ok {
			rep.CloseWithoutOpen = append(rep.CloseWithoutOpen, id)
			continue
		}
		tr := s.reconcile(op, cl)
		rep.Trades = append(rep.Trades, tr)
		rep.Closed++
		rep.TotalNet = rep.TotalNet.Add(tr.Net)
		win := tr.Net.IsPositive()
		if win {
			rep.Wins++
		}

		k := model.CandidateKey{Type: tr.Type, Side: tr.Side}
		g, ok := groups[k]
		if !ok {
			g = &GroupTotal{Type: tr.Type, Side: tr.Side}
			groups[k] = g
		}
		g.Closed++
		g.Net = g.Net.Add(tr.Net)
		if win {
			g.Wins++
		}
	}
	for id := range opens {
		if _, ok := closes[id]; !ok {
			rep.OpenWithoutClose = append(rep.OpenWithoutClose, id)
		}
	}
	sort.Strings(rep.OpenWithoutClose)

	if rep.Closed > 0 {
		rep.AvgNet = rep.TotalNet.Div(decimal.NewFromInt(int64(rep.Closed))).Round(netPlaces)
	}
	rep.Groups = make([]GroupTotal, 0, len(groups))
	for _, g := range groups {
		rep.Groups = append(rep.Groups, *g)
	}
	sort.Slice(rep.Groups, func(a, b int) bool {
		if rep.Groups[a].Type != rep.Groups[b].Type {
			return rep.Groups[a].Type < rep.Groups[b].Type
		}
		return rep.Groups[a].Side < rep.Groups[b].Side
	})

	s.logger.Info(ctx, "shadow summary",
		logger.Int("closed", rep.Closed),
		logger.Int("open_without_close", len(rep.OpenWithoutClose)),
		logger.Int("close_without_open", len(rep.CloseWithoutOpen)),
		logger.Int("duplicates", len(rep.DuplicateIDs)),
	)
	return rep
}

// reconcile prices one pair: qty = notional/openPx, gross signed by side,
// round-trip taker fee.
func (s *Summarizer) reconcile(op, cl Intent) Trade {
	qty := s.notional.Div(op.Px)
	gross := cl.Px.Sub(op.Px).Mul(qty)
	if op.Side == model.SideShort {
		gross = gross.Neg()
	}
	fee := s.notional.Mul(two).Mul(s.takerBps).Div(bpsDivisor)
	return Trade{
		ID:      op.ID,
		Type:    op.Type,
		Side:    op.Side,
		OpenTS:  op.TS,
		CloseTS: cl.TS,
		OpenPx:  op.Px,
		ClosePx: cl.Px,
		Gross:   gross.Round(netPlaces),
		Fee:     fee.Round(netPlaces),
		Net:     gross.Sub(fee).Round(netPlaces),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
