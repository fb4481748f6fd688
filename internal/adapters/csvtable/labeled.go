package csvtable

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/fillcheck/internal/domain/model"
)

// Labeled event columns.
const (
	ColIndex       = "index"
	ColTS          = "ts"
	ColType        = "type"
	ColSide        = "side"
	ColScore       = "score"
	ColSpreadBps   = "spreadBps"
	ColMid         = "mid"
	ColPressureImb = "pressureImb"
	ColMove30      = "move30"
	ColBurstUSD1s  = "burstUsd1s"
	ColDynSlipBps  = "dynSlipBps"
	ColNet30Pes    = "net30Pes"
	ColMakerFilled = "makerFilled"
)

// LabeledHeader is the header of every labeled event table.
var LabeledHeader = []string{
	ColIndex, ColTS, ColType, ColSide, ColScore, ColSpreadBps, ColMid, ColPressureImb, ColMove30,
	ColBurstUSD1s, ColDynSlipBps, ColNet30Pes, ColMakerFilled,
}

// EncodeLabeled renders labeled events as a table in the given order.
func EncodeLabeled(events []model.LabeledEvent) *Table {
	t := New(LabeledHeader)
	for _, le := range events {
		e, l := le.Event, le.Label
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(l.Index),
			strconv.FormatInt(e.TS, 10),
			e.Type,
			string(e.Side),
			formatFloat(e.Score),
			formatFloat(e.SpreadBps),
			formatFloat(e.Mid),
			formatFloat(e.PressureImb),
			formatFloat(e.Move30),
			model.FormatFloat(l.BurstUSD1s),
			model.FormatFloat(l.DynSlipBps),
			model.FormatFloat(l.Net30Pes),
			model.FormatInt(l.MakerFilled),
		})
	}
	return t
}

// DecodeLabeled parses a labeled event table. Columns are located by name,
// so extra columns and reordering are tolerated.
func DecodeLabeled(t *Table) ([]model.LabeledEvent, error) {
	cols, err := t.Columns(LabeledHeader...)
	if err != nil {
		return nil, err
	}
	out := make([]model.LabeledEvent, 0, t.Len())
	for n, row := range t.Rows {
		if len(row) != len(t.Header) {
			return nil, fmt.Errorf("row %d: %w", n+1, ErrRowWidth)
		}
		le, err := decodeRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}
		out = append(out, le)
	}
	return out, nil
}

func decodeRow(row []string, cols map[string]int) (model.LabeledEvent, error) {
	var le model.LabeledEvent
	var err error
	cell := func(name string) string { return row[cols[name]] }

	if le.Label.Index, err = strconv.Atoi(cell(ColIndex)); err != nil {
		return le, fmt.Errorf("%s: %w", ColIndex, err)
	}
	if le.Event.TS, err = strconv.ParseInt(cell(ColTS), 10, 64); err != nil {
		return le, fmt.Errorf("%s: %w", ColTS, err)
	}
	le.Event.Type = cell(ColType)
	if le.Event.Side, err = model.ParseSide(cell(ColSide)); err != nil {
		return le, err
	}
	for name, dst := range map[string]*float64{
		ColScore:       &le.Event.Score,
		ColSpreadBps:   &le.Event.SpreadBps,
		ColMid:         &le.Event.Mid,
		ColPressureImb: &le.Event.PressureImb,
		ColMove30:      &le.Event.Move30,
	} {
		if *dst, err = parseFloat(cell(name)); err != nil {
			return le, fmt.Errorf("%s: %w", name, err)
		}
	}
	if le.Label.BurstUSD1s, err = model.ParseFloat(cell(ColBurstUSD1s)); err != nil {
		return le, fmt.Errorf("%s: %w", ColBurstUSD1s, err)
	}
	if le.Label.DynSlipBps, err = model.ParseFloat(cell(ColDynSlipBps)); err != nil {
		return le, fmt.Errorf("%s: %w", ColDynSlipBps, err)
	}
	if le.Label.Net30Pes, err = model.ParseFloat(cell(ColNet30Pes)); err != nil {
		return le, fmt.Errorf("%s: %w", ColNet30Pes, err)
	}
	if le.Label.MakerFilled, err = model.ParseInt(cell(ColMakerFilled)); err != nil {
		return le, fmt.Errorf("%s: %w", ColMakerFilled, err)
	}
	return le, nil
}

// formatFloat writes non-finite values as empty cells.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
