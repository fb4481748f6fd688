// Package selection filters detected events and turns the survivors into
// labeling jobs.
package selection

import (
	"context"
	"math"
	"slices"

	"github.com/okian/fillcheck/internal/domain/dedupe"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/tickindex"
)

const defaultHorizonMs = 30_000

// Filters are the run parameters that decide which events are labeled.
type Filters struct {
	MinScore     float64 // events scoring below are dropped
	MaxSpreadBps float64 // 0 disables the spread filter
	CooldownMs   int64   // per (type, side) spacing between kept events
	HorizonMs    int64   // forward horizon used when move30 must be derived
	Sort         bool    // stable-sort events by ts before filtering
}

// Stats counts what selection dropped.
type Stats struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"`
	LowScore   int `json:"lowScore"`
	WideSpread int `json:"wideSpread"`
	Cooldown   int `json:"cooldown"`
	Kept       int `json:"kept"`
}

// Selection is the filtered batch: the kept source events and their jobs,
// position-aligned.
type Selection struct {
	Events []model.Event
	Jobs   []model.CandidateEvent
	Stats  Stats
}

// Select filters events and builds one CandidateEvent per kept event with
// Index equal to its position in the batch.
func Select(ctx context.Context, ix *tickindex.Index, events []model.Event, f Filters) Selection {
	if f.HorizonMs <= 0 {
		f.HorizonMs = defaultHorizonMs
	}
	src := events
	if f.Sort {
		src = slices.Clone(events)
		slices.SortStableFunc(src, func(a, b model.Event) int {
			switch {
			case a.TS < b.TS:
				return -1
			case a.TS > b.TS:
				return 1
			}
			return 0
		})
	}

	sel := Selection{Stats: Stats{Input: len(src)}}
	seen := dedupe.NewInMemoryDeduper()
	lastKept := make(map[model.CandidateKey]int64)

	for _, ev := range src {
		if seen.SeenAndRecord(ctx, dedupe.EventKey(ev)) {
			sel.Stats.Duplicates++
			continue
		}
		if ev.Score < f.MinScore {
			sel.Stats.LowScore++
			continue
		}
		if f.MaxSpreadBps > 0 && ev.SpreadBps > f.MaxSpreadBps {
			sel.Stats.WideSpread++
			continue
		}
		if f.CooldownMs > 0 {
			if prev, ok := lastKept[ev.Key()]; ok && ev.TS-prev < f.CooldownMs {
				sel.Stats.Cooldown++
				continue
			}
		}
		lastKept[ev.Key()] = ev.TS

		job := Job(ix, ev, len(sel.Jobs), f.HorizonMs)
		ev.Mid = job.EntryMid
		ev.Move30 = job.Move30
		sel.Events = append(sel.Events, ev)
		sel.Jobs = append(sel.Jobs, job)
	}
	sel.Stats.Kept = len(sel.Jobs)
	return sel
}

// Job builds the labeling job for ev. The entry mid falls back to the first
// mid at or after the event when the row has none; a missing move30 is
// derived from the mid horizonMs later, signed for the side.
func Job(ix *tickindex.Index, ev model.Event, index int, horizonMs int64) model.CandidateEvent {
	entryMid := ev.Mid
	if !(entryMid > 0) {
		if mid, ok := ix.MidAtOrAfter(ev.TS); ok {
			entryMid = mid
		}
	}

	move := ev.Move30
	if math.IsNaN(move) {
		if exit, ok := ix.MidAtOrAfter(ev.TS + horizonMs); ok && entryMid > 0 {
			move = (exit - entryMid) * ev.Side.Sign()
		}
	}

	return model.CandidateEvent{
		Index:       index,
		EntryTS:     ev.TS,
		EntryMid:    entryMid,
		Side:        ev.Side,
		SpreadBps:   ev.SpreadBps,
		PressureImb: ev.PressureImb,
		Move30:      move,
	}
}
