package selection_test

import (
	"context"
	"math"
	"testing"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/domain/selection"
	"github.com/okian/fillcheck/internal/domain/tickindex"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSelect(t *testing.T) {
	Convey("Given a window with mids and detected events", t, func() {
		ix, err := tickindex.New([]model.MidTick{
			{TS: 1000, Mid: 100},
			{TS: 31_000, Mid: 101},
			{TS: 40_000, Mid: 99},
		}, nil)
		So(err, ShouldBeNil)
		ctx := context.Background()

		events := []model.Event{
			{TS: 1000, Type: "BREAKOUT", Side: model.SideLong, Score: 2, SpreadBps: 1, Mid: 100, Move30: 0.5},
			{TS: 1000, Type: "BREAKOUT", Side: model.SideLong, Score: 3, SpreadBps: 1, Mid: 100, Move30: 0.5},
			{TS: 1500, Type: "BREAKOUT", Side: model.SideLong, Score: 2, SpreadBps: 1, Mid: 100, Move30: 0.5},
			{TS: 1200, Type: "BREAKOUT", Side: model.SideShort, Score: 0.1, SpreadBps: 1, Mid: 100, Move30: 0.5},
			{TS: 1300, Type: "FADE", Side: model.SideShort, Score: 5, SpreadBps: 9, Mid: 100, Move30: 0.5},
			{TS: 800, Type: "FADE", Side: model.SideShort, Score: 5, SpreadBps: 1, Mid: 0, Move30: math.NaN()},
		}

		Convey("When filtering with score, spread and cooldown limits", func() {
			sel := selection.Select(ctx, ix, events, selection.Filters{
				MinScore: 1, MaxSpreadBps: 5, CooldownMs: 1000, HorizonMs: 30_000, Sort: true,
			})

			Convey("Then each rule drops its events and counts them", func() {
				So(sel.Stats, ShouldResemble, selection.Stats{
					Input: 6, Duplicates: 1, LowScore: 1, WideSpread: 1, Cooldown: 1, Kept: 2,
				})
			})

			Convey("Then kept events are in time order with dense indices", func() {
				So(len(sel.Jobs), ShouldEqual, 2)
				So(sel.Jobs[0].Index, ShouldEqual, 0)
				So(sel.Jobs[0].EntryTS, ShouldEqual, 800)
				So(sel.Jobs[1].Index, ShouldEqual, 1)
				So(sel.Jobs[1].EntryTS, ShouldEqual, 1000)
				So(sel.Events[1].Type, ShouldEqual, "BREAKOUT")
			})

			Convey("Then missing mids and moves are derived from the window", func() {
				// entry mid from the tick at 1000; exit from the tick at 31000.
				So(sel.Jobs[0].EntryMid, ShouldEqual, 100)
				So(sel.Jobs[0].Move30, ShouldAlmostEqual, -1.0, 1e-12)
				So(sel.Events[0].Mid, ShouldEqual, 100)
			})
		})

		Convey("When the horizon runs past the end of the window", func() {
			job := selection.Job(ix, model.Event{TS: 20_000, Side: model.SideLong, Mid: 100, Move30: math.NaN()}, 0, 30_000)

			Convey("Then the move stays missing", func() {
				So(math.IsNaN(job.Move30), ShouldBeTrue)
			})
		})

		Convey("When sorting is disabled", func() {
			sel := selection.Select(ctx, ix, events, selection.Filters{})

			Convey("Then input order is kept", func() {
				So(sel.Jobs[0].EntryTS, ShouldEqual, 1000)
				So(sel.Jobs[len(sel.Jobs)-1].EntryTS, ShouldEqual, 800)
			})
		})
	})
}
