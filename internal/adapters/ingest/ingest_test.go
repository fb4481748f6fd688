package ingest_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/fillcheck/internal/adapters/ingest"
	"github.com/okian/fillcheck/internal/domain/model"
	logging "github.com/okian/fillcheck/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const window = `{"kind":"mid","ts":2000,"mid":100.5}
{"kind":"mid","ts":1000,"mid":100}

{"kind":"trade","ts":1500,"px":100.2,"usd":25000}
{"kind":"event","ts":1000,"type":"BREAKOUT","side":"long","score":2.5,"spread_bps":1.2,"mid":100,"pressure_imb":-0.3,"move30":0.8}
{"kind":"event","ts":1200,"type":"FADE","side":"SHORT","score":1,"spread_bps":0.5,"pressure_imb":0.1}
{"kind":"heartbeat","ts":1300}
`

func TestReader(t *testing.T) {
	_ = logging.Init()

	Convey("Given a JSONL window", t, func() {
		r := ingest.NewReader()

		Convey("When reading it", func() {
			w, err := r.Read(context.Background(), strings.NewReader(window))
			So(err, ShouldBeNil)

			Convey("Then every kind is routed to its series", func() {
				So(w.Mids, ShouldResemble, []model.MidTick{{TS: 1000, Mid: 100}, {TS: 2000, Mid: 100.5}})
				So(w.Trades, ShouldResemble, []model.Trade{{TS: 1500, Px: 100.2, USD: 25000}})
				So(w.Events, ShouldHaveLength, 2)
				So(w.Skipped, ShouldEqual, 1)
			})

			Convey("Then event fields are parsed and sides normalized", func() {
				ev := w.Events[0]
				So(ev.Type, ShouldEqual, "BREAKOUT")
				So(ev.Side, ShouldEqual, model.SideLong)
				So(ev.Score, ShouldEqual, 2.5)
				So(ev.PressureImb, ShouldEqual, -0.3)
				So(ev.Move30, ShouldEqual, 0.8)
			})

			Convey("Then absent optional fields are marked missing", func() {
				ev := w.Events[1]
				So(ev.Mid, ShouldEqual, 0)
				So(math.IsNaN(ev.Move30), ShouldBeTrue)
			})
		})

		Convey("When tick sorting is disabled", func() {
			w, err := ingest.NewReader(ingest.WithSortTicks(false)).Read(context.Background(), strings.NewReader(window))
			So(err, ShouldBeNil)
			So(w.Mids[0].TS, ShouldEqual, 2000)
		})
	})

	Convey("Given rows in the detector's own field names", t, func() {
		rows := `{"kind":"mid","ts":1000,"mid":100}
{"kind":"event","ts":1000,"type":"BREAKOUT","side":"LONG","score":1,"spreadBps":1,"net30":2.5}
{"kind":"event","ts":1000,"type":"BREAKOUT","side":"LONG","spreadBps":1,"spread_bps":3,"net30":2.5,"move30":0.5}
`
		w, err := ingest.NewReader().Read(context.Background(), strings.NewReader(rows))
		So(err, ShouldBeNil)
		So(w.Events, ShouldHaveLength, 2)

		Convey("Then net30 is the unadjusted move and a missing imbalance is zero", func() {
			ev := w.Events[0]
			So(ev.SpreadBps, ShouldEqual, 1)
			So(ev.Move30, ShouldEqual, 2.5)
			So(ev.PressureImb, ShouldEqual, 0)
		})

		Convey("Then the snake_case names win when both are present", func() {
			ev := w.Events[1]
			So(ev.SpreadBps, ShouldEqual, 3)
			So(ev.Move30, ShouldEqual, 0.5)
		})
	})

	Convey("Given broken input", t, func() {
		r := ingest.NewReader()
		ctx := context.Background()

		Convey("A non-JSON line reports its line number", func() {
			_, err := r.Read(ctx, strings.NewReader(`{"kind":"mid","ts":1,"mid":1}`+"\nnot json\n"))
			So(errors.Is(err, ingest.ErrMalformedRecord), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "line 2")
		})

		Convey("A record missing a required field is refused", func() {
			_, err := r.Read(ctx, strings.NewReader(`{"kind":"trade","ts":1,"px":1}`))
			So(errors.Is(err, ingest.ErrMalformedRecord), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, `"usd"`)
		})

		Convey("An event with an unknown side is refused", func() {
			_, err := r.Read(ctx, strings.NewReader(`{"kind":"event","ts":1,"type":"X","side":"FLAT"}`))
			So(errors.Is(err, ingest.ErrMalformedRecord), ShouldBeTrue)
		})

		Convey("A string where a number belongs is refused", func() {
			_, err := r.Read(ctx, strings.NewReader(`{"kind":"event","ts":1,"type":"X","side":"LONG","score":"high"}`))
			So(errors.Is(err, ingest.ErrMalformedRecord), ShouldBeTrue)
		})

		Convey("A window without events is empty", func() {
			_, err := r.Read(ctx, strings.NewReader(`{"kind":"mid","ts":1,"mid":1}`))
			So(errors.Is(err, ingest.ErrEmptyInput), ShouldBeTrue)
		})

		Convey("A missing file is reported as missing input", func() {
			_, err := r.ReadFile(ctx, filepath.Join(t.TempDir(), "absent.jsonl"))
			So(errors.Is(err, ingest.ErrMissingInput), ShouldBeTrue)
		})
	})

	Convey("Given a window on disk", t, func() {
		path := filepath.Join(t.TempDir(), "w.jsonl")
		So(os.WriteFile(path, []byte(window), 0o600), ShouldBeNil)

		w, err := ingest.NewReader().ReadFile(context.Background(), path)
		So(err, ShouldBeNil)
		So(w.Path, ShouldEqual, path)
		So(w.Events, ShouldHaveLength, 2)
	})
}
