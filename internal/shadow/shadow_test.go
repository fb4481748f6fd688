package shadow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/shadow"
	logging "github.com/okian/fillcheck/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const intents = `{"kind":"open","id":"a","ts":1,"type":"BREAKOUT","side":"LONG","px":100}
{"kind":"open","id":"b","ts":2,"type":"BREAKOUT","side":"SHORT","px":100}
{"kind":"close","id":"a","ts":3,"px":101}

{"kind":"close","id":"b","ts":4,"px":100.05}
{"kind":"open","id":"c","ts":5,"type":"FADE","side":"LONG","px":50}
{"kind":"close","id":"z","ts":6,"px":10}
{"kind":"close","id":"a","ts":7,"px":120}
`

func TestSummarize(t *testing.T) {
	_ = logging.Init()

	Convey("Given a stream of shadow intents", t, func() {
		its, err := shadow.ReadIntents(strings.NewReader(intents))
		So(err, ShouldBeNil)
		So(its, ShouldHaveLength, 7)

		rep := shadow.New(shadow.WithNotionalUSD(1000), shadow.WithTakerBps(5)).Summarize(context.Background(), its)

		Convey("Then pairs are reconciled by id with fee-aware net", func() {
			So(rep.Closed, ShouldEqual, 2)
			So(rep.Trades[0].ID, ShouldEqual, "a")
			So(rep.Trades[0].Net.String(), ShouldEqual, "9")
			So(rep.Trades[1].Side, ShouldEqual, model.SideShort)
			So(rep.Trades[1].Gross.String(), ShouldEqual, "-0.5")
			So(rep.Trades[1].Net.String(), ShouldEqual, "-1.5")
			So(rep.Wins, ShouldEqual, 1)
			So(rep.TotalNet.String(), ShouldEqual, "7.5")
			So(rep.AvgNet.String(), ShouldEqual, "3.75")
		})

		Convey("Then unmatched and duplicate ids are reported", func() {
			So(rep.OpenWithoutClose, ShouldResemble, []string{"c"})
			So(rep.CloseWithoutOpen, ShouldResemble, []string{"z"})
			So(rep.DuplicateIDs, ShouldResemble, []string{"a"})
		})

		Convey("Then totals are grouped by type and side", func() {
			So(rep.Groups, ShouldHaveLength, 2)
			So(rep.Groups[0].Side, ShouldEqual, model.SideLong)
			So(rep.Groups[0].Net.String(), ShouldEqual, "9")
			So(rep.Groups[1].Wins, ShouldEqual, 0)
		})
	})

	Convey("Given malformed intents", t, func() {
		for _, raw := range []string{
			`nope`,
			`{"kind":"hold","id":"a","px":1}`,
			`{"kind":"open","px":1,"side":"LONG"}`,
			`{"kind":"open","id":"a","side":"LONG"}`,
			`{"kind":"open","id":"a","px":-1,"side":"LONG"}`,
			`{"kind":"open","id":"a","px":1}`,
		} {
			_, err := shadow.ReadIntents(strings.NewReader(raw))
			So(errors.Is(err, shadow.ErrMalformedIntent), ShouldBeTrue)
		}
	})

	Convey("Given no intents", t, func() {
		rep := shadow.New().Summarize(context.Background(), nil)
		So(rep.Closed, ShouldEqual, 0)
		So(rep.AvgNet.IsZero(), ShouldBeTrue)
		So(rep.Groups, ShouldBeEmpty)
	})
}
