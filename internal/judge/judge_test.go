package judge_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/okian/fillcheck/internal/adapters/csvtable"
	"github.com/okian/fillcheck/internal/domain/model"
	"github.com/okian/fillcheck/internal/judge"
	logging "github.com/okian/fillcheck/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func labeled(typ string, side model.Side, net model.Null[float64], filled model.Null[int]) model.LabeledEvent {
	return model.LabeledEvent{
		Event: model.Event{TS: 1, Type: typ, Side: side, Mid: 100},
		Label: model.Label{
			BurstUSD1s:  model.Some(0.0),
			DynSlipBps:  model.Some(2.0),
			Net30Pes:    net,
			MakerFilled: filled,
		},
	}
}

func repeat(n int, le model.LabeledEvent) []model.LabeledEvent {
	out := make([]model.LabeledEvent, n)
	for i := range out {
		out[i] = le
		out[i].Label.Index = i
	}
	return out
}

func TestRulesJudge(t *testing.T) {
	Convey("Given a rules judge with a minimum of 3 samples", t, func() {
		j := judge.NewRulesJudge(judge.WithMinSamples(3), judge.WithAdoptThresholds(0.5, 0.6))

		Convey("A profitable group with enough samples is an adopt candidate", func() {
			rows := repeat(4, labeled("sweep", model.SideLong, model.Some(1.0), model.Some(1)))
			res := j.Judge(rows)
			So(res.GroupsEvaluated, ShouldEqual, 1)
			So(res.Candidates, ShouldHaveLength, 1)
			c := res.Candidates[0]
			So(c.Decision, ShouldEqual, model.DecisionAdoptCandidate)
			So(c.Count, ShouldEqual, 4)
			So(c.AvgNetReal, ShouldAlmostEqual, 1.0)
			So(c.WinRate, ShouldAlmostEqual, 1.0)
			So(c.MakerFillRate, ShouldAlmostEqual, 1.0)
			So(c.AvgSlipBps, ShouldAlmostEqual, 2.0)
		})

		Convey("A small group is held for more samples", func() {
			rows := repeat(2, labeled("sweep", model.SideLong, model.Some(1.0), model.Some(0)))
			So(j.Judge(rows).Candidates[0].Decision, ShouldEqual, model.DecisionHoldSample)
		})

		Convey("A marginally positive group is watched", func() {
			rows := append(
				repeat(2, labeled("sweep", model.SideShort, model.Some(1.0), model.None[int]())),
				repeat(2, labeled("sweep", model.SideShort, model.Some(-0.8), model.None[int]()))...,
			)
			c := j.Judge(rows).Candidates[0]
			So(c.AvgNetReal, ShouldAlmostEqual, 0.1)
			So(c.WinRate, ShouldAlmostEqual, 0.5)
			So(c.MakerFillRate, ShouldEqual, 0)
			So(c.Decision, ShouldEqual, model.DecisionWatch)
		})

		Convey("A losing group is rejected", func() {
			rows := repeat(5, labeled("fade", model.SideLong, model.Some(-0.2), model.Some(0)))
			So(j.Judge(rows).Candidates[0].Decision, ShouldEqual, model.DecisionReject)
		})

		Convey("A group without any valid net is rejected", func() {
			rows := repeat(5, labeled("fade", model.SideLong, model.None[float64](), model.None[int]()))
			c := j.Judge(rows).Candidates[0]
			So(c.ValidNets, ShouldEqual, 0)
			So(c.Decision, ShouldEqual, model.DecisionReject)
		})

		Convey("Candidates are ordered by type then side", func() {
			rows := []model.LabeledEvent{
				labeled("sweep", model.SideShort, model.Some(1.0), model.Some(1)),
				labeled("fade", model.SideShort, model.Some(1.0), model.Some(1)),
				labeled("sweep", model.SideLong, model.Some(1.0), model.Some(1)),
			}
			res := j.Judge(rows)
			So(res.GroupsEvaluated, ShouldEqual, 3)
			keys := make([]string, 0, 3)
			for _, c := range res.Candidates {
				keys = append(keys, c.Key().String())
				So(c.GroupsEvaluated, ShouldEqual, 3)
			}
			So(keys, ShouldResemble, []string{"fade/SHORT", "sweep/LONG", "sweep/SHORT"})
		})
	})

	Convey("Given a labeled table", t, func() {
		j := judge.NewRulesJudge()
		tbl := csvtable.EncodeLabeled(repeat(25, labeled("sweep", model.SideLong, model.Some(0.4), model.Some(1))))

		Convey("Evaluate decodes the table and judges it", func() {
			res, err := j.Evaluate(context.Background(), tbl)
			So(err, ShouldBeNil)
			So(res.Candidates, ShouldHaveLength, 1)
			So(res.Candidates[0].Decision, ShouldEqual, model.DecisionAdoptCandidate)
		})

		Convey("A table without the labeled columns fails", func() {
			_, err := j.Evaluate(context.Background(), csvtable.New([]string{"ts"}))
			So(errors.Is(err, judge.ErrJudgeFailed), ShouldBeTrue)
		})

		Convey("A cancelled context is reported", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := j.Evaluate(ctx, tbl)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestCommandJudge(t *testing.T) {
	_ = logging.Init()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	Convey("Given an external judge script", t, func() {
		dir := t.TempDir()
		tbl := csvtable.EncodeLabeled(repeat(3, labeled("sweep", model.SideLong, model.Some(1.0), model.Some(1))))

		script := func(body string) string {
			p := filepath.Join(dir, "judge.sh")
			So(os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755), ShouldBeNil)
			return p
		}

		Convey("Its JSON output becomes the judgement", func() {
			p := script(`test -s "$1" || exit 3
echo '{"candidates":[{"type":"sweep","side":"LONG","decision":"watch","count":3,"avg_net_real":1}]}'
`)
			res, err := judge.NewCommandJudge("sh", []string{p}, judge.WithTempDir(dir)).Evaluate(context.Background(), tbl)
			So(err, ShouldBeNil)
			So(res.Candidates, ShouldHaveLength, 1)
			So(res.Candidates[0].Decision, ShouldEqual, model.DecisionWatch)
			So(res.GroupsEvaluated, ShouldEqual, 1)
		})

		Convey("A non-zero exit fails the judgement", func() {
			p := script("echo nope >&2\nexit 2\n")
			_, err := judge.NewCommandJudge("sh", []string{p}).Evaluate(context.Background(), tbl)
			So(errors.Is(err, judge.ErrJudgeFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "nope")
		})

		Convey("An unknown decision is refused", func() {
			p := script(`echo '{"candidates":[{"type":"sweep","side":"LONG","decision":"maybe"}]}'` + "\n")
			_, err := judge.NewCommandJudge("sh", []string{p}).Evaluate(context.Background(), tbl)
			So(errors.Is(err, judge.ErrJudgeFailed), ShouldBeTrue)
		})

		Convey("Garbage output is refused", func() {
			p := script("echo not-json\n")
			_, err := judge.NewCommandJudge("sh", []string{p}).Evaluate(context.Background(), tbl)
			So(errors.Is(err, judge.ErrJudgeFailed), ShouldBeTrue)
		})
	})
}
