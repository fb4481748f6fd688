package orchestrator

import (
	"errors"
	"testing"

	"github.com/okian/fillcheck/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func stat(typ string, side model.Side, d model.Decision, avg float64) model.CandidateStat {
	return model.CandidateStat{Type: typ, Side: side, Decision: d, AvgNetReal: avg, Count: 30, ValidNets: 30}
}

func judgement(cs ...model.CandidateStat) *model.Judgement {
	return &model.Judgement{Candidates: cs, GroupsEvaluated: len(cs)}
}

func TestTransitions(t *testing.T) {
	Convey("Given a train judgement", t, func() {
		train := judgement(
			stat("BREAKOUT", model.SideLong, model.DecisionAdoptCandidate, 10),
			stat("BREAKOUT", model.SideShort, model.DecisionWatch, 3),
			stat("FADE", model.SideLong, model.DecisionAdoptCandidate, 4),
		)

		Convey("Only adopt candidates survive train", func() {
			s := AfterTrain(Plan{Validate: true, Forward: true}, train)
			So(s.Kind, ShouldEqual, StateValidate)
			So(s.Survivors, ShouldHaveLength, 2)
		})

		Convey("Skipped phases route straight to the next one", func() {
			So(AfterTrain(Plan{Forward: true}, train).Kind, ShouldEqual, StateForward)
			So(AfterTrain(Plan{}, train).Kind, ShouldEqual, StateDone)
		})

		Convey("No adopt candidate is a terminal failure", func() {
			s := AfterTrain(Plan{}, judgement(stat("X", model.SideLong, model.DecisionWatch, 1)))
			So(s.Kind, ShouldEqual, StateFailed)
			So(errors.Is(s.Failure, ErrNoTrainCandidates), ShouldBeTrue)
			So(s.Failure.Phase, ShouldEqual, "train")
		})

		Convey("Validate drops rejected and unmatched candidates", func() {
			s := AfterTrain(Plan{Validate: true}, train)
			s = AfterValidate(Plan{Validate: true}, s, judgement(
				stat("BREAKOUT", model.SideLong, model.DecisionHoldSample, -1),
			))
			So(s.Kind, ShouldEqual, StateDone)
			So(s.Survivors, ShouldHaveLength, 1)
			So(s.Survivors[0].AvgNetReal, ShouldEqual, 10)
		})

		Convey("Validate matching is exact on type and side", func() {
			s := AfterTrain(Plan{Validate: true}, train)
			s = AfterValidate(Plan{Validate: true}, s, judgement(
				stat("breakout", model.SideLong, model.DecisionAdoptCandidate, 10),
				stat("FADE", model.SideShort, model.DecisionAdoptCandidate, 10),
				stat("FADE", model.SideLong, model.DecisionReject, 10),
			))
			So(s.Kind, ShouldEqual, StateFailed)
			So(errors.Is(s.Failure, ErrAllCandidatesRejectedInValidate), ShouldBeTrue)
			So(errors.Is(s.Failure, ErrNoTrainCandidates), ShouldBeFalse)
		})
	})

	Convey("Given a train candidate averaging 10.0", t, func() {
		s := State{Kind: StateForward, Survivors: []model.CandidateStat{stat("BREAKOUT", model.SideLong, model.DecisionAdoptCandidate, 10.0)}}

		Convey("A forward average of exactly 7.0 is adopted", func() {
			out := AfterForward(s, judgement(stat("BREAKOUT", model.SideLong, model.DecisionWatch, 7.0)))
			So(out.Kind, ShouldEqual, StateDone)
			So(out.Survivors, ShouldHaveLength, 1)
		})

		Convey("A forward average of 6.999 is rejected", func() {
			out := AfterForward(s, judgement(stat("BREAKOUT", model.SideLong, model.DecisionWatch, 6.999)))
			So(out.Kind, ShouldEqual, StateFailed)
			So(errors.Is(out.Failure, ErrAllCandidatesDegradedInForward), ShouldBeTrue)
		})

		Convey("A rejected forward match is not adopted", func() {
			out := AfterForward(s, judgement(stat("BREAKOUT", model.SideLong, model.DecisionReject, 12)))
			So(out.Kind, ShouldEqual, StateFailed)
		})

		Convey("A missing forward match is not adopted", func() {
			out := AfterForward(s, judgement(stat("BREAKOUT", model.SideShort, model.DecisionAdoptCandidate, 12)))
			So(out.Kind, ShouldEqual, StateFailed)
			So(out.Failure.Phase, ShouldEqual, "forward")
		})
	})

	Convey("Retains is inclusive at the ratio", t, func() {
		So(Retains(10, 7), ShouldBeTrue)
		So(Retains(10, 6.999), ShouldBeFalse)
		So(Retains(10, 6.9999999995), ShouldBeFalse)
		So(Retains(-10, -7), ShouldBeTrue)
		So(Retains(0.3, 0.21), ShouldBeTrue)
		So(Retains(10, 50), ShouldBeTrue)
	})
}
