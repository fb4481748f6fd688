package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.eventsLabeled.Add(3)

			Convey("Then collectors carry the namespace and labels", func() {
				expected := `
# HELP test_unit_events_labeled_total Candidate events labeled
# TYPE test_unit_events_labeled_total counter
test_unit_events_labeled_total{env="test"} 3
`
				So(testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_unit_events_labeled_total"), ShouldBeNil)
			})
		})

		Convey("When registering the same manager twice", func() {
			_ = NewManager(WithPrometheusRegistry(registry))

			Convey("Then registration panics on duplicate collectors", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Labeling counters accumulate", func() {
			before := testutil.ToFloat64(globalManager.eventsLabeled)
			RecordEventsLabeled(5)
			RecordInvalidLabel()
			RecordMakerFill()
			So(testutil.ToFloat64(globalManager.eventsLabeled), ShouldEqual, before+5)
			So(testutil.ToFloat64(globalManager.invalidLabels), ShouldBeGreaterThanOrEqualTo, 1)
			So(testutil.ToFloat64(globalManager.makerFills), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("Partition and queue metrics are recorded by status", func() {
			RecordPartition("ok")
			RecordPartition("failed")
			RecordPartitionLatency(3)
			UpdateWorkerActiveCount(4)
			UpdateQueueSize(2)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			So(testutil.ToFloat64(globalManager.partitions.WithLabelValues("failed")), ShouldBeGreaterThanOrEqualTo, 1)
			So(testutil.ToFloat64(globalManager.workerActive), ShouldEqual, 4)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 2)
		})

		Convey("Phase and verdict metrics are labeled", func() {
			RecordPhase("train", "ok")
			RecordPhaseDuration("train", 12)
			UpdateCandidates("forward", 2)
			RecordVerdict("adopted")
			So(testutil.ToFloat64(globalManager.phases.WithLabelValues("train", "ok")), ShouldBeGreaterThanOrEqualTo, 1)
			So(testutil.ToFloat64(globalManager.candidates.WithLabelValues("forward")), ShouldEqual, 2)
			So(testutil.ToFloat64(globalManager.verdicts.WithLabelValues("adopted")), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("HTTP and error metrics do not panic", func() {
			So(func() {
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1.5)
				RecordErrorByComponent("phase", "judge_failed")
			}, ShouldNotPanic)
		})

		Convey("The registry exposes fillcheck metrics", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "fillcheck_events_labeled_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
