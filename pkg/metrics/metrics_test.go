package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func value(c prometheus.Metric) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return -1
	}
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors use the configured namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.batchesCommitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_batches_committed_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When invalid option values are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "wrestlerank")
				So(manager.histogramBuckets, ShouldResemble, defaultBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When builder metrics are recorded", func() {
			before := value(globalManager.matchesProcessed.WithLabelValues("157"))
			RecordMatchesProcessed("157", 3)
			RecordMatchSkipped("malformed")
			RecordBatchCommitted()
			RecordBatchFailed()
			RecordGraphRepair("157")
			UpdateGraphEdges("157", "direct", 12)
			RecordBuildDuration(4.2)

			Convey("Then counters move", func() {
				So(value(globalManager.matchesProcessed.WithLabelValues("157"))-before, ShouldEqual, 3)
				So(value(globalManager.graphEdges.WithLabelValues("157", "direct")), ShouldEqual, 12)
			})
		})

		Convey("When optimizer and worker metrics are recorded", func() {
			So(func() {
				UpdateStageCost("157", "anneal", 2.5)
				RecordStageDuration("anneal", 120)
				RecordPageRankNonConvergence()
				RecordAnnealUphillAccepts(7)
				RecordRankingPublished()
				RecordScoresComputed("157", 33)
				RecordLockWait("local", 0.3)
				RecordLockContention("redis")
				UpdateQueueSize(2)
				UpdateQueueCapacity(64)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordJobCoalesced()
				UpdateWorkerActive(1)
				UpdateWorkerActive(-1)
				RecordJobProcessed("ok", 1500)
				RecordErrorByComponent("graph", "batch_commit")
			}, ShouldNotPanic)
		})

		Convey("When the registry is gathered", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it exposes wrestlerank metrics", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "wrestlerank_pipeline_"), ShouldBeTrue)
				}
			})
		})
	})
}
