package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithReactionBuckets([]float64{0.5, 1}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.latencyBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.reactionBuckets, ShouldResemble, []float64{0.5, 1})
			})

			Convey("And collectors are registered on the registry", func() {
				manager.sessionsScored.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When empty option values are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "clockread")
				So(manager.subsystem, ShouldEqual, "engine")
				So(len(manager.latencyBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording session metrics", func() {
			before := testutil.ToFloat64(globalManager.sessionsScored)
			RecordSessionScored()
			RecordStimuliProcessed(30)
			RecordResponseEvents(28)
			RecordSessionFailure("no_responses")

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.sessionsScored), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.sessionFailures.WithLabelValues("no_responses")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording matching outcomes", func() {
			before := testutil.ToFloat64(globalManager.matchOutcomes.WithLabelValues(OutcomeMatched))
			echoBefore := testutil.ToFloat64(globalManager.echoRejections)
			RecordMatchOutcome(OutcomeMatched)
			RecordEchoRejections(2)
			RecordEchoRejections(0)
			RecordReactionTime(0.8)

			Convey("Then each outcome is counted", func() {
				So(testutil.ToFloat64(globalManager.matchOutcomes.WithLabelValues(OutcomeMatched)), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.echoRejections), ShouldEqual, echoBefore+2)
			})
		})

		Convey("When recording classification and worker metrics", func() {
			So(func() {
				RecordAccuracy("TRUE")
				RecordTranscriptionLatency(120)
				RecordTranscriptionFailure(TranscriptionUnintelligible)
				RecordTranscriptionRetry()
				UpdateQueueSize(3)
				UpdateQueueCapacity(30)
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(15)
				RecordHTTPRequest("sessions", "POST", "201")
				RecordHTTPRequestDuration("sessions", "POST", "201", 3)
				UpdateStoredSessions(1)
				RecordErrorByComponent("classifier", "transcription")
			}, ShouldNotPanic)

			Convey("Then the gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 30)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
			})
		})

		Convey("Then the exported registry is the custom one", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.stimuliProcessed)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordStimuliProcessed(1)
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.stimuliProcessed), ShouldEqual, before+1000)
	})
}
