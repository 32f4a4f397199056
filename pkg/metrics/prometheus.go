// Package metrics provides Prometheus metrics for the clockread scoring engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	OutcomeMatched         = "matched"
	OutcomeNoResponse      = "no_response"
	OutcomeBeyondRecording = "beyond_recording"
	OutcomeLatencyExceeded = "latency_exceeded"

	TranscriptionUnintelligible = "unintelligible"
	TranscriptionError          = "error"
	TranscriptionClipError      = "clip_error"
)

// Manager owns every collector exported by the engine.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	reactionBuckets []float64
	registry        prometheus.Registerer

	// Session metrics
	sessionsScored    prometheus.Counter
	sessionFailures   *prometheus.CounterVec
	duplicateSessions prometheus.Counter
	responseEvents    prometheus.Histogram
	stimuliProcessed  prometheus.Counter

	// Matching metrics
	matchOutcomes  *prometheus.CounterVec
	echoRejections prometheus.Counter
	reactionTime   prometheus.Histogram

	// Classification metrics
	accuracyOutcomes      *prometheus.CounterVec
	transcriptionLatency  prometheus.Histogram
	transcriptionFailures *prometheus.CounterVec
	transcriptionRetries  prometheus.Counter

	// Queue and worker metrics
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Serve mode metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	storedSessions      prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "clockread",
		subsystem:       "engine",
		latencyBuckets:  []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		reactionBuckets: []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 4, 5, 7},
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place to declare every collector
	auto := promauto.With(m.registry)

	m.sessionsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_scored_total",
		Help:      "Total number of sessions that produced a record set",
	})
	m.sessionFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_failures_total",
		Help:      "Sessions aborted before matching, by reason",
	}, []string{"reason"})
	m.duplicateSessions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_sessions_total",
		Help:      "Session submissions rejected as already seen",
	})
	m.responseEvents = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "response_events_per_session",
		Help:      "Number of candidate response events detected per session",
		Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120, 180},
	})
	m.stimuliProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stimuli_processed_total",
		Help:      "Total number of stimuli that received a record",
	})

	m.matchOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_outcomes_total",
		Help:      "Per-stimulus matching outcomes",
	}, []string{"outcome"})
	m.echoRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "echo_rejections_total",
		Help:      "Response events skipped as the tail of a previous answer",
	})
	m.reactionTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reaction_time_seconds",
		Help:      "Reaction time of matched stimuli",
		Buckets:   m.reactionBuckets,
	})

	m.accuracyOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accuracy_outcomes_total",
		Help:      "Classified accuracy per stimulus",
	}, []string{"accuracy"})
	m.transcriptionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transcription_latency_milliseconds",
		Help:      "Latency of transcription collaborator calls",
		Buckets:   m.latencyBuckets,
	})
	m.transcriptionFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transcription_failures_total",
		Help:      "Transcriptions that produced no usable token, by kind",
	}, []string{"kind"})
	m.transcriptionRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "transcription_retries_total",
		Help:      "Retried transcription requests",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_queue_size",
		Help:      "Classification jobs waiting in the queue",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_queue_capacity",
		Help:      "Capacity of the classification queue",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_queue_enqueue_errors_total",
		Help:      "Classification jobs rejected by the queue",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_workers",
		Help:      "Number of classification workers",
	})
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_job_latency_milliseconds",
		Help:      "Time spent by a worker on one classification job",
		Buckets:   m.latencyBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.storedSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stored_sessions",
		Help:      "Sessions held by the result store",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})
}

// RecordSessionScored increments the scored sessions counter.
func RecordSessionScored() { globalManager.sessionsScored.Inc() }

// RecordSessionFailure counts a session aborted before matching.
func RecordSessionFailure(reason string) {
	globalManager.sessionFailures.WithLabelValues(reason).Inc()
}

// RecordDuplicateSession counts a session id submitted twice.
func RecordDuplicateSession() { globalManager.duplicateSessions.Inc() }

// RecordResponseEvents observes how many response events a session produced.
func RecordResponseEvents(n int) { globalManager.responseEvents.Observe(float64(n)) }

// RecordStimuliProcessed adds n processed stimuli.
func RecordStimuliProcessed(n int) { globalManager.stimuliProcessed.Add(float64(n)) }

// RecordMatchOutcome counts a per-stimulus matching outcome.
func RecordMatchOutcome(outcome string) {
	globalManager.matchOutcomes.WithLabelValues(outcome).Inc()
}

// RecordEchoRejections adds n skipped tail-bleed candidates.
func RecordEchoRejections(n int) {
	if n > 0 {
		globalManager.echoRejections.Add(float64(n))
	}
}

// RecordReactionTime observes a reaction time in seconds.
func RecordReactionTime(seconds float64) { globalManager.reactionTime.Observe(seconds) }

// RecordAccuracy counts a classified accuracy value (TRUE, FALSE, N/A).
func RecordAccuracy(accuracy string) {
	globalManager.accuracyOutcomes.WithLabelValues(accuracy).Inc()
}

// RecordTranscriptionLatency records a transcription call in milliseconds.
func RecordTranscriptionLatency(latencyMs float64) {
	globalManager.transcriptionLatency.Observe(latencyMs)
}

// RecordTranscriptionFailure counts a failed transcription by kind.
func RecordTranscriptionFailure(kind string) {
	globalManager.transcriptionFailures.WithLabelValues(kind).Inc()
}

// RecordTranscriptionRetry counts a retried transcription request.
func RecordTranscriptionRetry() { globalManager.transcriptionRetries.Inc() }

// UpdateQueueSize sets the number of queued classification jobs.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the classification queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueueError counts a rejected classification job.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the number of classification workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records one job's processing time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateStoredSessions sets the number of stored sessions.
func UpdateStoredSessions(count int) { globalManager.storedSessions.Set(float64(count)) }

// RecordErrorByComponent counts an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
