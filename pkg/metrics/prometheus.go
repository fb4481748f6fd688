// Package metrics provides Prometheus metrics for fillcheck runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector fillcheck exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Labeling
	eventsLabeled prometheus.Counter
	invalidLabels prometheus.Counter
	makerFills    prometheus.Counter

	// Dispatcher
	partitions       *prometheus.CounterVec
	partitionLatency prometheus.Histogram
	workerActive     prometheus.Gauge

	// Partition queue
	queueSize          prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Phases and verdicts
	phases        *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	candidates    *prometheus.GaugeVec
	verdicts      *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

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
		namespace:        "fillcheck",
		histogramBuckets: []float64{0.5, 1, 5, 10, 50, 100, 500, 1000, 5000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsLabeled = auto.NewCounter(m.counter("events_labeled_total", "Candidate events labeled"))
	m.invalidLabels = auto.NewCounter(m.counter("labels_invalid_total", "Labels with a null net P&L"))
	m.makerFills = auto.NewCounter(m.counter("maker_fills_total", "Labels with a simulated maker fill"))

	m.partitions = auto.NewCounterVec(m.counter("partitions_total", "Dispatcher partitions by outcome"), []string{"status"})
	m.partitionLatency = auto.NewHistogram(m.histogram("partition_latency_milliseconds", "Time to label one partition"))
	m.workerActive = auto.NewGauge(m.gauge("worker_active_count", "Dispatcher workers currently running"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Partitions waiting in the queue"))
	m.queueEnqueue = auto.NewCounter(m.counter("queue_enqueue_total", "Partitions enqueued"))
	m.queueDequeue = auto.NewCounter(m.counter("queue_dequeue_total", "Partitions dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Partitions refused by the queue"))

	m.phases = auto.NewCounterVec(m.counter("phases_total", "Phase runs by phase and outcome"), []string{"phase", "status"})
	m.phaseDuration = auto.NewHistogramVec(m.histogram("phase_duration_milliseconds", "Phase run duration"), []string{"phase"})
	m.candidates = auto.NewGaugeVec(m.gauge("candidates", "Surviving candidates after the last run of each phase"), []string{"phase"})
	m.verdicts = auto.NewCounterVec(m.counter("verdicts_total", "Orchestrator verdicts by status"), []string{"status"})

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration"),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"})
}

// RecordEventsLabeled adds n to the labeled events counter.
func RecordEventsLabeled(n int) {
	globalManager.eventsLabeled.Add(float64(n))
}

// RecordInvalidLabel increments the invalid label counter.
func RecordInvalidLabel() {
	globalManager.invalidLabels.Inc()
}

// RecordMakerFill increments the maker fill counter.
func RecordMakerFill() {
	globalManager.makerFills.Inc()
}

// RecordPartition counts a finished partition; status is "ok" or "failed".
func RecordPartition(status string) {
	globalManager.partitions.WithLabelValues(status).Inc()
}

// RecordPartitionLatency records partition labeling time in milliseconds.
func RecordPartitionLatency(latencyMs float64) {
	globalManager.partitionLatency.Observe(latencyMs)
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the refused enqueue counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordPhase counts a phase run.
func RecordPhase(phase, status string) {
	globalManager.phases.WithLabelValues(phase, status).Inc()
}

// RecordPhaseDuration records a phase run duration in milliseconds.
func RecordPhaseDuration(phase string, durationMs float64) {
	globalManager.phaseDuration.WithLabelValues(phase).Observe(durationMs)
}

// UpdateCandidates sets the number of candidates surviving phase.
func UpdateCandidates(phase string, n int) {
	globalManager.candidates.WithLabelValues(phase).Set(float64(n))
}

// RecordVerdict counts an orchestrator verdict.
func RecordVerdict(status string) {
	globalManager.verdicts.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
