// Package metrics provides Prometheus metrics for the wrestlerank pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Millisecond buckets sized for batch jobs rather than request latencies.
var defaultBuckets = []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000} //nolint:gochecknoglobals

// Manager owns every collector of the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Graph builder
	matchesProcessed *prometheus.CounterVec
	matchesSkipped   *prometheus.CounterVec
	batchesCommitted prometheus.Counter
	batchesFailed    prometheus.Counter
	graphRepairs     *prometheus.CounterVec
	graphEdges       *prometheus.GaugeVec
	buildDuration    prometheus.Histogram

	// Optimizer
	stageCost           *prometheus.GaugeVec
	stageDuration       *prometheus.HistogramVec
	pagerankNonConverge prometheus.Counter
	annealUphillAccepts prometheus.Counter
	rankingsPublished   prometheus.Counter

	// Power scores
	scoresComputed *prometheus.CounterVec

	// Locks
	lockWait       *prometheus.HistogramVec
	lockContention *prometheus.CounterVec

	// Job queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	jobsCoalesced      prometheus.Counter
	workerActive       prometheus.Gauge
	jobsProcessed      *prometheus.CounterVec
	jobLatency         prometheus.Histogram

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Collectors are registered on the
// configured registry immediately.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wrestlerank",
		subsystem:        "pipeline",
		histogramBuckets: defaultBuckets,
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
		Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen
	auto := promauto.With(m.registry)

	m.matchesProcessed = auto.NewCounterVec(m.counter("matches_processed_total",
		"Matches consumed by the relationship builder"), []string{"weight_class"})
	m.matchesSkipped = auto.NewCounterVec(m.counter("matches_skipped_total",
		"Matches skipped by the relationship builder, by reason"), []string{"reason"})
	m.batchesCommitted = auto.NewCounter(m.counter("batches_committed_total",
		"Incremental batches committed atomically"))
	m.batchesFailed = auto.NewCounter(m.counter("batches_failed_total",
		"Incremental batches rolled back"))
	m.graphRepairs = auto.NewCounterVec(m.counter("graph_repairs_total",
		"Repair passes run after an inconsistent graph state was detected"), []string{"weight_class"})
	m.graphEdges = auto.NewGaugeVec(m.gauge("graph_edges",
		"Edges in the last materialized graph"), []string{"weight_class", "kind"})
	m.buildDuration = auto.NewHistogram(m.histogram("build_duration_milliseconds",
		"Relationship build duration in milliseconds"))

	m.stageCost = auto.NewGaugeVec(m.gauge("optimizer_stage_cost",
		"Anomaly cost after each optimizer stage"), []string{"weight_class", "stage"})
	m.stageDuration = auto.NewHistogramVec(m.histogram("optimizer_stage_duration_milliseconds",
		"Optimizer stage duration in milliseconds"), []string{"stage"})
	m.pagerankNonConverge = auto.NewCounter(m.counter("pagerank_nonconvergence_total",
		"Seed rankings that hit the iteration cap"))
	m.annealUphillAccepts = auto.NewCounter(m.counter("anneal_uphill_accepts_total",
		"Cost-increasing swaps accepted by annealing"))
	m.rankingsPublished = auto.NewCounter(m.counter("rankings_published_total",
		"Ranking results written to the ranking store"))

	m.scoresComputed = auto.NewCounterVec(m.counter("power_scores_computed_total",
		"Power scores computed"), []string{"weight_class"})

	m.lockWait = auto.NewHistogramVec(m.histogram("lock_wait_milliseconds",
		"Time spent waiting for a weight class lock"), []string{"backend"})
	m.lockContention = auto.NewCounterVec(m.counter("lock_contention_total",
		"Lock attempts that found the weight class busy"), []string{"backend"})

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Pending jobs in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Job queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total",
		"Jobs rejected because the queue was full or closed"))
	m.jobsCoalesced = auto.NewCounter(m.counter("jobs_coalesced_total",
		"Jobs dropped because the same weight class was already pending"))
	m.workerActive = auto.NewGauge(m.gauge("workers_active", "Workers currently running a job"))
	m.jobsProcessed = auto.NewCounterVec(m.counter("jobs_processed_total",
		"Jobs finished by workers"), []string{"status"})
	m.jobLatency = auto.NewHistogram(m.histogram("job_latency_milliseconds",
		"End-to-end job latency in milliseconds"))

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_total",
		"Errors by component and type"), []string{"component", "error_type"})
}

// Graph builder.

// RecordMatchesProcessed adds n consumed matches for a weight class.
func RecordMatchesProcessed(weightClass string, n int) {
	globalManager.matchesProcessed.WithLabelValues(weightClass).Add(float64(n))
}

// RecordMatchSkipped counts one skipped match.
func RecordMatchSkipped(reason string) {
	globalManager.matchesSkipped.WithLabelValues(reason).Inc()
}

func RecordBatchCommitted() { globalManager.batchesCommitted.Inc() }
func RecordBatchFailed()    { globalManager.batchesFailed.Inc() }

// RecordGraphRepair counts a repair pass for a weight class.
func RecordGraphRepair(weightClass string) {
	globalManager.graphRepairs.WithLabelValues(weightClass).Inc()
}

// UpdateGraphEdges sets the edge gauge for a class and edge kind.
func UpdateGraphEdges(weightClass, kind string, n int) {
	globalManager.graphEdges.WithLabelValues(weightClass, kind).Set(float64(n))
}

func RecordBuildDuration(ms float64) { globalManager.buildDuration.Observe(ms) }

// Optimizer.

// UpdateStageCost records the anomaly cost reached by a stage.
func UpdateStageCost(weightClass, stage string, cost float64) {
	globalManager.stageCost.WithLabelValues(weightClass, stage).Set(cost)
}

// RecordStageDuration observes how long a stage ran.
func RecordStageDuration(stage string, ms float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(ms)
}

func RecordPageRankNonConvergence() { globalManager.pagerankNonConverge.Inc() }

// RecordAnnealUphillAccepts adds n accepted uphill moves.
func RecordAnnealUphillAccepts(n int) {
	globalManager.annealUphillAccepts.Add(float64(n))
}

func RecordRankingPublished() { globalManager.rankingsPublished.Inc() }

// RecordScoresComputed adds n computed power scores.
func RecordScoresComputed(weightClass string, n int) {
	globalManager.scoresComputed.WithLabelValues(weightClass).Add(float64(n))
}

// Locks.

func RecordLockWait(backend string, ms float64) {
	globalManager.lockWait.WithLabelValues(backend).Observe(ms)
}

func RecordLockContention(backend string) {
	globalManager.lockContention.WithLabelValues(backend).Inc()
}

// Queue and workers.

func UpdateQueueSize(size int)         { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }
func RecordQueueEnqueue()              { globalManager.queueEnqueued.Inc() }
func RecordQueueDequeue()              { globalManager.queueDequeued.Inc() }
func RecordQueueEnqueueError()         { globalManager.queueEnqueueErrors.Inc() }
func RecordJobCoalesced()              { globalManager.jobsCoalesced.Inc() }

// UpdateWorkerActive moves the active worker gauge by delta.
func UpdateWorkerActive(delta int) {
	globalManager.workerActive.Add(float64(delta))
}

// RecordJobProcessed counts a finished job with status ok or error.
func RecordJobProcessed(status string, latencyMs float64) {
	globalManager.jobsProcessed.WithLabelValues(status).Inc()
	globalManager.jobLatency.Observe(latencyMs)
}

// RecordErrorByComponent counts an error against the component that raised it.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
