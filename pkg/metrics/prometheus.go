// Package metrics provides Prometheus metrics for the shotchart service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Loader
	datasetLoads       *prometheus.CounterVec
	datasetLoadErrors  *prometheus.CounterVec
	datasetRowsLoaded  prometheus.Histogram
	datasetLoadLatency *prometheus.HistogramVec
	malformedRows      *prometheus.CounterVec

	// Pipeline
	specBuilds       prometheus.Counter
	specBuildLatency prometheus.Histogram
	degenerateSpecs  prometheus.Counter
	derivedGames     prometheus.Histogram

	// Cache
	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheEntries prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Warm-up queue and workers
	warmEnqueued    prometheus.Counter
	warmRejected    *prometheus.CounterVec
	warmQueueSize   prometheus.Gauge
	warmJobs        *prometheus.CounterVec
	warmJobLatency  prometheus.Histogram
	warmWorkersBusy prometheus.Gauge

	// Play driver
	playSessions prometheus.Gauge
	playFrames   prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level helpers

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "shotchart",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.datasetLoads = auto.NewCounterVec(
		m.counterOpts("dataset_loads_total", "Shot tables loaded, by origin"),
		[]string{"origin"},
	)
	m.datasetLoadErrors = auto.NewCounterVec(
		m.counterOpts("dataset_load_errors_total", "Source failures absorbed into an empty table, by origin"),
		[]string{"origin"},
	)
	m.datasetRowsLoaded = auto.NewHistogram(
		m.histogramOpts("dataset_rows_loaded", "Rows per loaded shot table",
			[]float64{0, 5, 100, 1000, 10_000, 50_000, 100_000, 200_000}),
	)
	m.datasetLoadLatency = auto.NewHistogramVec(
		m.histogramOpts("dataset_load_latency_milliseconds", "Shot table load latency in milliseconds", m.histogramBuckets),
		[]string{"origin"},
	)
	m.malformedRows = auto.NewCounterVec(
		m.counterOpts("malformed_rows_total", "Rows excluded from derivation or rendering, by reason"),
		[]string{"reason"},
	)

	m.specBuilds = auto.NewCounter(m.counterOpts("spec_builds_total", "Chart specs built"))
	m.specBuildLatency = auto.NewHistogram(
		m.histogramOpts("spec_build_latency_milliseconds", "End-to-end chart build latency in milliseconds", m.histogramBuckets),
	)
	m.degenerateSpecs = auto.NewCounter(
		m.counterOpts("degenerate_specs_total", "Specs built with the placeholder player"),
	)
	m.derivedGames = auto.NewHistogram(
		m.histogramOpts("derived_games", "Distinct (player, game) pairs numbered per derivation",
			[]float64{0, 1, 10, 100, 1000, 10_000}),
	)

	m.cacheHits = auto.NewCounterVec(m.counterOpts("cache_hits_total", "Spec cache hits"), []string{"backend"})
	m.cacheMisses = auto.NewCounterVec(m.counterOpts("cache_misses_total", "Spec cache misses"), []string{"backend"})
	m.cacheEntries = auto.NewGauge(m.gaugeOpts("cache_entries", "Entries held by the in-memory spec cache"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.warmEnqueued = auto.NewCounter(m.counterOpts("warm_jobs_enqueued_total", "Warm-up jobs accepted by the queue"))
	m.warmRejected = auto.NewCounterVec(
		m.counterOpts("warm_jobs_rejected_total", "Warm-up jobs refused by the queue, by reason"),
		[]string{"reason"},
	)
	m.warmQueueSize = auto.NewGauge(m.gaugeOpts("warm_queue_size", "Warm-up jobs waiting for a worker"))
	m.warmJobs = auto.NewCounterVec(
		m.counterOpts("warm_jobs_total", "Warm-up jobs processed, by status"),
		[]string{"status"},
	)
	m.warmJobLatency = auto.NewHistogram(
		m.histogramOpts("warm_job_latency_milliseconds", "Warm-up job latency in milliseconds", m.histogramBuckets),
	)
	m.warmWorkersBusy = auto.NewGauge(m.gaugeOpts("warm_workers_busy", "Warm-up workers currently building a chart"))

	m.playSessions = auto.NewGauge(m.gaugeOpts("play_sessions", "Open window animation sessions"))
	m.playFrames = auto.NewCounter(m.counterOpts("play_frames_total", "Window frames pushed to animation clients"))

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordDatasetLoad records a completed load from origin.
func RecordDatasetLoad(origin string, rows int, latencyMs float64) {
	globalManager.datasetLoads.WithLabelValues(origin).Inc()
	globalManager.datasetRowsLoaded.Observe(float64(rows))
	globalManager.datasetLoadLatency.WithLabelValues(origin).Observe(latencyMs)
}

// RecordDatasetLoadError records a source failure that was converted into an empty table.
func RecordDatasetLoadError(origin string) {
	globalManager.datasetLoadErrors.WithLabelValues(origin).Inc()
}

// RecordMalformedRows adds n excluded rows for reason.
func RecordMalformedRows(reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.malformedRows.WithLabelValues(reason).Add(float64(n))
}

// RecordSpecBuild records one chart build and its latency.
func RecordSpecBuild(latencyMs float64) {
	globalManager.specBuilds.Inc()
	globalManager.specBuildLatency.Observe(latencyMs)
}

// RecordDegenerateSpec counts a spec that needed the placeholder player.
func RecordDegenerateSpec() {
	globalManager.degenerateSpecs.Inc()
}

// RecordDerivedGames observes how many games a derivation numbered.
func RecordDerivedGames(n int) {
	globalManager.derivedGames.Observe(float64(n))
}

// RecordCacheHit counts a cache hit on backend.
func RecordCacheHit(backend string) {
	globalManager.cacheHits.WithLabelValues(backend).Inc()
}

// RecordCacheMiss counts a cache miss on backend.
func RecordCacheMiss(backend string) {
	globalManager.cacheMisses.WithLabelValues(backend).Inc()
}

// UpdateCacheEntries sets the in-memory cache size.
func UpdateCacheEntries(n int) {
	globalManager.cacheEntries.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordWarmEnqueue counts a job accepted by the warm-up queue and sets its size.
func RecordWarmEnqueue(size int) {
	globalManager.warmEnqueued.Inc()
	globalManager.warmQueueSize.Set(float64(size))
}

// RecordWarmReject counts a job the warm-up queue refused.
func RecordWarmReject(reason string) {
	globalManager.warmRejected.WithLabelValues(reason).Inc()
}

// UpdateWarmQueueSize sets the number of pending warm-up jobs.
func UpdateWarmQueueSize(size int) {
	globalManager.warmQueueSize.Set(float64(size))
}

// RecordWarmJob records a processed warm-up job.
func RecordWarmJob(status string, latencyMs float64) {
	globalManager.warmJobs.WithLabelValues(status).Inc()
	globalManager.warmJobLatency.Observe(latencyMs)
}

// WarmWorkerBusy moves the busy warm-up worker gauge by delta.
func WarmWorkerBusy(delta int) {
	globalManager.warmWorkersBusy.Add(float64(delta))
}

// PlaySessionOpened increments the open animation sessions gauge.
func PlaySessionOpened() { globalManager.playSessions.Inc() }

// PlaySessionClosed decrements the open animation sessions gauge.
func PlaySessionClosed() { globalManager.playSessions.Dec() }

// RecordPlayFrame counts one frame sent to an animation client.
func RecordPlayFrame() { globalManager.playFrames.Inc() }

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
