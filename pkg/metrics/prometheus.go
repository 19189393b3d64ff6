// Package metrics provides Prometheus metrics for the affinity service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the affinity service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Core business metrics
	profilesBuilt         prometheus.Counter
	profileAssets         prometheus.Histogram
	profileTags           prometheus.Histogram
	insufficientData      prometheus.Counter
	candidatesScored      prometheus.Counter
	recommendationsServed prometheus.Counter
	recommendLatency      prometheus.Histogram
	topScore              prometheus.Histogram

	// Collaborator metrics
	sourceLatency    *prometheus.HistogramVec
	sourceErrors     *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	profileCacheHits prometheus.Counter
	profileCacheMiss prometheus.Counter
	profileCacheSize prometheus.Gauge

	// Job pipeline metrics
	jobsSubmitted    prometheus.Counter
	jobsCompleted    *prometheus.CounterVec
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueueErrs *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	errorRateByType     *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager from opts on a fresh registry. Call it
// once at startup, before anything records or serves metrics.
func Init(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "affinity",
		subsystem:        "recommender",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	sizeBuckets := prometheus.ExponentialBuckets(1, 2, 12)
	latencyBuckets := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	m.profilesBuilt = m.counter("profiles_built_total", "Total number of holder profiles built")
	m.profileAssets = m.histogram("profile_assets", "Owned assets per built profile", sizeBuckets)
	m.profileTags = m.histogram("profile_distinct_tags", "Distinct tags per built profile", sizeBuckets)
	m.insufficientData = m.counter("insufficient_data_total", "Recommendation requests refused because the holder owns no assets")
	m.candidatesScored = m.counter("candidates_scored_total", "Total number of candidates scored")
	m.recommendationsServed = m.counter("recommendations_served_total", "Total number of ranked recommendations returned")
	m.recommendLatency = m.histogram("recommend_latency_milliseconds", "End-to-end recommendation latency in milliseconds", latencyBuckets)
	m.topScore = m.histogram("top_score", "Score of the best candidate per recommendation", prometheus.LinearBuckets(0, 25, 12))

	m.sourceLatency = m.histogramVec("source_latency_milliseconds", "Latency of external data source calls in milliseconds", latencyBuckets, "source", "operation")
	m.sourceErrors = m.counterVec("source_errors_total", "Errors returned by external data sources", "source", "operation")
	m.breakerState = m.gaugeVec("breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)", "name")
	m.profileCacheHits = m.counter("profile_cache_hits_total", "Profile cache hits")
	m.profileCacheMiss = m.counter("profile_cache_misses_total", "Profile cache misses")
	m.profileCacheSize = m.gauge("profile_cache_entries", "Profiles currently cached")

	m.jobsSubmitted = m.counter("jobs_submitted_total", "Recommendation jobs accepted")
	m.jobsCompleted = m.counterVec("jobs_completed_total", "Recommendation jobs finished, by outcome", "status")
	m.queueSize = m.gauge("job_queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("job_queue_capacity", "Maximum job queue capacity")
	m.queueEnqueueErrs = m.counterVec("job_queue_enqueue_errors_total", "Jobs rejected by the queue", "reason")
	m.workerCount = m.gauge("worker_count", "Number of job workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job in milliseconds", latencyBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordProfileBuilt records one built profile and its size.
func RecordProfileBuilt(assets, distinctTags int) {
	globalManager.profilesBuilt.Inc()
	globalManager.profileAssets.Observe(float64(assets))
	globalManager.profileTags.Observe(float64(distinctTags))
}

// RecordInsufficientData counts a request refused for an empty holder.
func RecordInsufficientData() {
	globalManager.insufficientData.Inc()
}

// RecordCandidatesScored adds n scored candidates.
func RecordCandidatesScored(n int) {
	globalManager.candidatesScored.Add(float64(n))
}

// RecordRecommendations records a served ranking.
func RecordRecommendations(count int, topScore float64, latencyMs float64) {
	globalManager.recommendationsServed.Add(float64(count))
	globalManager.recommendLatency.Observe(latencyMs)
	if count > 0 {
		globalManager.topScore.Observe(topScore)
	}
}

// RecordSourceLatency records the latency of a data source call.
func RecordSourceLatency(source, operation string, latencyMs float64) {
	globalManager.sourceLatency.WithLabelValues(source, operation).Observe(latencyMs)
}

// RecordSourceError counts a failed data source call.
func RecordSourceError(source, operation string) {
	globalManager.sourceErrors.WithLabelValues(source, operation).Inc()
}

// UpdateBreakerState sets the circuit breaker state gauge.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordProfileCacheHit counts a profile cache hit.
func RecordProfileCacheHit() {
	globalManager.profileCacheHits.Inc()
}

// RecordProfileCacheMiss counts a profile cache miss.
func RecordProfileCacheMiss() {
	globalManager.profileCacheMiss.Inc()
}

// UpdateProfileCacheSize sets the number of cached profiles.
func UpdateProfileCacheSize(size int) {
	globalManager.profileCacheSize.Set(float64(size))
}

// RecordJobSubmitted counts an accepted job.
func RecordJobSubmitted() {
	globalManager.jobsSubmitted.Inc()
}

// RecordJobCompleted counts a finished job by status.
func RecordJobCompleted(status string) {
	globalManager.jobsCompleted.WithLabelValues(status).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrs.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
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

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
