// Package metrics provides Prometheus metrics for the Vivaran site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the site.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// Accounts and sessions
	authAttempts   *prometheus.CounterVec
	activeSessions prometheus.Gauge

	// Startup profiles and matching
	profileSubmissions *prometheus.CounterVec
	matchComputations  prometheus.Counter
	matchResultSize    prometheus.Histogram

	// Realtime database
	recordOps           *prometheus.CounterVec
	recordLatency       *prometheus.HistogramVec
	snapshotDeliveries  prometheus.Counter
	subscribers         prometheus.Gauge
	changeQueueSize     prometheus.Gauge
	changeQueueCapacity prometheus.Gauge
	recordsStored       *prometheus.GaugeVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vivaran",
		subsystem:        "site",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and error type", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and error type", "component", "error_type")

	m.authAttempts = m.counterVec("auth_attempts_total",
		"Registration, login and logout attempts by outcome", "operation", "outcome")
	m.activeSessions = m.gauge("active_sessions", "Browser sessions currently tracked")

	m.profileSubmissions = m.counterVec("profile_submissions_total",
		"Startup profile submissions by outcome", "outcome")
	m.matchComputations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_computations_total",
		Help:      "Number of investor match recomputations",
	})
	m.matchResultSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_result_size",
		Help:      "Number of investors matched per recomputation",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	m.recordOps = m.counterVec("record_operations_total",
		"Realtime database operations by kind and outcome", "operation", "outcome")
	m.recordLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "record_latency_milliseconds",
		Help:      "Realtime database operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})
	m.snapshotDeliveries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_deliveries_total",
		Help:      "Collection snapshots delivered to subscribers",
	})
	m.subscribers = m.gauge("subscribers", "Active collection subscribers")
	m.changeQueueSize = m.gauge("change_queue_size", "Pending change notifications")
	m.changeQueueCapacity = m.gauge("change_queue_capacity", "Capacity of the change notification queue")
	m.recordsStored = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_stored",
		Help:      "Records persisted per collection",
	}, []string{"collection"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error raised by an internal component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordAuthAttempt records a register/login/logout attempt.
func RecordAuthAttempt(operation, outcome string) {
	globalManager.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// UpdateActiveSessions sets the number of tracked browser sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordProfileSubmission records the outcome of a profile submission.
func RecordProfileSubmission(outcome string) {
	globalManager.profileSubmissions.WithLabelValues(outcome).Inc()
}

// RecordMatchComputation records one match recomputation and its result size.
func RecordMatchComputation(matched int) {
	globalManager.matchComputations.Inc()
	globalManager.matchResultSize.Observe(float64(matched))
}

// RecordRecordOperation records a realtime database operation.
func RecordRecordOperation(operation, outcome string, latencyMs float64) {
	globalManager.recordOps.WithLabelValues(operation, outcome).Inc()
	globalManager.recordLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordSnapshotDelivery increments the snapshot delivery counter.
func RecordSnapshotDelivery() {
	globalManager.snapshotDeliveries.Inc()
}

// UpdateSubscribers sets the number of active collection subscribers.
func UpdateSubscribers(count int) {
	globalManager.subscribers.Set(float64(count))
}

// UpdateChangeQueueSize sets the number of pending change notifications.
func UpdateChangeQueueSize(size int) {
	globalManager.changeQueueSize.Set(float64(size))
}

// UpdateChangeQueueCapacity sets the change queue capacity.
func UpdateChangeQueueCapacity(capacity int) {
	globalManager.changeQueueCapacity.Set(float64(capacity))
}

// UpdateRecordsStored sets the number of records persisted in a collection.
func UpdateRecordsStored(collection string, count int) {
	globalManager.recordsStored.WithLabelValues(collection).Set(float64(count))
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
