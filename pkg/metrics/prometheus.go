// Package metrics provides Prometheus metrics for the quizrec
// recommendation service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "quizrec"
)

// defaultDurationBuckets covers millisecond latencies from fast lookups
// to full model fits.
var defaultDurationBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Dataset metrics
	datasetPlayers      prometheus.Gauge
	datasetQuestions    prometheus.Gauge
	datasetObservations prometheus.Gauge
	ingestBatches       prometheus.Counter
	ingestInteractions  prometheus.Counter

	// Pipeline timings
	matrixRebuildDuration   prometheus.Histogram
	engineFitDuration       prometheus.Histogram
	enginePartialDuration   prometheus.Histogram
	engineRecommendDuration prometheus.Histogram

	// Failure counters
	engineErrors   prometheus.Counter
	notFoundErrors prometheus.Counter
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithRegistry sets the Prometheus registry collectors register with.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithDurationBuckets overrides the default histogram buckets (ms).
func WithDurationBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: defaultNamespace,
		buckets:   defaultDurationBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Name: name, Help: help})
		m.registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Name: name, Help: help})
		m.registry.MustRegister(g)
		return g
	}
	histogram := func(name, help string) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Name: name, Help: help, Buckets: m.buckets,
		})
		m.registry.MustRegister(h)
		return h
	}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status code.",
	}, []string{"endpoint", "method", "status"})
	m.registry.MustRegister(m.httpRequests)

	m.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.buckets,
	}, []string{"endpoint", "method"})
	m.registry.MustRegister(m.httpRequestDuration)

	m.datasetPlayers = gauge("dataset_players", "Registered players.")
	m.datasetQuestions = gauge("dataset_questions", "Registered questions.")
	m.datasetObservations = gauge("dataset_observations", "Recorded interaction events.")
	m.ingestBatches = factory("ingest_batches_total", "Incremental ingest batches accepted.")
	m.ingestInteractions = factory("ingest_interactions_total", "Interactions appended by incremental ingest.")

	m.matrixRebuildDuration = histogram("matrix_rebuild_duration_ms", "Sparse matrix rebuild duration.")
	m.engineFitDuration = histogram("engine_fit_duration_ms", "Full model fit duration.")
	m.enginePartialDuration = histogram("engine_partial_fit_duration_ms", "Incremental refit duration.")
	m.engineRecommendDuration = histogram("engine_recommend_duration_ms", "Model query duration.")

	m.engineErrors = factory("engine_errors_total", "Factorization engine failures.")
	m.notFoundErrors = factory("not_found_total", "Lookups of unregistered identifiers.")

	return m
}

// Registry returns the registry holding this Manager's collectors.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

var (
	defaultManager *Manager
	defaultOnce    sync.Once
)

// Default returns the process-wide Manager, creating it on first use.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// GetRegistry returns the default Manager's registry for serving /metrics.
func GetRegistry() *prometheus.Registry {
	return Default().Registry()
}

// Package-level helpers delegating to the default Manager.

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	Default().httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration in ms.
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	Default().httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

// UpdateDatasetSizes publishes the current aggregate dimensions.
func UpdateDatasetSizes(players, questions, observations int) {
	m := Default()
	m.datasetPlayers.Set(float64(players))
	m.datasetQuestions.Set(float64(questions))
	m.datasetObservations.Set(float64(observations))
}

// RecordIngestBatch counts one accepted ingest batch of n interactions.
func RecordIngestBatch(n int) {
	m := Default()
	m.ingestBatches.Inc()
	m.ingestInteractions.Add(float64(n))
}

// RecordMatrixRebuildDuration observes one matrix rebuild in ms.
func RecordMatrixRebuildDuration(ms float64) {
	Default().matrixRebuildDuration.Observe(ms)
}

// RecordEngineFitDuration observes one full fit in ms.
func RecordEngineFitDuration(ms float64) {
	Default().engineFitDuration.Observe(ms)
}

// RecordEnginePartialFitDuration observes one incremental refit in ms.
func RecordEnginePartialFitDuration(ms float64) {
	Default().enginePartialDuration.Observe(ms)
}

// RecordEngineRecommendDuration observes one model query in ms.
func RecordEngineRecommendDuration(ms float64) {
	Default().engineRecommendDuration.Observe(ms)
}

// RecordEngineError counts one engine failure.
func RecordEngineError() {
	Default().engineErrors.Inc()
}

// RecordNotFound counts one unknown-identifier lookup.
func RecordNotFound() {
	Default().notFoundErrors.Inc()
}
