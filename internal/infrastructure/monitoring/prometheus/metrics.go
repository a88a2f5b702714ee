// Package prometheus registers and serves the engine's metrics: evaluation
// throughput and latency, cache effectiveness, market-position distribution
// and the HTTP request surface.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// durationBuckets cover the expected evaluation and request latencies.
var durationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// comparableBuckets cover the candidate-set sizes.
var comparableBuckets = []float64{0, 1, 2, 3, 5, 10, 20, 50}

// EngineMetrics holds all engine metrics.  It satisfies the valuation
// service's Metrics hook.
type EngineMetrics struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	comparableCount    prometheus.Histogram
	positionsTotal     *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewEngineMetrics registers all metrics on a fresh registry.
func NewEngineMetrics() *EngineMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &EngineMetrics{
		registry: registry,
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comparables_evaluations_total",
			Help: "Completed evaluations by cache outcome.",
		}, []string{"cache"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "comparables_evaluation_duration_seconds",
			Help:    "Wall time of one evaluation.",
			Buckets: durationBuckets,
		}),
		comparableCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "comparables_candidate_count",
			Help:    "Comparables retrieved per evaluation.",
			Buckets: comparableBuckets,
		}),
		positionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comparables_positions_total",
			Help: "Market-position outcomes of fresh evaluations.",
		}, []string{"position"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comparables_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comparables_http_request_duration_seconds",
			Help:    "HTTP request duration by method and route.",
			Buckets: durationBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.comparableCount,
		m.positionsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// ObserveEvaluation records one completed evaluation.
func (m *EngineMetrics) ObserveEvaluation(duration time.Duration, comparables int, cacheHit bool) {
	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
	m.comparableCount.Observe(float64(comparables))
}

// ObservePosition records the market-position label of a fresh evaluation.
func (m *EngineMetrics) ObservePosition(position string) {
	m.positionsTotal.WithLabelValues(position).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func (m *EngineMetrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the metrics endpoint for this registry.
func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
