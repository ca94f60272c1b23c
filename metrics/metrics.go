// Package metrics provides Prometheus metrics for authorization decisions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the decision service's collectors on a private registry.
type Metrics struct {
	enabled  bool
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
	riskScore        prometheus.Histogram

	cacheHitsTotal *prometheus.CounterVec
	cacheMissTotal *prometheus.CounterVec

	directoryErrorsTotal *prometheus.CounterVec
}

// New creates and registers the metrics. If enabled is false, every method is a no-op.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled, registry: prometheus.NewRegistry()}
	if !enabled {
		return m
	}
	factory := promauto.With(m.registry)

	m.decisionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Total authorization decisions by verdict and reason",
	}, []string{"engine", "verdict", "reason"})

	m.decisionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authz_decision_duration_seconds",
		Help:    "End-to-end decision latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"verdict"})

	m.riskScore = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "authz_risk_score",
		Help:    "Risk scores of scored requests",
		Buckets: []float64{0, 0.1, 0.2, 0.3, 0.5, 0.75, 1, 1.5, 2},
	})

	m.cacheHitsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_cache_hits_total",
		Help: "Total cache hits",
	}, []string{"cache_type"})

	m.cacheMissTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_cache_misses_total",
		Help: "Total cache misses",
	}, []string{"cache_type"})

	m.directoryErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_directory_errors_total",
		Help: "Directory lookups that failed or timed out",
	}, []string{"reason"})

	m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// RecordDecision records one verdict and its latency.
func (m *Metrics) RecordDecision(engine, verdict, reason string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.decisionsTotal.WithLabelValues(engine, verdict, reason).Inc()
	m.decisionDuration.WithLabelValues(verdict).Observe(durationSeconds)
}

// RecordRiskScore records the score of a request that reached the risk engine.
func (m *Metrics) RecordRiskScore(score float64) {
	if !m.enabled {
		return
	}
	m.riskScore.Observe(score)
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit(cacheType string) {
	if !m.enabled {
		return
	}
	m.cacheHitsTotal.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss(cacheType string) {
	if !m.enabled {
		return
	}
	m.cacheMissTotal.WithLabelValues(cacheType).Inc()
}

func (m *Metrics) RecordDirectoryError(reason string) {
	if !m.enabled {
		return
	}
	m.directoryErrorsTotal.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
