// Package metrics exposes Prometheus instrumentation for the pipeline.
// All collectors are pure observability: nothing in the request path reads
// them back.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the collectors used across the pipeline.
type Metrics struct {
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	CacheErrors     *prometheus.CounterVec
	OracleFallbacks *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Pass a fresh
// registry in tests to avoid duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genedit",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by operation.",
		}, []string{"op"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genedit",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by operation, including key-absent misses.",
		}, []string{"op"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genedit",
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache operations degraded to a miss by an error.",
		}, []string{"op"}),
		OracleFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genedit",
			Subsystem: "oracle",
			Name:      "fallbacks_total",
			Help:      "Oracle calls that degraded to the heuristic scorer.",
		}, []string{"oracle"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "genedit",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genedit",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Pipeline requests by terminal state.",
		}, []string{"state"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheHits, m.CacheMisses, m.CacheErrors,
			m.OracleFallbacks, m.StageDuration, m.Requests,
		)
	}
	return m
}

// Nop returns unregistered collectors. Components accept a nil *Metrics,
// but a Nop instance keeps call sites branch-free in tests.
func Nop() *Metrics {
	return New(nil)
}
