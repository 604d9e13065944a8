package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts cache outcomes. Counters are labelled by cache key.
type Metrics struct {
	CounterHits        *prometheus.CounterVec
	CounterMisses      *prometheus.CounterVec
	CounterStaleServes *prometheus.CounterVec
	CounterFailures    *prometheus.CounterVec

	HistComputeDuration prometheus.Histogram
}

// NewMetrics registers the cache metrics on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CounterHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Requests served from a fresh cache entry",
		}, []string{"key"}),
		CounterMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Requests that triggered or joined a recomputation",
		}, []string{"key"}),
		CounterStaleServes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stale_serves_total",
			Help:      "Requests answered with a prior entry after a failed recomputation",
		}, []string{"key"}),
		CounterFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "compute_failures_total",
			Help:      "Failed recomputations",
		}, []string{"key"}),
		HistComputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "compute_duration_seconds",
			Help:      "Duration of cache recomputations",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}
