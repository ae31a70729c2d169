// Package metrics provides Prometheus metrics for profile evidence collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the profile collector metrics.
type Metrics struct {
	// Fetch attempts by outcome ("success" or an error category)
	FetchAttempts *prometheus.CounterVec

	// Per-attempt HTTP latency
	FetchDuration prometheus.Histogram

	// Final result per URL: success or error
	FetchResults *prometheus.CounterVec

	// Evidence cache lookups
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Time spent blocked on the shared courtesy limiter
	LimiterWait prometheus.Histogram
}

// New registers the collector metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		FetchAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualifier_profile_fetch_attempts_total",
			Help: "Profile fetch attempts by outcome",
		}, []string{"outcome"}),

		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qualifier_profile_fetch_duration_seconds",
			Help:    "Duration of a single profile fetch attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		FetchResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qualifier_profile_fetch_results_total",
			Help: "Final profile fetch results after retries",
		}, []string{"result"}),

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "qualifier_profile_cache_hits_total",
			Help: "Profile evidence served from cache",
		}),

		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "qualifier_profile_cache_misses_total",
			Help: "Profile evidence cache misses",
		}),

		LimiterWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qualifier_profile_limiter_wait_seconds",
			Help:    "Time a fetch waited on the shared courtesy limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		}),
	}
}

// ObserveAttempt records one fetch attempt.
func (m *Metrics) ObserveAttempt(outcome string, d time.Duration) {
	if m != nil {
		m.FetchAttempts.WithLabelValues(outcome).Inc()
		m.FetchDuration.Observe(d.Seconds())
	}
}

// IncrementResult records the final result for a URL.
func (m *Metrics) IncrementResult(result string) {
	if m != nil {
		m.FetchResults.WithLabelValues(result).Inc()
	}
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// ObserveLimiterWait records time spent waiting for the courtesy limiter.
func (m *Metrics) ObserveLimiterWait(d time.Duration) {
	if m != nil {
		m.LimiterWait.Observe(d.Seconds())
	}
}
