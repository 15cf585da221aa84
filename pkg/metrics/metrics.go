// Package metrics provides Prometheus metrics for the query engine:
// rows scanned per source format, collect latency, and scan cache
// hit/miss counts. Registration happens at package init via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsScanned counts rows decoded from scan sources, labeled by format.
	RowsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quasar",
			Name:      "rows_scanned_total",
			Help:      "Total rows decoded from scan sources",
		},
		[]string{"format"},
	)

	// CollectsTotal counts lazy plan materializations by outcome.
	CollectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quasar",
			Name:      "collects_total",
			Help:      "Total lazy plan materializations",
		},
		[]string{"outcome"},
	)

	// CollectDuration observes end-to-end collect latency in seconds.
	CollectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "quasar",
			Name:      "collect_duration_seconds",
			Help:      "Latency of lazy plan materialization",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
	)

	// ScanCacheHits counts scan cache hits.
	ScanCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quasar",
			Name:      "scan_cache_hits_total",
			Help:      "Scan cache lookups served from memory",
		},
	)

	// ScanCacheMisses counts scan cache misses.
	ScanCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "quasar",
			Name:      "scan_cache_misses_total",
			Help:      "Scan cache lookups that required a decode",
		},
	)
)

// Timer measures the duration of a single operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since the timer started.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveCollect records one collect outcome and its latency.
func ObserveCollect(outcome string, d time.Duration) {
	CollectsTotal.WithLabelValues(outcome).Inc()
	CollectDuration.Observe(d.Seconds())
}
