// Package metrics defines draw synchronization metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Draw sync counter vectors
var (
	DrawsFetchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lotto",
		Name:      "draws_fetched_total",
		Help:      "Total number of draw rounds fetched by source",
	}, []string{"source"})

	SyncFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lotto",
		Name:      "sync_failures_total",
		Help:      "Total number of failed draw sync passes by source",
	}, []string{"source"})
)

// Draw sync gauges
var (
	LastSyncedRound = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lotto",
		Name:      "last_synced_round",
		Help:      "Round number of the most recently stored draw",
	})
)

// Draw sync histograms
var (
	FetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lotto",
		Name:      "fetch_latency_seconds",
		Help:      "Latency of draw fetch requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// RecordDrawFetched records a fetched draw round.
func RecordDrawFetched(source string, latencySeconds float64) {
	DrawsFetchedTotal.WithLabelValues(source).Inc()
	FetchLatency.Observe(latencySeconds)
}

// RecordSyncFailure records a failed sync pass.
func RecordSyncFailure(source string) {
	SyncFailuresTotal.WithLabelValues(source).Inc()
}

// UpdateLastSyncedRound updates the last stored round gauge.
func UpdateLastSyncedRound(round int) {
	LastSyncedRound.Set(float64(round))
}
