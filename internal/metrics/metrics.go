// Package metrics provides centralized Prometheus metrics registry for the lotto engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lotto",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by strategy and status",
	}, []string{"strategy", "status"})
	OptimizationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lotto",
		Name:      "optimization_runs_total",
		Help:      "Total number of grid search runs by objective and status",
	}, []string{"objective", "status"})
	FoldFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lotto",
		Name:      "fold_failures_total",
		Help:      "Total number of folds whose strategy invocation failed",
	})
	CombinationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lotto",
		Name:      "combinations_total",
		Help:      "Total number of grid search combinations evaluated by status",
	}, []string{"status"})
)

// Gauge metrics
var (
	BestScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lotto",
		Name:      "best_score",
		Help:      "Best objective score found by the most recent grid search",
	}, []string{"objective"})
	RunAverageHits = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lotto",
		Name:      "run_average_hits",
		Help:      "Average hits per round from the most recent backtest run",
	}, []string{"strategy"})
)

// Histogram metrics
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lotto",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	OptimizationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lotto",
		Name:      "optimization_duration_seconds",
		Help:      "Duration of grid search runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(OptimizationRunsTotal)
		registry.MustRegister(FoldFailuresTotal)
		registry.MustRegister(CombinationsTotal)

		// Register gauge metrics
		registry.MustRegister(BestScore)
		registry.MustRegister(RunAverageHits)

		// Register histogram metrics
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(OptimizationDuration)

		// Register draw sync metrics
		registry.MustRegister(DrawsFetchedTotal)
		registry.MustRegister(SyncFailuresTotal)
		registry.MustRegister(LastSyncedRound)
		registry.MustRegister(FetchLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordBacktestRun records a backtest run event.
// status should be one of: "success", "failure"
func RecordBacktestRun(strategy, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(strategy, status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordOptimizationRun records a grid search run event.
// status should be one of: "success", "failure"
func RecordOptimizationRun(objective, status string, durationSeconds float64) {
	OptimizationRunsTotal.WithLabelValues(objective, status).Inc()
	OptimizationDuration.Observe(durationSeconds)
}

// RecordFoldFailure records a failed fold evaluation.
func RecordFoldFailure() {
	FoldFailuresTotal.Inc()
}

// RecordCombination records an evaluated grid search combination.
// status should be one of: "success", "failure"
func RecordCombination(status string) {
	CombinationsTotal.WithLabelValues(status).Inc()
}

// UpdateBestScore updates the best objective score gauge.
func UpdateBestScore(objective string, score float64) {
	BestScore.WithLabelValues(objective).Set(score)
}

// UpdateRunAverageHits updates the average hits gauge for a strategy.
func UpdateRunAverageHits(strategy string, averageHits float64) {
	RunAverageHits.WithLabelValues(strategy).Set(averageHits)
}
