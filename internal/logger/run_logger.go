// Package logger provides backtest run logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// RunLogger provides dedicated logging for backtest and optimization runs.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a new run logger.
func NewRunLogger(baseLogger *logrus.Logger) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogRunStarted logs the start of a walk-forward run.
func (rl *RunLogger) LogRunStarted(runID, strategyName string, rounds, folds int) {
	rl.WithFields(logrus.Fields{
		"run_id":   runID,
		"strategy": strategyName,
		"rounds":   rounds,
		"folds":    folds,
	}).Info("Backtest run started")
}

// LogRunCompleted logs the outcome of a walk-forward run.
func (rl *RunLogger) LogRunCompleted(runID string, records, failures int, averageHits float64, durationMs float64) {
	rl.WithFields(logrus.Fields{
		"run_id":       runID,
		"records":      records,
		"failures":     failures,
		"average_hits": averageHits,
		"duration_ms":  durationMs,
	}).Info("Backtest run completed")
}

// LogFoldFailure logs a fold whose strategy invocation failed.
func (rl *RunLogger) LogFoldFailure(runID string, foldIndex int, reason string) {
	rl.WithFields(logrus.Fields{
		"run_id": runID,
		"fold":   foldIndex,
		"reason": reason,
	}).Warn("Fold evaluation failed")
}

// LogOptimizationStarted logs the start of a grid search sweep.
func (rl *RunLogger) LogOptimizationStarted(runID, objective string, parameters, combinations int) {
	rl.WithFields(logrus.Fields{
		"run_id":       runID,
		"objective":    objective,
		"parameters":   parameters,
		"combinations": combinations,
	}).Info("Grid search started")
}

// LogOptimizationCompleted logs the outcome of a grid search sweep.
func (rl *RunLogger) LogOptimizationCompleted(runID string, evaluated, failures int, bestScore float64, bestHash string, durationMs float64) {
	rl.WithFields(logrus.Fields{
		"run_id":      runID,
		"evaluated":   evaluated,
		"failures":    failures,
		"best_score":  bestScore,
		"best_hash":   bestHash,
		"duration_ms": durationMs,
	}).Info("Grid search completed")
}
