// Package logger provides draw synchronization logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// SyncLogger provides dedicated logging for draw history synchronization.
type SyncLogger struct {
	*logrus.Entry
}

// NewSyncLogger creates a new sync logger.
func NewSyncLogger(baseLogger *logrus.Logger) *SyncLogger {
	return &SyncLogger{
		Entry: baseLogger.WithField("component", "datasource"),
	}
}

// LogSyncStarted logs the start of a synchronization pass.
func (sl *SyncLogger) LogSyncStarted(source string, fromRound int) {
	sl.WithFields(logrus.Fields{
		"source":     source,
		"from_round": fromRound,
	}).Info("Draw sync started")
}

// LogDrawFetched logs a single fetched round.
func (sl *SyncLogger) LogDrawFetched(source string, round int, numbers []int, bonus int) {
	sl.WithFields(logrus.Fields{
		"source":  source,
		"round":   round,
		"numbers": numbers,
		"bonus":   bonus,
	}).Debug("Draw fetched")
}

// LogSyncCompleted logs the outcome of a synchronization pass.
func (sl *SyncLogger) LogSyncCompleted(source string, fetched, lastRound int, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"source":      source,
		"fetched":     fetched,
		"last_round":  lastRound,
		"duration_ms": durationMs,
	}).Info("Draw sync completed")
}

// LogSyncFailure logs a failed synchronization pass.
func (sl *SyncLogger) LogSyncFailure(source string, round int, err error) {
	sl.WithFields(logrus.Fields{
		"source": source,
		"round":  round,
		"error":  err.Error(),
	}).Error("Draw sync failed")
}
