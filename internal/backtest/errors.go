package backtest

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrInvalidConfig    = errors.New("invalid backtest configuration")
	ErrInsufficientData = errors.New("insufficient evaluation data")
	ErrUnknownMetric    = errors.New("unknown objective metric")
	ErrMetricUnavailable = errors.New("objective metric unavailable for this run")
)

// StrategyError captures a strategy failure on a single fold. The run
// continues past it; callers inspect failures on the result.
type StrategyError struct {
	FoldIndex int
	Strategy  string
	Err       error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %q failed on fold %d: %v", e.Strategy, e.FoldIndex, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}
