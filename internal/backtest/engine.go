package backtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/logger"
	"github.com/chkomi/lotto/internal/models"
	"github.com/chkomi/lotto/internal/strategy"
)

// ProgressFunc receives progress updates as a run advances. When fold or
// combination workers run concurrently it must be safe for concurrent use.
type ProgressFunc func(percent float64, current, total int, detail string)

// ShouldContinueFunc is polled between folds and between optimizer
// combinations; returning false stops the run early without error.
type ShouldContinueFunc func() bool

// Engine orchestrates walk-forward backtest runs.
type Engine struct {
	config         Config
	strategy       strategy.Strategy
	logger         *logrus.Logger
	runLog         *logger.RunLogger
	progress       ProgressFunc
	shouldContinue ShouldContinueFunc
}

// NewEngine creates a backtest engine. The configuration is validated up
// front; a bad configuration never starts a partial run.
func NewEngine(cfg Config, strat strategy.Strategy, baseLogger *logrus.Logger) (*Engine, error) {
	if strat == nil {
		return nil, fmt.Errorf("%w: strategy is required", ErrInvalidConfig)
	}
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config:   cfg,
		strategy: strat,
		logger:   baseLogger,
		runLog:   logger.NewRunLogger(baseLogger),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// SetProgress installs an optional progress callback.
func (e *Engine) SetProgress(fn ProgressFunc) {
	e.progress = fn
}

// SetShouldContinue installs an optional early-stop predicate.
func (e *Engine) SetShouldContinue(fn ShouldContinueFunc) {
	e.shouldContinue = fn
}

// FoldFailure identifies a fold whose evaluation failed.
type FoldFailure struct {
	FoldIndex int    `json:"fold_index"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// RunResult is the full outcome of one walk-forward run. Stats is nil when
// no fold produced records (the insufficient-data condition); Failures
// lists folds whose strategy invocation failed. A run with failures still
// reports statistics over the successful subset.
type RunResult struct {
	RunID     uuid.UUID          `json:"run_id"`
	Strategy  string             `json:"strategy"`
	Config    Config             `json:"config"`
	StartedAt time.Time          `json:"started_at"`
	Elapsed   time.Duration      `json:"elapsed"`
	Folds     []FoldResult       `json:"-"`
	Records   []EvaluationRecord `json:"records"`
	Stats     *Statistics        `json:"statistics"`
	Failures  []FoldFailure      `json:"failures,omitempty"`
}

// Run executes the walk-forward backtest over the sequence. Fold-level
// strategy failures are collected, not fatal. On context cancellation the
// partial result is returned alongside the context error.
func (e *Engine) Run(ctx context.Context, seq *models.Sequence) (*RunResult, error) {
	if seq == nil {
		return nil, fmt.Errorf("%w: sequence is required", ErrInvalidConfig)
	}

	started := time.Now()
	result := &RunResult{
		RunID:     uuid.New(),
		Strategy:  e.strategy.Name(),
		Config:    e.config,
		StartedAt: started.UTC(),
	}
	runID := result.RunID.String()

	log := e.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"strategy": result.Strategy,
	})

	folds, err := GenerateFolds(seq.Len(), e.config.Folds)
	if err != nil {
		return nil, err
	}
	if len(folds) == 0 {
		log.Warn("Sequence too short for any folds")
		result.Elapsed = time.Since(started)
		return result, nil
	}
	e.runLog.LogRunStarted(runID, result.Strategy, seq.Len(), len(folds))

	foldResults, runErr := e.evaluateFolds(ctx, folds, seq)
	for _, fr := range foldResults {
		result.Folds = append(result.Folds, fr)
		if fr.Err != nil {
			e.runLog.LogFoldFailure(runID, fr.Fold.Index, fr.Err.Error())
			result.Failures = append(result.Failures, FoldFailure{
				FoldIndex: fr.Fold.Index,
				Message:   fr.Err.Error(),
				Err:       fr.Err,
			})
			continue
		}
		result.Records = append(result.Records, fr.Records...)
	}

	if len(result.Records) > 0 {
		stats, aggErr := Aggregate(result.Records, e.config.Evaluation)
		if aggErr != nil {
			return nil, aggErr
		}
		result.Stats = stats
	} else {
		log.Warn("No evaluation records produced")
	}

	result.Elapsed = time.Since(started)
	averageHits := 0.0
	if result.Stats != nil {
		averageHits = result.Stats.AverageHits
	}
	e.runLog.LogRunCompleted(runID, len(result.Records), len(result.Failures), averageHits, float64(result.Elapsed.Milliseconds()))

	return result, runErr
}

func (e *Engine) evaluateFolds(ctx context.Context, folds []Fold, seq *models.Sequence) ([]FoldResult, error) {
	if e.config.Workers > 1 {
		return e.evaluateFoldsParallel(ctx, folds, seq)
	}

	results := make([]FoldResult, 0, len(folds))
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if e.shouldContinue != nil && !e.shouldContinue() {
			break
		}
		results = append(results, EvaluateFold(ctx, fold, seq, e.strategy, e.config.Evaluation))
		e.reportProgress(i+1, len(folds), fmt.Sprintf("fold %d/%d", i+1, len(folds)))
	}
	return results, nil
}

// evaluateFoldsParallel fans folds out over a bounded worker pool. Folds
// are independent once generated, so results are simply reassembled in
// fold order.
func (e *Engine) evaluateFoldsParallel(ctx context.Context, folds []Fold, seq *models.Sequence) ([]FoldResult, error) {
	results := make([]FoldResult, len(folds))
	sem := make(chan struct{}, e.config.Workers)
	var wg sync.WaitGroup
	var completed int64

	dispatched := 0
	for i, fold := range folds {
		if ctx.Err() != nil {
			break
		}
		if e.shouldContinue != nil && !e.shouldContinue() {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		dispatched++
		go func(slot int, f Fold) {
			defer wg.Done()
			defer func() { <-sem }()
			results[slot] = EvaluateFold(ctx, f, seq, e.strategy, e.config.Evaluation)
			done := int(atomic.AddInt64(&completed, 1))
			e.reportProgress(done, len(folds), fmt.Sprintf("fold %d/%d", f.Index+1, len(folds)))
		}(i, fold)
	}
	wg.Wait()

	return results[:dispatched], ctx.Err()
}

func (e *Engine) reportProgress(current, total int, detail string) {
	if e.progress == nil || total == 0 {
		return
	}
	e.progress(float64(current)/float64(total)*100, current, total, detail)
}
