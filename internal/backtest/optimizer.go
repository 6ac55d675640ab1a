package backtest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/chkomi/lotto/internal/logger"
)

// Grid maps parameter names to their candidate values. Values keep their
// declared order; names are enumerated in sorted order, so the Cartesian
// product is fully deterministic.
type Grid map[string][]interface{}

// ParamSet is one combination drawn from a Grid.
type ParamSet map[string]interface{}

// Clone creates a copy of the parameter set.
func (p ParamSet) Clone() ParamSet {
	clone := make(ParamSet, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// Pipeline runs a complete backtest for one parameter combination and
// returns its statistics. It must be safe for concurrent use when the
// optimizer runs with multiple workers.
type Pipeline func(ctx context.Context, params ParamSet) (*Statistics, error)

// Objective metric names accepted by the optimizer. hit_rate@K and lift@K
// are also accepted for any K the evaluation config computes.
const (
	MetricAverageHits = "average_hits"
	MetricMaxHits     = "max_hits"
	MetricAverageRank = "average_rank"
	MetricMRR         = "mrr"
	MetricSharpe      = "sharpe"
	MetricDrawdown    = "drawdown"
	MetricECE         = "ece"
	MetricBrier       = "brier"
)

// OptimizerConfig controls a grid search sweep.
type OptimizerConfig struct {
	// Objective names the Statistics field used as the score.
	Objective string
	// Minimize flips score comparisons for objectives where lower is
	// better (average_rank, drawdown, ece, brier). Scores are always
	// reported raw.
	Minimize bool
	// Workers caps concurrent combination evaluation; 0 or 1 is
	// sequential.
	Workers int
}

// Validate validates optimizer parameters.
func (c OptimizerConfig) Validate() error {
	if err := ValidateMetric(c.Objective); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// CombinationResult is the outcome of one grid point. Failed combinations
// carry a -Inf score and the error message; they are excluded from best
// selection and sensitivity aggregates but retained here for diagnostics.
type CombinationResult struct {
	Index   int         `json:"index"`
	Params  ParamSet    `json:"params"`
	Hash    string      `json:"hash"`
	Stats   *Statistics `json:"statistics,omitempty"`
	Score   float64     `json:"score"`
	Err     error       `json:"-"`
	Message string      `json:"message,omitempty"`
}

// ValueScore summarizes the objective over all combinations sharing one
// parameter value.
type ValueScore struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// SensitivityEntry reports how much one parameter alone moves the
// objective, marginalized over all other parameters.
type SensitivityEntry struct {
	BestValue   string                `json:"best_value"`
	Range       float64               `json:"range"`
	ValueScores map[string]ValueScore `json:"value_scores"`
}

// OptimizationResult is the full outcome of a grid search sweep.
type OptimizationResult struct {
	RunID        uuid.UUID                   `json:"run_id"`
	Objective    string                      `json:"objective"`
	BestParams   ParamSet                    `json:"best_params,omitempty"`
	BestScore    float64                     `json:"best_score"`
	BestIndex    int                         `json:"best_index"`
	Combinations []CombinationResult         `json:"combinations"`
	Sensitivity  map[string]SensitivityEntry `json:"sensitivity"`
	Elapsed      time.Duration               `json:"elapsed"`
}

// Optimizer drives a backtest pipeline across the Cartesian product of a
// parameter grid.
type Optimizer struct {
	config         OptimizerConfig
	logger         *logrus.Logger
	runLog         *logger.RunLogger
	progress       ProgressFunc
	shouldContinue ShouldContinueFunc
}

// NewOptimizer creates a grid search optimizer.
func NewOptimizer(cfg OptimizerConfig, baseLogger *logrus.Logger) (*Optimizer, error) {
	if baseLogger == nil {
		baseLogger = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		config: cfg,
		logger: baseLogger,
		runLog: logger.NewRunLogger(baseLogger),
	}, nil
}

// SetProgress installs an optional progress callback, invoked after each
// completed combination.
func (o *Optimizer) SetProgress(fn ProgressFunc) {
	o.progress = fn
}

// SetShouldContinue installs an optional early-stop predicate, polled
// before each combination is dispatched.
func (o *Optimizer) SetShouldContinue(fn ShouldContinueFunc) {
	o.shouldContinue = fn
}

// Optimize evaluates the pipeline across every grid combination and ranks
// the outcomes. Per-combination failures never abort the sweep. Exact score
// ties keep the earlier-enumerated combination as best.
func (o *Optimizer) Optimize(ctx context.Context, grid Grid, pipeline Pipeline) (*OptimizationResult, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("%w: pipeline is required", ErrInvalidConfig)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: parameter grid is empty", ErrInvalidConfig)
	}
	for name, values := range grid {
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: parameter %q has no values", ErrInvalidConfig, name)
		}
	}

	started := time.Now()
	combos := EnumerateCombinations(grid)
	total := len(combos)

	out := &OptimizationResult{
		RunID:     uuid.New(),
		Objective: o.config.Objective,
		BestScore: math.Inf(-1),
		BestIndex: -1,
	}
	runID := out.RunID.String()
	o.runLog.LogOptimizationStarted(runID, o.config.Objective, len(grid), total)

	results, dispatched := o.runCombinations(ctx, combos, pipeline)
	out.Combinations = results[:dispatched]

	// First-wins scan in enumeration order.
	bestHash := ""
	for i := range out.Combinations {
		cr := &out.Combinations[i]
		if cr.Err != nil {
			continue
		}
		if out.BestIndex < 0 || o.betterScore(cr.Score, out.BestScore) {
			out.BestIndex = cr.Index
			out.BestScore = cr.Score
			out.BestParams = cr.Params
			bestHash = cr.Hash
		}
	}

	out.Sensitivity = o.analyzeSensitivity(grid, out.Combinations)
	out.Elapsed = time.Since(started)

	failures := 0
	for _, cr := range out.Combinations {
		if cr.Err != nil {
			failures++
		}
	}
	o.runLog.LogOptimizationCompleted(runID, len(out.Combinations), failures, out.BestScore, bestHash, float64(out.Elapsed.Milliseconds()))

	return out, ctx.Err()
}

func (o *Optimizer) runCombinations(ctx context.Context, combos []ParamSet, pipeline Pipeline) ([]CombinationResult, int) {
	results := make([]CombinationResult, len(combos))

	if o.config.Workers <= 1 {
		dispatched := 0
		for i, params := range combos {
			if ctx.Err() != nil {
				break
			}
			if o.shouldContinue != nil && !o.shouldContinue() {
				break
			}
			results[i] = o.runCombination(ctx, i, params, pipeline)
			dispatched++
			o.reportProgress(dispatched, len(combos))
		}
		return results, dispatched
	}

	sem := make(chan struct{}, o.config.Workers)
	var wg sync.WaitGroup
	var completed int64

	dispatched := 0
	for i, params := range combos {
		if ctx.Err() != nil {
			break
		}
		if o.shouldContinue != nil && !o.shouldContinue() {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		dispatched++
		go func(idx int, ps ParamSet) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = o.runCombination(ctx, idx, ps, pipeline)
			done := int(atomic.AddInt64(&completed, 1))
			o.reportProgress(done, len(combos))
		}(i, params)
	}
	wg.Wait()

	return results, dispatched
}

func (o *Optimizer) runCombination(ctx context.Context, idx int, params ParamSet, pipeline Pipeline) CombinationResult {
	cr := CombinationResult{
		Index:  idx,
		Params: params,
		Hash:   HashParameters(params),
		Score:  math.Inf(-1),
	}

	stats, err := o.callPipeline(ctx, params, pipeline)
	if err != nil {
		cr.Err = err
		cr.Message = err.Error()
		o.logger.WithFields(logrus.Fields{
			"combination": idx,
			"params":      fmt.Sprintf("%v", params),
			"error":       err.Error(),
		}).Warn("Combination failed")
		return cr
	}
	if stats == nil {
		cr.Err = ErrInsufficientData
		cr.Message = ErrInsufficientData.Error()
		return cr
	}

	score, err := objectiveValue(stats, o.config.Objective)
	if err != nil {
		cr.Err = err
		cr.Message = err.Error()
		return cr
	}

	cr.Stats = stats
	cr.Score = score
	return cr
}

// callPipeline invokes the pipeline with panic recovery, so a broken
// combination stays isolated from the rest of the sweep.
func (o *Optimizer) callPipeline(ctx context.Context, params ParamSet, pipeline Pipeline) (stats *Statistics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
	}()
	return pipeline(ctx, params)
}

func (o *Optimizer) betterScore(a, b float64) bool {
	if o.config.Minimize {
		return a < b
	}
	return a > b
}

func (o *Optimizer) reportProgress(current, total int) {
	if o.progress == nil || total == 0 {
		return
	}
	o.progress(float64(current)/float64(total)*100, current, total,
		fmt.Sprintf("combination %d/%d", current, total))
}

// analyzeSensitivity groups combinations by each parameter's value and
// summarizes the objective inside each group. Failed combinations are
// excluded from the aggregates.
func (o *Optimizer) analyzeSensitivity(grid Grid, results []CombinationResult) map[string]SensitivityEntry {
	out := make(map[string]SensitivityEntry, len(grid))

	for name, values := range grid {
		entry := SensitivityEntry{ValueScores: make(map[string]ValueScore, len(values))}

		haveBest := false
		bestMean := 0.0
		minMean := 0.0
		maxMean := 0.0

		for _, value := range values {
			key := fmt.Sprintf("%v", value)

			var scores []float64
			for _, cr := range results {
				if cr.Err != nil || cr.Params[name] != value {
					continue
				}
				scores = append(scores, cr.Score)
			}
			if len(scores) == 0 {
				entry.ValueScores[key] = ValueScore{}
				continue
			}

			vs := ValueScore{
				Mean:  stat.Mean(scores, nil),
				Std:   stat.PopStdDev(scores, nil),
				Count: len(scores),
			}
			entry.ValueScores[key] = vs

			if !haveBest {
				haveBest = true
				bestMean = vs.Mean
				minMean = vs.Mean
				maxMean = vs.Mean
				entry.BestValue = key
				continue
			}
			if o.betterScore(vs.Mean, bestMean) {
				bestMean = vs.Mean
				entry.BestValue = key
			}
			if vs.Mean < minMean {
				minMean = vs.Mean
			}
			if vs.Mean > maxMean {
				maxMean = vs.Mean
			}
		}

		entry.Range = maxMean - minMean
		out[name] = entry
	}

	return out
}

// EnumerateCombinations expands the grid into its full Cartesian product.
// Parameter names are visited in sorted order and values in declared order,
// so identical grids always enumerate identically.
func EnumerateCombinations(grid Grid) []ParamSet {
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)

	return expandCombinations(grid, names, 0, ParamSet{})
}

func expandCombinations(grid Grid, names []string, idx int, current ParamSet) []ParamSet {
	if idx >= len(names) {
		return []ParamSet{current.Clone()}
	}

	name := names[idx]
	var combos []ParamSet
	for _, value := range grid[name] {
		next := current.Clone()
		next[name] = value
		combos = append(combos, expandCombinations(grid, names, idx+1, next)...)
	}
	return combos
}

// ValidateMetric reports whether the objective metric name is recognized.
// Availability of the value (a computed k, calibration data) is still
// checked per run.
func ValidateMetric(metric string) error {
	switch metric {
	case MetricAverageHits, MetricMaxHits, MetricAverageRank, MetricMRR,
		MetricSharpe, MetricDrawdown, MetricECE, MetricBrier:
		return nil
	}
	if _, ok := parseAtK(metric, "hit_rate@"); ok {
		return nil
	}
	if _, ok := parseAtK(metric, "lift@"); ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}

func objectiveValue(stats *Statistics, metric string) (float64, error) {
	switch metric {
	case MetricAverageHits:
		return stats.AverageHits, nil
	case MetricMaxHits:
		return float64(stats.MaxHits), nil
	case MetricAverageRank:
		return stats.AverageRank, nil
	case MetricMRR:
		return stats.MRR, nil
	case MetricSharpe:
		return stats.SharpeLike, nil
	case MetricDrawdown:
		return float64(stats.Drawdown), nil
	case MetricECE:
		if stats.Calibration == nil {
			return 0, fmt.Errorf("%w: no calibration data", ErrMetricUnavailable)
		}
		return stats.Calibration.ECE, nil
	case MetricBrier:
		if stats.Calibration == nil {
			return 0, fmt.Errorf("%w: no calibration data", ErrMetricUnavailable)
		}
		return stats.Calibration.Brier, nil
	}

	if k, ok := parseAtK(metric, "hit_rate@"); ok {
		rate, exists := stats.HitRateAtK[k]
		if !exists {
			return 0, fmt.Errorf("%w: hit_rate@%d not computed", ErrMetricUnavailable, k)
		}
		return rate, nil
	}
	if k, ok := parseAtK(metric, "lift@"); ok {
		lift, exists := stats.LiftAtK[k]
		if !exists {
			return 0, fmt.Errorf("%w: lift@%d not computed", ErrMetricUnavailable, k)
		}
		if lift == nil {
			return 0, fmt.Errorf("%w: lift@%d undefined, baseline is zero", ErrMetricUnavailable, k)
		}
		return *lift, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}

func parseAtK(metric, prefix string) (int, bool) {
	if !strings.HasPrefix(metric, prefix) {
		return 0, false
	}
	k, err := strconv.Atoi(strings.TrimPrefix(metric, prefix))
	if err != nil || k <= 0 {
		return 0, false
	}
	return k, true
}

// HashParameters creates a stable hash for parameter maps. json.Marshal
// sorts map keys, so equal sets always hash identically.
func HashParameters(params map[string]interface{}) string {
	data, _ := json.Marshal(params)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
