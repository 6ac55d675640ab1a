package backtest

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/chkomi/lotto/internal/strategy"
)

// scorePipeline builds a pipeline whose objective value is computed
// directly from the parameters, so sweep mechanics can be asserted
// without running real backtests.
func scorePipeline(score func(params ParamSet) float64) Pipeline {
	return func(_ context.Context, params ParamSet) (*Statistics, error) {
		return &Statistics{
			Records:     1,
			AverageHits: score(params),
		}, nil
	}
}

func intParamValue(t *testing.T, params ParamSet, name string) int {
	t.Helper()
	v, ok := params[name].(int)
	if !ok {
		t.Fatalf("parameter %q is %T, want int", name, params[name])
	}
	return v
}

func TestEnumerateCombinations(t *testing.T) {
	grid := Grid{
		"b": {"x", "y"},
		"a": {1, 2},
	}

	combos := EnumerateCombinations(grid)
	expected := []ParamSet{
		{"a": 1, "b": "x"},
		{"a": 1, "b": "y"},
		{"a": 2, "b": "x"},
		{"a": 2, "b": "y"},
	}

	if len(combos) != len(expected) {
		t.Fatalf("expected %d combinations, got %d", len(expected), len(combos))
	}
	for i, want := range expected {
		if !reflect.DeepEqual(combos[i], want) {
			t.Errorf("combination %d = %v, want %v", i, combos[i], want)
		}
	}
}

func TestEnumerateCombinationsSingleParam(t *testing.T) {
	combos := EnumerateCombinations(Grid{"w": {10, 20, 30}})
	if len(combos) != 3 {
		t.Fatalf("expected 3 combinations, got %d", len(combos))
	}
	for i, want := range []int{10, 20, 30} {
		if combos[i]["w"] != want {
			t.Errorf("combination %d: w = %v, want %d", i, combos[i]["w"], want)
		}
	}
}

func TestOptimizeFindsBest(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	grid := Grid{"w": {1, 2, 3}}
	pipeline := scorePipeline(func(p ParamSet) float64 {
		return float64(p["w"].(int))
	})

	result, err := opt.Optimize(context.Background(), grid, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(result.Combinations) != 3 {
		t.Fatalf("expected 3 combinations, got %d", len(result.Combinations))
	}
	if result.BestIndex != 2 {
		t.Errorf("expected best index 2, got %d", result.BestIndex)
	}
	if result.BestScore != 3 {
		t.Errorf("expected best score 3, got %v", result.BestScore)
	}
	if intParamValue(t, result.BestParams, "w") != 3 {
		t.Errorf("expected best w=3, got %v", result.BestParams["w"])
	}
	for i, cr := range result.Combinations {
		if cr.Index != i {
			t.Errorf("combination %d carries index %d", i, cr.Index)
		}
		if cr.Hash == "" {
			t.Errorf("combination %d missing parameter hash", i)
		}
		if cr.Stats == nil {
			t.Errorf("combination %d missing statistics", i)
		}
	}
}

func TestOptimizeFirstWinsOnTie(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 2, 3}},
		scorePipeline(func(ParamSet) float64 { return 1.5 }))
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.BestIndex != 0 {
		t.Errorf("tie must keep the earliest combination, got index %d", result.BestIndex)
	}
}

func TestOptimizeMinimize(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageRank, Minimize: true}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := func(_ context.Context, params ParamSet) (*Statistics, error) {
		return &Statistics{Records: 1, AverageRank: float64(params["w"].(int))}, nil
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {5, 2, 9}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if intParamValue(t, result.BestParams, "w") != 2 {
		t.Errorf("expected minimizing sweep to pick w=2, got %v", result.BestParams["w"])
	}
	// The score stays raw even when minimizing.
	if result.BestScore != 2 {
		t.Errorf("expected raw best score 2, got %v", result.BestScore)
	}
}

func TestOptimizeFailuresRetainedButExcluded(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := func(_ context.Context, params ParamSet) (*Statistics, error) {
		w := params["w"].(int)
		if w == 2 {
			return nil, errors.New("unstable combination")
		}
		return &Statistics{Records: 1, AverageHits: float64(w)}, nil
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 2, 3}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(result.Combinations) != 3 {
		t.Fatalf("failed combinations must stay in the result, got %d", len(result.Combinations))
	}

	failed := result.Combinations[1]
	if failed.Err == nil {
		t.Fatal("expected combination 1 to fail")
	}
	if !math.IsInf(failed.Score, -1) {
		t.Errorf("failed combination must score -Inf, got %v", failed.Score)
	}
	if failed.Message == "" {
		t.Error("failed combination must carry the error message")
	}

	if result.BestIndex != 2 {
		t.Errorf("expected best index 2, got %d", result.BestIndex)
	}

	// The failed value contributes nothing to sensitivity.
	entry := result.Sensitivity["w"]
	if vs := entry.ValueScores["2"]; vs.Count != 0 {
		t.Errorf("expected no samples for the failed value, got %d", vs.Count)
	}
	if vs := entry.ValueScores["1"]; vs.Count != 1 || vs.Mean != 1 {
		t.Errorf("unexpected aggregate for w=1: %+v", vs)
	}
}

func TestOptimizeAllCombinationsFail(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := func(context.Context, ParamSet) (*Statistics, error) {
		return nil, errors.New("nothing works")
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 2}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.BestIndex != -1 {
		t.Errorf("expected best index -1, got %d", result.BestIndex)
	}
	if !math.IsInf(result.BestScore, -1) {
		t.Errorf("expected best score -Inf, got %v", result.BestScore)
	}
	if result.BestParams != nil {
		t.Errorf("expected no best params, got %v", result.BestParams)
	}
	if entry := result.Sensitivity["w"]; entry.BestValue != "" {
		t.Errorf("expected no best value, got %q", entry.BestValue)
	}
}

func TestOptimizeNilStatsIsInsufficientData(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := func(context.Context, ParamSet) (*Statistics, error) {
		return nil, nil
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {1}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if !errors.Is(result.Combinations[0].Err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", result.Combinations[0].Err)
	}
}

func TestOptimizeSensitivityMarginalization(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	grid := Grid{
		"w": {1, 2},
		"s": {10, 20},
	}
	pipeline := scorePipeline(func(p ParamSet) float64 {
		return float64(p["w"].(int))*10 + float64(p["s"].(int))/10
	})

	result, err := opt.Optimize(context.Background(), grid, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(result.Combinations) != 4 {
		t.Fatalf("expected 4 combinations, got %d", len(result.Combinations))
	}

	wEntry := result.Sensitivity["w"]
	if vs := wEntry.ValueScores["1"]; vs.Count != 2 || math.Abs(vs.Mean-11.5) > 1e-12 {
		t.Errorf("w=1 aggregate: %+v, want mean 11.5 over 2 samples", vs)
	}
	if vs := wEntry.ValueScores["2"]; vs.Count != 2 || math.Abs(vs.Mean-21.5) > 1e-12 {
		t.Errorf("w=2 aggregate: %+v, want mean 21.5 over 2 samples", vs)
	}
	if wEntry.BestValue != "2" {
		t.Errorf("expected best w value '2', got %q", wEntry.BestValue)
	}
	if math.Abs(wEntry.Range-10) > 1e-12 {
		t.Errorf("expected w range 10, got %v", wEntry.Range)
	}

	sEntry := result.Sensitivity["s"]
	if math.Abs(sEntry.Range-1) > 1e-12 {
		t.Errorf("expected s range 1, got %v", sEntry.Range)
	}
	if sEntry.BestValue != "20" {
		t.Errorf("expected best s value '20', got %q", sEntry.BestValue)
	}
}

func TestOptimizeObjectiveAtK(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: "hit_rate@3"}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := func(_ context.Context, params ParamSet) (*Statistics, error) {
		w := params["w"].(int)
		return &Statistics{
			Records:    1,
			HitRateAtK: map[int]float64{3: float64(w) / 10},
		}, nil
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 4, 2}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if intParamValue(t, result.BestParams, "w") != 4 {
		t.Errorf("expected best w=4, got %v", result.BestParams["w"])
	}
}

func TestOptimizeMetricUnavailable(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricECE}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	// No calibration data: every combination fails with a metric
	// availability error, not a sweep abort.
	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 2}},
		scorePipeline(func(ParamSet) float64 { return 1 }))
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	for i, cr := range result.Combinations {
		if !errors.Is(cr.Err, ErrMetricUnavailable) {
			t.Errorf("combination %d: expected ErrMetricUnavailable, got %v", i, cr.Err)
		}
	}
	if result.BestIndex != -1 {
		t.Errorf("expected no best combination, got %d", result.BestIndex)
	}
}

func TestOptimizeUnknownMetric(t *testing.T) {
	if _, err := NewOptimizer(OptimizerConfig{Objective: "profit"}, newTestLogger()); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("expected ErrUnknownMetric, got %v", err)
	}
}

func TestOptimizeInvalidGrid(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := scorePipeline(func(ParamSet) float64 { return 0 })

	if _, err := opt.Optimize(context.Background(), Grid{}, pipeline); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty grid, got %v", err)
	}
	if _, err := opt.Optimize(context.Background(), Grid{"w": {}}, pipeline); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty values, got %v", err)
	}
	if _, err := opt.Optimize(context.Background(), Grid{"w": {1}}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil pipeline, got %v", err)
	}
}

func TestOptimizePanicIsolated(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	pipeline := func(_ context.Context, params ParamSet) (*Statistics, error) {
		if params["w"].(int) == 2 {
			panic("bad parameters")
		}
		return &Statistics{Records: 1, AverageHits: 1}, nil
	}

	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 2, 3}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if result.Combinations[1].Err == nil {
		t.Error("expected panicking combination to fail")
	}
	if result.Combinations[0].Err != nil || result.Combinations[2].Err != nil {
		t.Error("expected other combinations to survive")
	}
}

func TestOptimizeShouldContinueStops(t *testing.T) {
	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	calls := 0
	opt.SetShouldContinue(func() bool {
		calls++
		return calls <= 2
	})

	result, err := opt.Optimize(context.Background(), Grid{"w": {1, 2, 3, 4}},
		scorePipeline(func(p ParamSet) float64 { return float64(p["w"].(int)) }))
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(result.Combinations) != 2 {
		t.Fatalf("expected 2 combinations before the stop, got %d", len(result.Combinations))
	}
}

func TestOptimizeParallelMatchesSequential(t *testing.T) {
	grid := Grid{
		"w": {1, 2, 3},
		"s": {10, 20},
	}
	score := func(p ParamSet) float64 {
		return float64(p["w"].(int)) + float64(p["s"].(int))/100
	}

	runWith := func(workers int) *OptimizationResult {
		opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits, Workers: workers}, newTestLogger())
		if err != nil {
			t.Fatalf("NewOptimizer failed: %v", err)
		}
		result, err := opt.Optimize(context.Background(), grid, scorePipeline(score))
		if err != nil {
			t.Fatalf("Optimize(workers=%d) failed: %v", workers, err)
		}
		return result
	}

	sequential := runWith(0)
	parallel := runWith(3)

	if sequential.BestIndex != parallel.BestIndex || sequential.BestScore != parallel.BestScore {
		t.Fatalf("best differs: sequential (%d, %v) vs parallel (%d, %v)",
			sequential.BestIndex, sequential.BestScore, parallel.BestIndex, parallel.BestScore)
	}
	for i := range sequential.Combinations {
		if sequential.Combinations[i].Score != parallel.Combinations[i].Score {
			t.Fatalf("combination %d scores differ", i)
		}
		if !reflect.DeepEqual(sequential.Combinations[i].Params, parallel.Combinations[i].Params) {
			t.Fatalf("combination %d params differ", i)
		}
	}
}

func TestValidateMetric(t *testing.T) {
	valid := []string{
		MetricAverageHits, MetricMaxHits, MetricAverageRank, MetricMRR,
		MetricSharpe, MetricDrawdown, MetricECE, MetricBrier,
		"hit_rate@1", "hit_rate@6", "lift@3",
	}
	for _, name := range valid {
		if err := ValidateMetric(name); err != nil {
			t.Errorf("ValidateMetric(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "profit", "hit_rate@", "hit_rate@0", "hit_rate@x", "lift@-1"}
	for _, name := range invalid {
		if !errors.Is(ValidateMetric(name), ErrUnknownMetric) {
			t.Errorf("ValidateMetric(%q): expected ErrUnknownMetric", name)
		}
	}
}

func TestHashParameters(t *testing.T) {
	a := map[string]interface{}{"window": 52, "smoothing": 1.0}
	b := map[string]interface{}{"smoothing": 1.0, "window": 52}
	if HashParameters(a) != HashParameters(b) {
		t.Error("equal parameter sets must hash identically")
	}

	c := map[string]interface{}{"window": 53, "smoothing": 1.0}
	if HashParameters(a) == HashParameters(c) {
		t.Error("different parameter sets must hash differently")
	}
}

// TestOptimizeWithEnginePipeline sweeps a real strategy through the full
// engine stack, the way the optimize command wires it together.
func TestOptimizeWithEnginePipeline(t *testing.T) {
	seq := testSequence(t, 40)
	cfg := Config{
		Folds: FoldConfig{
			TrainSize:  20,
			TestSize:   2,
			StepSize:   5,
			WindowType: WindowRolling,
		},
		Evaluation: DefaultEvaluation(),
	}

	pipeline := func(ctx context.Context, params ParamSet) (*Statistics, error) {
		strat, err := strategy.New(strategy.TypeFrequency, params)
		if err != nil {
			return nil, err
		}
		engine, err := NewEngine(cfg, strat, newTestLogger())
		if err != nil {
			return nil, err
		}
		result, err := engine.Run(ctx, seq)
		if err != nil {
			return nil, err
		}
		return result.Stats, nil
	}

	opt, err := NewOptimizer(OptimizerConfig{Objective: MetricAverageHits}, newTestLogger())
	if err != nil {
		t.Fatalf("NewOptimizer failed: %v", err)
	}

	result, err := opt.Optimize(context.Background(), Grid{"window": {5, 10}}, pipeline)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(result.Combinations) != 2 {
		t.Fatalf("expected 2 combinations, got %d", len(result.Combinations))
	}
	for i, cr := range result.Combinations {
		if cr.Err != nil {
			t.Fatalf("combination %d failed: %v", i, cr.Err)
		}
		if cr.Stats == nil || cr.Stats.Records == 0 {
			t.Fatalf("combination %d produced no records", i)
		}
	}
	if result.BestIndex < 0 {
		t.Fatal("expected a best combination")
	}
}
