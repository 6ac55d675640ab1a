package backtest

import (
	"fmt"

	"github.com/chkomi/lotto/internal/config"
	"github.com/chkomi/lotto/internal/models"
)

// WindowType selects how the training window behaves as folds advance.
type WindowType string

const (
	// WindowRolling slides a fixed-size training window forward.
	WindowRolling WindowType = "rolling"
	// WindowAnchored pins the training start at the first round, so the
	// window expands as folds advance.
	WindowAnchored WindowType = "anchored"
)

// FoldConfig controls fold generation over the draw sequence. All sizes are
// counted in rounds. MinTrainSize of 0 disables the minimum-length check.
// The classic expanding backtest is WindowAnchored with TestSize 1 and
// StepSize 1.
type FoldConfig struct {
	TrainSize    int
	TestSize     int
	StepSize     int
	MinTrainSize int
	WindowType   WindowType
}

// Validate validates fold generation parameters.
func (f FoldConfig) Validate() error {
	if f.TrainSize <= 0 {
		return fmt.Errorf("%w: train size must be positive", ErrInvalidConfig)
	}
	if f.TestSize <= 0 {
		return fmt.Errorf("%w: test size must be positive", ErrInvalidConfig)
	}
	if f.StepSize <= 0 {
		return fmt.Errorf("%w: step size must be positive", ErrInvalidConfig)
	}
	if f.MinTrainSize < 0 {
		return fmt.Errorf("%w: min train size cannot be negative", ErrInvalidConfig)
	}
	switch f.WindowType {
	case WindowRolling, WindowAnchored:
	default:
		return fmt.Errorf("%w: window type must be rolling or anchored", ErrInvalidConfig)
	}
	return nil
}

// EvaluationConfig controls how rankings are scored against actual rounds.
type EvaluationConfig struct {
	// UniverseSize is the number of possible values (45 for Lotto 6/45).
	UniverseSize int
	// OutcomeSize is how many primary numbers each round draws.
	OutcomeSize int
	// TopN is the ticket size cut from the top of the ranking when
	// counting hits.
	TopN int
	// HitRateKs lists the k thresholds for hit-rate@k and lift@k.
	HitRateKs []int
	// DrawdownThreshold is the hit count below which a round counts
	// toward the drawdown run.
	DrawdownThreshold int
}

// Validate validates evaluation parameters.
func (e EvaluationConfig) Validate() error {
	if e.UniverseSize <= 0 {
		return fmt.Errorf("%w: universe size must be positive", ErrInvalidConfig)
	}
	if e.OutcomeSize <= 0 || e.OutcomeSize > e.UniverseSize {
		return fmt.Errorf("%w: outcome size must be in 1..universe", ErrInvalidConfig)
	}
	if e.TopN <= 0 || e.TopN > e.UniverseSize {
		return fmt.Errorf("%w: top-n must be in 1..universe", ErrInvalidConfig)
	}
	if len(e.HitRateKs) == 0 {
		return fmt.Errorf("%w: at least one hit-rate k is required", ErrInvalidConfig)
	}
	for _, k := range e.HitRateKs {
		if k <= 0 || k > e.OutcomeSize {
			return fmt.Errorf("%w: hit-rate k %d must be in 1..outcome size", ErrInvalidConfig, k)
		}
	}
	if e.DrawdownThreshold < 0 {
		return fmt.Errorf("%w: drawdown threshold cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Config is the full engine configuration.
type Config struct {
	Folds      FoldConfig
	Evaluation EvaluationConfig
	// Workers caps concurrent fold evaluation; 0 or 1 runs sequentially.
	Workers int
}

// Validate validates the engine configuration.
func (c Config) Validate() error {
	if err := c.Folds.Validate(); err != nil {
		return err
	}
	if err := c.Evaluation.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// DefaultEvaluation returns the standard Lotto 6/45 evaluation settings.
func DefaultEvaluation() EvaluationConfig {
	return EvaluationConfig{
		UniverseSize:      models.UniverseSize,
		OutcomeSize:       models.DrawSize,
		TopN:              models.DrawSize,
		HitRateKs:         []int{1, 3, 4, 5, 6},
		DrawdownThreshold: 3,
	}
}

// FromConfig converts app config into an engine Config.
func FromConfig(cfg *config.BacktestConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("%w: backtest config is required", ErrInvalidConfig)
	}

	eval := DefaultEvaluation()
	if cfg.TopN > 0 {
		eval.TopN = cfg.TopN
	}
	if len(cfg.HitRateKs) > 0 {
		eval.HitRateKs = cfg.HitRateKs
	}
	if cfg.DrawdownThreshold > 0 {
		eval.DrawdownThreshold = cfg.DrawdownThreshold
	}

	folds := FoldConfig{
		TrainSize:    cfg.TrainSize,
		TestSize:     cfg.TestSize,
		StepSize:     cfg.StepSize,
		MinTrainSize: cfg.MinTrainSize,
		WindowType:   WindowType(cfg.WindowType),
	}

	// The expanding preset is an anchored window stepped one round at a
	// time with a single test round per fold.
	if cfg.WindowType == "expanding" {
		folds.WindowType = WindowAnchored
		folds.TestSize = 1
		folds.StepSize = 1
	}

	out := Config{
		Folds:      folds,
		Evaluation: eval,
		Workers:    cfg.Workers,
	}

	return out, out.Validate()
}
