package strategy

import (
	"context"
	"fmt"

	"github.com/chkomi/lotto/internal/models"
)

// FrequencyStrategy scores numbers by how often they appeared over a
// trailing window of rounds, with additive smoothing toward the uniform
// draw rate. It emits honest per-number probabilities: the smoothed
// appearance rates sum to the outcome size across the universe, so they
// feed the calibration report directly.
type FrequencyStrategy struct {
	BaseStrategy
	window    int
	smoothing float64
}

// NewFrequencyStrategy creates a frequency strategy. Parameters: "window"
// (rounds considered, 0 = whole history) and "smoothing" (additive
// pseudo-count, default 1).
func NewFrequencyStrategy(params map[string]interface{}) (*FrequencyStrategy, error) {
	window, err := intParam(params, "window", 0)
	if err != nil {
		return nil, err
	}
	if window < 0 {
		return nil, fmt.Errorf("window cannot be negative")
	}
	smoothing, err := floatParam(params, "smoothing", 1.0)
	if err != nil {
		return nil, err
	}
	if smoothing < 0 {
		return nil, fmt.Errorf("smoothing cannot be negative")
	}

	return &FrequencyStrategy{window: window, smoothing: smoothing}, nil
}

// Name returns the strategy identifier.
func (s *FrequencyStrategy) Name() string {
	return TypeFrequency
}

// Rank scores every universe number by its smoothed appearance rate over
// the trailing window.
func (s *FrequencyStrategy) Rank(ctx context.Context, train []models.DrawRecord, asOfRound int) (models.Ranking, error) {
	if err := s.ValidateTemporalSafety(train, asOfRound); err != nil {
		return models.Ranking{}, err
	}
	if len(train) == 0 {
		return models.Ranking{}, fmt.Errorf("training window is empty")
	}

	window := train
	if s.window > 0 && len(train) > s.window {
		window = train[len(train)-s.window:]
	}

	counts := make(map[int]float64, models.UniverseSize)
	for _, record := range window {
		for _, n := range record.Numbers {
			counts[n]++
		}
	}

	// Pseudo-counts are scaled so a number appearing at exactly the
	// uniform rate keeps probability drawSize/universeSize.
	rounds := float64(len(window))
	prior := float64(models.DrawSize) / float64(models.UniverseSize)
	denom := rounds + s.smoothing/prior

	scores := make(map[int]float64, models.UniverseSize)
	probabilities := make(map[int]float64, models.UniverseSize)
	for number := 1; number <= models.UniverseSize; number++ {
		rate := (counts[number] + s.smoothing) / denom
		scores[number] = rate
		probabilities[number] = rate * 100
	}

	return s.BuildRanking(scores, probabilities), nil
}

// Parameters returns the tunable parameters.
func (s *FrequencyStrategy) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"window":    s.window,
		"smoothing": s.smoothing,
	}
}
