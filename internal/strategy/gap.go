package strategy

import (
	"context"
	"fmt"

	"github.com/chkomi/lotto/internal/models"
)

// GapStrategy scores numbers by how long they have been absent from the
// draws, the classic "due number" heuristic. It emits scores only, no
// probabilities, so runs under it carry no calibration report.
type GapStrategy struct {
	BaseStrategy
	window int
}

// NewGapStrategy creates a gap strategy. Parameter: "window" (rounds
// considered, 0 = whole history).
func NewGapStrategy(params map[string]interface{}) (*GapStrategy, error) {
	window, err := intParam(params, "window", 0)
	if err != nil {
		return nil, err
	}
	if window < 0 {
		return nil, fmt.Errorf("window cannot be negative")
	}

	return &GapStrategy{window: window}, nil
}

// Name returns the strategy identifier.
func (s *GapStrategy) Name() string {
	return TypeGap
}

// Rank scores every universe number by the count of rounds since its last
// appearance. A number drawn in the most recent round scores 0; one never
// seen inside the window scores the window length.
func (s *GapStrategy) Rank(ctx context.Context, train []models.DrawRecord, asOfRound int) (models.Ranking, error) {
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

	gaps := make(map[int]float64, models.UniverseSize)
	for number := 1; number <= models.UniverseSize; number++ {
		gaps[number] = float64(len(window))
	}
	for age := 0; age < len(window); age++ {
		record := window[len(window)-1-age]
		for _, n := range record.Numbers {
			if gaps[n] == float64(len(window)) {
				gaps[n] = float64(age)
			}
		}
	}

	return s.BuildRanking(gaps, nil), nil
}

// Parameters returns the tunable parameters.
func (s *GapStrategy) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"window": s.window,
	}
}
