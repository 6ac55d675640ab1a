package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/chkomi/lotto/internal/models"
)

// BaseStrategy provides shared functionality for strategies.
type BaseStrategy struct{}

// ValidateTemporalSafety ensures no training round is from the future
// relative to the round being predicted.
func (b *BaseStrategy) ValidateTemporalSafety(train []models.DrawRecord, asOfRound int) error {
	for _, record := range train {
		if record.Round >= asOfRound {
			return fmt.Errorf("temporal safety violation: training round %d not before %d", record.Round, asOfRound)
		}
	}
	return nil
}

// BuildRanking orders per-number scores into a descending ranking. Ties
// break toward the smaller number so identical inputs always produce the
// identical ranking. Probabilities (percent, 0-100) are attached where the
// map carries the number; a nil map leaves all candidates without one.
func (b *BaseStrategy) BuildRanking(scores map[int]float64, probabilities map[int]float64) models.Ranking {
	candidates := make([]models.ScoredCandidate, 0, len(scores))
	for number, score := range scores {
		c := models.ScoredCandidate{Number: number, Score: score}
		if probabilities != nil {
			if p, ok := probabilities[number]; ok {
				p = b.NormalizeProbability(p)
				c.Probability = &p
			}
		}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Number < candidates[j].Number
	})

	return models.Ranking{Candidates: candidates}
}

// NormalizeProbability clamps a percent probability into [0, 100].
func (b *BaseStrategy) NormalizeProbability(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func intParam(params map[string]interface{}, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be numeric, got %T", key, raw)
	}
}

func floatParam(params map[string]interface{}, key string, fallback float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q must be numeric, got %T", key, raw)
	}
}
