package backtest

import (
	"encoding/json"

	"gonum.org/v1/gonum/stat"
)

// Statistics is the derived aggregate over a set of evaluation records.
// Recomputed on demand, never persisted by this package.
type Statistics struct {
	Records         int                `json:"records"`
	HitDistribution []int              `json:"hit_distribution"`
	HitRateAtK      map[int]float64    `json:"hit_rate_at_k"`
	LiftAtK         map[int]*float64   `json:"lift_at_k"`
	AverageHits     float64            `json:"average_hits"`
	MaxHits         int                `json:"max_hits"`
	AverageRank     float64            `json:"average_rank"`
	MRR             float64            `json:"mrr"`
	SharpeLike      float64            `json:"sharpe_like"`
	Drawdown        int                `json:"drawdown"`
	Calibration     *CalibrationReport `json:"calibration,omitempty"`
}

// Aggregate reduces evaluation records into Statistics. Empty input is the
// insufficient-data condition: callers must treat it as "no metrics
// available", not as a crash.
func Aggregate(records []EvaluationRecord, cfg EvaluationConfig) (*Statistics, error) {
	if len(records) == 0 {
		return nil, ErrInsufficientData
	}

	stats := &Statistics{
		Records:         len(records),
		HitDistribution: make([]int, cfg.OutcomeSize+1),
		HitRateAtK:      make(map[int]float64, len(cfg.HitRateKs)),
		LiftAtK:         make(map[int]*float64, len(cfg.HitRateKs)),
	}

	hitCounts := make([]float64, len(records))
	avgRanks := make([]float64, len(records))
	reciprocals := make([]float64, len(records))
	for i, r := range records {
		hitCounts[i] = float64(r.HitCount)
		avgRanks[i] = r.AvgRank
		reciprocals[i] = 1.0 / float64(r.BestRank)
		if r.HitCount >= 0 && r.HitCount < len(stats.HitDistribution) {
			stats.HitDistribution[r.HitCount]++
		}
		if r.HitCount > stats.MaxHits {
			stats.MaxHits = r.HitCount
		}
	}

	stats.AverageHits = stat.Mean(hitCounts, nil)
	stats.AverageRank = stat.Mean(avgRanks, nil)
	stats.MRR = stat.Mean(reciprocals, nil)
	stats.SharpeLike = calculateSharpeLike(hitCounts)
	stats.Drawdown = calculateDrawdown(records, cfg.DrawdownThreshold)

	for _, k := range cfg.HitRateKs {
		rate := calculateHitRate(records, k)
		stats.HitRateAtK[k] = rate
		baseline := HypergeomAtLeast(k, cfg.UniverseSize, cfg.OutcomeSize, cfg.TopN)
		if baseline == 0 {
			stats.LiftAtK[k] = nil
			continue
		}
		lift := rate / baseline
		stats.LiftAtK[k] = &lift
	}

	stats.Calibration = Calibrate(records)

	return stats, nil
}

// ToJSON exports statistics to JSON.
func (s *Statistics) ToJSON() string {
	data, _ := json.Marshal(s)
	return string(data)
}

func calculateHitRate(records []EvaluationRecord, k int) float64 {
	hits := 0
	for _, r := range records {
		if r.HitCount >= k {
			hits++
		}
	}
	return float64(hits) / float64(len(records))
}

// calculateSharpeLike is mean hit count over its population stddev; a
// stability measure, 0 when all rounds hit identically.
func calculateSharpeLike(hitCounts []float64) float64 {
	mean := stat.Mean(hitCounts, nil)
	std := stat.PopStdDev(hitCounts, nil)
	if std == 0 {
		return 0
	}
	return mean / std
}

// calculateDrawdown is the longest run of consecutive records whose hit
// count stays below the threshold, in record order.
func calculateDrawdown(records []EvaluationRecord, threshold int) int {
	longest := 0
	current := 0
	for _, r := range records {
		if r.HitCount < threshold {
			current++
			if current > longest {
				longest = current
			}
			continue
		}
		current = 0
	}
	return longest
}
