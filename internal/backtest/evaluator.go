package backtest

import (
	"context"
	"fmt"

	"github.com/chkomi/lotto/internal/models"
	"github.com/chkomi/lotto/internal/strategy"
)

// MissingRank marks an actual number the strategy never ranked. It is
// deliberately worse than any real rank in the universe so it penalizes
// average-rank metrics instead of being silently dropped.
const MissingRank = 999

// EvaluationRecord scores one test round against the ranking its fold's
// training window produced. Never mutated after creation.
type EvaluationRecord struct {
	Round       int                  `json:"round"`
	FoldIndex   int                  `json:"fold_index"`
	Actual      [models.DrawSize]int `json:"actual"`
	Bonus       int                  `json:"bonus"`
	HitCount    int                  `json:"hit_count"`
	ActualRanks [models.DrawSize]int `json:"actual_ranks"`
	AvgRank     float64              `json:"avg_rank"`
	BestRank    int                  `json:"best_rank"`

	// Predicted is shared across all records of a fold; excluded from
	// per-record serialization to keep exports small.
	Predicted models.Ranking `json:"-"`
}

// FoldResult carries everything one fold produced: its records on success,
// or the captured error on failure. A failed fold never aborts the run.
type FoldResult struct {
	Fold    Fold               `json:"fold"`
	Records []EvaluationRecord `json:"records,omitempty"`
	Err     error              `json:"-"`
}

// EvaluateFold runs the strategy once on the fold's training slice and
// scores the resulting ranking against every round in the fold's test
// segment. The strategy sees only the training slice and the round number
// it is predicting for; panics and malformed rankings are converted into a
// StrategyError on the result.
func EvaluateFold(ctx context.Context, fold Fold, seq *models.Sequence, strat strategy.Strategy, cfg EvaluationConfig) FoldResult {
	result := FoldResult{Fold: fold}

	ranking, err := rankFold(ctx, fold, seq, strat)
	if err != nil {
		result.Err = &StrategyError{FoldIndex: fold.Index, Strategy: strat.Name(), Err: err}
		return result
	}
	if err := ranking.Validate(cfg.UniverseSize); err != nil {
		result.Err = &StrategyError{FoldIndex: fold.Index, Strategy: strat.Name(), Err: err}
		return result
	}

	topSet := make(map[int]bool, cfg.TopN)
	for _, n := range ranking.TopN(cfg.TopN) {
		topSet[n] = true
	}

	records := make([]EvaluationRecord, 0, fold.TestLen())
	for i := fold.TestStart; i <= fold.TestEnd; i++ {
		records = append(records, scoreRound(fold.Index, ranking, topSet, seq.At(i)))
	}
	result.Records = records
	return result
}

// rankFold invokes the strategy with the training slice only, recovering
// panics into ordinary errors.
func rankFold(ctx context.Context, fold Fold, seq *models.Sequence, strat strategy.Strategy) (ranking models.Ranking, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	train := seq.Slice(fold.TrainStart, fold.TrainEnd)
	asOfRound := seq.At(fold.TestStart).Round
	return strat.Rank(ctx, train, asOfRound)
}

func scoreRound(foldIndex int, ranking models.Ranking, topSet map[int]bool, draw models.DrawRecord) EvaluationRecord {
	record := EvaluationRecord{
		Round:     draw.Round,
		FoldIndex: foldIndex,
		Actual:    draw.Numbers,
		Bonus:     draw.Bonus,
		Predicted: ranking,
		BestRank:  MissingRank,
	}

	rankSum := 0
	for i, n := range draw.Numbers {
		if topSet[n] {
			record.HitCount++
		}
		rank := ranking.RankOf(n)
		if rank == 0 {
			rank = MissingRank
		}
		record.ActualRanks[i] = rank
		rankSum += rank
		if rank < record.BestRank {
			record.BestRank = rank
		}
	}
	record.AvgRank = float64(rankSum) / float64(models.DrawSize)

	return record
}
