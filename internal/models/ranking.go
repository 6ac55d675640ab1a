package models

import "fmt"

// ScoredCandidate is a single universe member scored by a strategy. Higher
// scores mean the strategy considers the number more likely to be drawn.
// Probability, when set, is the strategy's claimed chance (0-100 percent)
// that the number appears in the next round's primary six; it feeds the
// calibration report and is otherwise ignored.
type ScoredCandidate struct {
	Number      int      `json:"number"`
	Score       float64  `json:"score"`
	Probability *float64 `json:"probability,omitempty"`
}

// Ranking is a strategy's output for one fold: every candidate it scored,
// ordered by descending score. Ties keep the strategy's emission order.
type Ranking struct {
	Candidates []ScoredCandidate `json:"candidates"`
}

// Validate checks that the ranking is usable for evaluation: non-empty,
// every number inside the universe, no duplicates, scores in descending
// order, and probabilities (when present) inside 0-100.
func (r *Ranking) Validate(universeSize int) error {
	if len(r.Candidates) == 0 {
		return ErrEmptyRanking
	}

	seen := make(map[int]bool, len(r.Candidates))
	prevScore := 0.0
	for i, c := range r.Candidates {
		if c.Number < 1 || c.Number > universeSize {
			return fmt.Errorf("candidate %d: number %d: %w", i, c.Number, ErrNumberOutOfRange)
		}
		if seen[c.Number] {
			return fmt.Errorf("candidate %d: number %d: %w", i, c.Number, ErrDuplicateNumber)
		}
		seen[c.Number] = true

		if i > 0 && c.Score > prevScore {
			return fmt.Errorf("candidate %d: score %.6f above predecessor: %w", i, c.Score, ErrRankingNotSorted)
		}
		prevScore = c.Score

		if c.Probability != nil && (*c.Probability < 0 || *c.Probability > 100) {
			return fmt.Errorf("candidate %d: probability %.2f: %w", i, *c.Probability, ErrProbabilityOutOfRange)
		}
	}

	return nil
}

// TopN returns the numbers of the first n candidates. When fewer candidates
// exist, all of them are returned.
func (r *Ranking) TopN(n int) []int {
	if n > len(r.Candidates) {
		n = len(r.Candidates)
	}
	numbers := make([]int, 0, n)
	for _, c := range r.Candidates[:n] {
		numbers = append(numbers, c.Number)
	}
	return numbers
}

// RankOf returns the 1-based position of number in the ranking, or 0 when
// the number was not scored.
func (r *Ranking) RankOf(number int) int {
	for i, c := range r.Candidates {
		if c.Number == number {
			return i + 1
		}
	}
	return 0
}

// HasProbabilities reports whether any candidate carries a probability.
func (r *Ranking) HasProbabilities() bool {
	for _, c := range r.Candidates {
		if c.Probability != nil {
			return true
		}
	}
	return false
}
