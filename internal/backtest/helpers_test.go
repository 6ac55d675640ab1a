package backtest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/models"
)

// testSequence builds a deterministic valid draw history of n rounds.
// Round r draws the six consecutive numbers starting at (r mod 39)+1, so
// hit patterns against a fixed ranking vary from round to round.
func testSequence(t *testing.T, n int) *models.Sequence {
	t.Helper()

	records := make([]models.DrawRecord, 0, n)
	start := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	for r := 1; r <= n; r++ {
		a := (r % 39) + 1
		records = append(records, models.DrawRecord{
			Round:   r,
			Date:    start.AddDate(0, 0, (r-1)*7),
			Numbers: [models.DrawSize]int{a, a + 1, a + 2, a + 3, a + 4, a + 5},
			Bonus:   45,
		})
	}

	seq, err := models.NewSequence(records)
	if err != nil {
		t.Fatalf("building test sequence: %v", err)
	}
	return seq
}

// flatSequence builds n rounds that all draw the same six numbers, which
// pins hit counts exactly for ranking-sensitive assertions.
func flatSequence(t *testing.T, n int, numbers [models.DrawSize]int) *models.Sequence {
	t.Helper()

	records := make([]models.DrawRecord, 0, n)
	start := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	for r := 1; r <= n; r++ {
		records = append(records, models.DrawRecord{
			Round:   r,
			Date:    start.AddDate(0, 0, (r-1)*7),
			Numbers: numbers,
			Bonus:   45,
		})
	}

	seq, err := models.NewSequence(records)
	if err != nil {
		t.Fatalf("building flat sequence: %v", err)
	}
	return seq
}

// identityRanking scores every universe number by its negation, so the
// top of the ranking is always 1, 2, 3, ...
func identityRanking() models.Ranking {
	candidates := make([]models.ScoredCandidate, 0, models.UniverseSize)
	for n := 1; n <= models.UniverseSize; n++ {
		candidates = append(candidates, models.ScoredCandidate{
			Number: n,
			Score:  float64(models.UniverseSize - n + 1),
		})
	}
	return models.Ranking{Candidates: candidates}
}

// stubStrategy lets each test script the ranking behavior directly.
type stubStrategy struct {
	name   string
	rankFn func(ctx context.Context, train []models.DrawRecord, asOfRound int) (models.Ranking, error)
	params map[string]interface{}
}

func (s *stubStrategy) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubStrategy) Rank(ctx context.Context, train []models.DrawRecord, asOfRound int) (models.Ranking, error) {
	return s.rankFn(ctx, train, asOfRound)
}

func (s *stubStrategy) Parameters() map[string]interface{} {
	return s.params
}

// identityStub always returns the identity ranking.
func identityStub() *stubStrategy {
	return &stubStrategy{
		rankFn: func(context.Context, []models.DrawRecord, int) (models.Ranking, error) {
			return identityRanking(), nil
		},
	}
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testFoldConfig() FoldConfig {
	return FoldConfig{
		TrainSize:    5,
		TestSize:     2,
		StepSize:     1,
		MinTrainSize: 5,
		WindowType:   WindowRolling,
	}
}

func testConfig() Config {
	return Config{
		Folds:      testFoldConfig(),
		Evaluation: DefaultEvaluation(),
	}
}
