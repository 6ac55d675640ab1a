package strategy

import (
	"context"

	"github.com/chkomi/lotto/internal/models"
)

// Strategy defines the interface for number-scoring strategies. A strategy
// sees only the training slice it is handed; it must never consult data
// from or after the round it predicts.
type Strategy interface {
	Name() string
	// Rank scores the universe using the training slice only. asOfRound
	// is the first round the ranking will be judged against; no record
	// in the slice may carry that round or a later one.
	Rank(ctx context.Context, train []models.DrawRecord, asOfRound int) (models.Ranking, error)
	// Parameters reports the strategy's current tunable parameters.
	Parameters() map[string]interface{}
}

// Metadata describes a strategy for reports and exports.
type Metadata struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}
