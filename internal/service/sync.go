package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/datasource"
	"github.com/chkomi/lotto/internal/logger"
	"github.com/chkomi/lotto/internal/metrics"
	"github.com/chkomi/lotto/internal/models"
)

// DrawSyncService keeps the local draw store aligned with a remote source.
// Rounds are fetched one at a time and persisted in batches so that an
// interrupted catch-up resumes where it stopped.
type DrawSyncService struct {
	source    datasource.DrawSource
	store     *datasource.CSVStore
	logger    *logger.SyncLogger
	batchSize int
}

// SyncResult summarizes one synchronization pass.
type SyncResult struct {
	Source    string        `json:"source"`
	FromRound int           `json:"from_round"`
	LastRound int           `json:"last_round"`
	Fetched   int           `json:"fetched"`
	Duration  time.Duration `json:"duration"`
}

// NewDrawSyncService creates a sync service writing into store.
func NewDrawSyncService(source datasource.DrawSource, store *datasource.CSVStore, baseLogger *logrus.Logger, batchSize int) *DrawSyncService {
	if batchSize <= 0 {
		batchSize = 50
	}

	return &DrawSyncService{
		source:    source,
		store:     store,
		logger:    logger.NewSyncLogger(baseLogger),
		batchSize: batchSize,
	}
}

// Sync fetches every round published after the store's last round and
// appends it to the store. The returned result is non-nil even on error so
// callers can see partial progress.
func (s *DrawSyncService) Sync(ctx context.Context) (*SyncResult, error) {
	startTime := time.Now()

	last, err := s.store.LastRound()
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}

	result := &SyncResult{
		Source:    s.source.Name(),
		FromRound: last + 1,
		LastRound: last,
	}
	s.logger.LogSyncStarted(result.Source, result.FromRound)

	latest, err := s.source.FetchLatest(ctx)
	if err != nil {
		metrics.RecordSyncFailure(result.Source)
		s.logger.LogSyncFailure(result.Source, 0, err)
		return result, fmt.Errorf("resolving latest round: %w", err)
	}

	if latest.Round <= last {
		result.Duration = time.Since(startTime)
		s.logger.LogSyncCompleted(result.Source, 0, last, float64(result.Duration.Milliseconds()))
		return result, nil
	}

	batch := make([]models.DrawRecord, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.store.Append(batch); err != nil {
			return fmt.Errorf("persisting batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for round := last + 1; round <= latest.Round; round++ {
		if err := ctx.Err(); err != nil {
			if flushErr := flush(); flushErr != nil {
				err = flushErr
			}
			result.Duration = time.Since(startTime)
			metrics.RecordSyncFailure(result.Source)
			s.logger.LogSyncFailure(result.Source, round, err)
			return result, err
		}

		fetchStart := time.Now()
		record, err := s.source.FetchDraw(ctx, round)
		if err != nil {
			if errors.Is(err, datasource.ErrRoundNotFound) {
				// The source lags its own latest-round answer; retry
				// on the next pass.
				break
			}
			if flushErr := flush(); flushErr != nil {
				err = flushErr
			}
			result.Duration = time.Since(startTime)
			metrics.RecordSyncFailure(result.Source)
			s.logger.LogSyncFailure(result.Source, round, err)
			return result, fmt.Errorf("fetching round %d: %w", round, err)
		}

		metrics.RecordDrawFetched(result.Source, time.Since(fetchStart).Seconds())
		s.logger.LogDrawFetched(result.Source, record.Round, record.Numbers[:], record.Bonus)

		batch = append(batch, *record)
		result.Fetched++
		result.LastRound = record.Round

		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				result.Duration = time.Since(startTime)
				metrics.RecordSyncFailure(result.Source)
				s.logger.LogSyncFailure(result.Source, round, err)
				return result, err
			}
		}
	}

	if err := flush(); err != nil {
		result.Duration = time.Since(startTime)
		metrics.RecordSyncFailure(result.Source)
		s.logger.LogSyncFailure(result.Source, result.LastRound, err)
		return result, err
	}

	result.Duration = time.Since(startTime)
	metrics.UpdateLastSyncedRound(result.LastRound)
	s.logger.LogSyncCompleted(result.Source, result.Fetched, result.LastRound, float64(result.Duration.Milliseconds()))

	return result, nil
}

// Backfill fetches rounds fromRound through toRound and merges them into
// the store, skipping rounds already present.
func (s *DrawSyncService) Backfill(ctx context.Context, fromRound, toRound int) (*SyncResult, error) {
	startTime := time.Now()

	result := &SyncResult{
		Source:    s.source.Name(),
		FromRound: fromRound,
	}
	s.logger.LogSyncStarted(result.Source, fromRound)

	records, err := s.source.FetchRange(ctx, fromRound, toRound)
	if err != nil {
		metrics.RecordSyncFailure(result.Source)
		s.logger.LogSyncFailure(result.Source, fromRound, err)
		return result, fmt.Errorf("fetching rounds %d..%d: %w", fromRound, toRound, err)
	}

	if err := s.store.Append(records); err != nil {
		metrics.RecordSyncFailure(result.Source)
		s.logger.LogSyncFailure(result.Source, fromRound, err)
		return result, fmt.Errorf("persisting rounds %d..%d: %w", fromRound, toRound, err)
	}

	last, err := s.store.LastRound()
	if err != nil {
		return result, fmt.Errorf("reading store: %w", err)
	}

	result.Fetched = len(records)
	result.LastRound = last
	result.Duration = time.Since(startTime)
	metrics.UpdateLastSyncedRound(last)
	s.logger.LogSyncCompleted(result.Source, result.Fetched, result.LastRound, float64(result.Duration.Milliseconds()))

	return result, nil
}
