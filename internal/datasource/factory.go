package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/config"
)

// SourceType represents the type of draw source
type SourceType string

const (
	// DHLotterySourceType fetches from the official lottery API
	DHLotterySourceType SourceType = "dhlottery"
	// CSVSourceType reads from a local CSV file
	CSVSourceType SourceType = "csv"
)

// New creates a DrawSource based on the provided configuration.
func New(cfg *config.DataSourceConfig, logger *logrus.Logger) (DrawSource, error) {
	switch SourceType(cfg.Source) {
	case DHLotterySourceType:
		return NewDHLotteryClient(newHTTPClient(cfg, logger), cfg.APIURL, cacheTTL(cfg), logger), nil

	case CSVSourceType:
		if cfg.CSVPath == "" {
			return nil, fmt.Errorf("csv source requires csv_path")
		}
		return NewCSVStore(cfg.CSVPath, logger), nil

	default:
		return nil, fmt.Errorf("unknown draw source: %s", cfg.Source)
	}
}

// NewStore creates the CSV store used as the local draw history, regardless
// of which source is configured for fetching.
func NewStore(cfg *config.DataSourceConfig, logger *logrus.Logger) (*CSVStore, error) {
	if cfg.CSVPath == "" {
		return nil, fmt.Errorf("draw store requires csv_path")
	}
	return NewCSVStore(cfg.CSVPath, logger), nil
}

// newHTTPClient builds the shared transport from source configuration,
// falling back to defaults for unset values.
func newHTTPClient(cfg *config.DataSourceConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	httpCfg := DefaultHTTPClientConfig()
	if cfg.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.RetryAttempts > 0 {
		httpCfg.MaxRetries = cfg.RetryAttempts
	}
	if cfg.RequestsPerSecond > 0 {
		httpCfg.RateLimit = cfg.RequestsPerSecond
	}
	return NewRateLimitedHTTPClient(httpCfg, logger)
}

// cacheTTL returns the configured fetch cache lifetime.
func cacheTTL(cfg *config.DataSourceConfig) time.Duration {
	if cfg.CacheTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(cfg.CacheTTLSeconds) * time.Second
}
