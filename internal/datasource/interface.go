package datasource

import (
	"context"
	"errors"

	"github.com/chkomi/lotto/internal/models"
)

// DrawSource defines the interface for fetching lottery draw history from a
// provider, either the official network API or a local file.
type DrawSource interface {
	// FetchDraw retrieves a single round by its round number.
	FetchDraw(ctx context.Context, round int) (*models.DrawRecord, error)

	// FetchLatest retrieves the most recent published round.
	FetchLatest(ctx context.Context) (*models.DrawRecord, error)

	// FetchRange retrieves rounds fromRound through toRound inclusive.
	// Rounds past the most recent published draw terminate the range
	// early rather than failing it.
	FetchRange(ctx context.Context, fromRound, toRound int) ([]models.DrawRecord, error)

	// Name returns the name of the draw source
	Name() string
}

// DataSourceError represents errors from draw source operations
type DataSourceError struct {
	Source  string // Draw source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error for errors.Is and errors.As.
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
)

// Error constructors
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrRoundNotFound     = errors.New("round not published")
	ErrInvalidData       = errors.New("invalid draw data")
	ErrNetworkError      = errors.New("network error")
	ErrServerError       = errors.New("server error")
)

// NewDataSourceError creates a new draw source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
