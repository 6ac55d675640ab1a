package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lotto 6/45 game constants
const (
	UniverseSize = 45 // numbers run 1..45
	DrawSize     = 6  // primary numbers per round
)

// DrawRecord represents a single lottery round: six primary numbers plus a
// bonus number, with optional prize metadata from the official feed.
type DrawRecord struct {
	Round   int          `json:"round" csv:"round" validate:"required,gt=0"`
	Date    time.Time    `json:"date" csv:"-" validate:"required"`
	Numbers [DrawSize]int `json:"numbers" csv:"-" validate:"required"`
	Bonus   int          `json:"bonus" csv:"bonus" validate:"required,gte=1,lte=45"`

	// Prize metadata is zero-valued when the source does not carry it.
	FirstPrizeAmount  decimal.Decimal `json:"first_prize_amount,omitempty" csv:"first_prize_amount"`
	FirstPrizeWinners int             `json:"first_prize_winners,omitempty" csv:"first_prize_winners"`
	TotalSales        decimal.Decimal `json:"total_sales,omitempty" csv:"total_sales"`
}

// Validate checks the structural invariants of a single round.
func (d *DrawRecord) Validate() error {
	if d.Round <= 0 {
		return fmt.Errorf("round %d: %w", d.Round, ErrInvalidRound)
	}

	seen := make(map[int]bool, DrawSize)
	prev := 0
	for _, n := range d.Numbers {
		if n < 1 || n > UniverseSize {
			return fmt.Errorf("round %d: number %d: %w", d.Round, n, ErrNumberOutOfRange)
		}
		if seen[n] {
			return fmt.Errorf("round %d: number %d: %w", d.Round, n, ErrDuplicateNumber)
		}
		if n < prev {
			return fmt.Errorf("round %d: %w", d.Round, ErrNumbersNotSorted)
		}
		seen[n] = true
		prev = n
	}

	if d.Bonus < 1 || d.Bonus > UniverseSize {
		return fmt.Errorf("round %d: bonus %d: %w", d.Round, d.Bonus, ErrNumberOutOfRange)
	}
	if seen[d.Bonus] {
		return fmt.Errorf("round %d: bonus %d: %w", d.Round, d.Bonus, ErrDuplicateNumber)
	}

	return nil
}

// Contains reports whether n is one of the six primary numbers.
func (d *DrawRecord) Contains(n int) bool {
	for _, m := range d.Numbers {
		if m == n {
			return true
		}
	}
	return false
}

// NumberSet returns the primary numbers as a membership set.
func (d *DrawRecord) NumberSet() map[int]bool {
	set := make(map[int]bool, DrawSize)
	for _, n := range d.Numbers {
		set[n] = true
	}
	return set
}
