package models

import "errors"

// Custom errors
var (
	ErrInvalidRound          = errors.New("round must be positive")
	ErrNumberOutOfRange      = errors.New("number outside universe")
	ErrDuplicateNumber       = errors.New("duplicate number")
	ErrNumbersNotSorted      = errors.New("numbers not in ascending order")
	ErrRoundsNotIncreasing   = errors.New("rounds not strictly increasing")
	ErrEmptyRanking          = errors.New("ranking has no candidates")
	ErrRankingNotSorted      = errors.New("ranking not in descending score order")
	ErrProbabilityOutOfRange = errors.New("probability outside 0-100")
)
