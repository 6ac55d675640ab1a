package models

import "fmt"

// Sequence is an ordered history of draw rounds. It is validated once at
// construction and treated as read-only afterwards; callers must not mutate
// the records they receive.
type Sequence struct {
	records []DrawRecord
}

// NewSequence validates the given records and wraps them in a Sequence.
// Records must be sorted by round in strictly increasing order and each
// record must pass its own validation.
func NewSequence(records []DrawRecord) (*Sequence, error) {
	prev := 0
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if records[i].Round <= prev {
			return nil, fmt.Errorf("record %d: round %d after round %d: %w",
				i, records[i].Round, prev, ErrRoundsNotIncreasing)
		}
		prev = records[i].Round
	}
	return &Sequence{records: records}, nil
}

// Len returns the number of rounds in the sequence.
func (s *Sequence) Len() int {
	return len(s.records)
}

// At returns the record at position i.
func (s *Sequence) At(i int) DrawRecord {
	return s.records[i]
}

// Slice returns the records in positions [i, j] inclusive.
func (s *Sequence) Slice(i, j int) []DrawRecord {
	return s.records[i : j+1]
}

// Records returns the full backing slice.
func (s *Sequence) Records() []DrawRecord {
	return s.records
}

// LastRound returns the round number of the final record, or 0 when empty.
func (s *Sequence) LastRound() int {
	if len(s.records) == 0 {
		return 0
	}
	return s.records[len(s.records)-1].Round
}
