package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chkomi/lotto/internal/models"
)

// CSVStore reads and writes draw history as a CSV file. It implements
// DrawSource for offline runs and doubles as the sink the sync service
// appends fetched rounds to.
type CSVStore struct {
	path   string
	logger *logrus.Logger

	mu      sync.Mutex
	loaded  bool
	records []models.DrawRecord
	byRound map[int]int
}

// drawRow is the flat CSV representation of a draw record.
type drawRow struct {
	Round             int    `csv:"round"`
	Date              string `csv:"date"`
	N1                int    `csv:"n1"`
	N2                int    `csv:"n2"`
	N3                int    `csv:"n3"`
	N4                int    `csv:"n4"`
	N5                int    `csv:"n5"`
	N6                int    `csv:"n6"`
	Bonus             int    `csv:"bonus"`
	FirstPrizeAmount  string `csv:"first_prize_amount"`
	FirstPrizeWinners int    `csv:"first_prize_winners"`
	TotalSales        string `csv:"total_sales"`
}

// NewCSVStore creates a store backed by the CSV file at path. The file may
// not exist yet; it is created on the first save.
func NewCSVStore(path string, logger *logrus.Logger) *CSVStore {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &CSVStore{
		path:   path,
		logger: logger,
	}
}

// Load returns all stored records sorted by round.
func (s *CSVStore) Load() ([]models.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}

	out := make([]models.DrawRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// LoadSequence returns the stored history as a validated sequence.
func (s *CSVStore) LoadSequence() (*models.Sequence, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	return models.NewSequence(records)
}

// Save replaces the store contents with the given records.
func (s *CSVStore) Save(records []models.DrawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

// Append merges new records into the store, skipping rounds already
// present, and persists the result.
func (s *CSVStore) Append(records []models.DrawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	added := 0
	merged := make([]models.DrawRecord, len(s.records))
	copy(merged, s.records)
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return NewDataSourceError(s.Name(), ErrCodeInvalidData, fmt.Sprintf("round %d: malformed draw", records[i].Round), err)
		}
		if _, exists := s.byRound[records[i].Round]; exists {
			s.logger.Debugf("Skipping round %d: already stored", records[i].Round)
			continue
		}
		merged = append(merged, records[i])
		added++
	}

	if added == 0 {
		return nil
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Round < merged[j].Round })
	return s.save(merged)
}

// LastRound returns the highest stored round number, or 0 when empty.
func (s *CSVStore) LastRound() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return 0, err
	}
	if len(s.records) == 0 {
		return 0, nil
	}
	return s.records[len(s.records)-1].Round, nil
}

// FetchDraw retrieves a single stored round.
func (s *CSVStore) FetchDraw(ctx context.Context, round int) (*models.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}

	idx, ok := s.byRound[round]
	if !ok {
		return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, fmt.Sprintf("round %d not stored", round), ErrRoundNotFound)
	}
	record := s.records[idx]
	return &record, nil
}

// FetchLatest retrieves the most recent stored round.
func (s *CSVStore) FetchLatest(ctx context.Context) (*models.DrawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	if len(s.records) == 0 {
		return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, "store is empty", ErrRoundNotFound)
	}
	record := s.records[len(s.records)-1]
	return &record, nil
}

// FetchRange retrieves stored rounds fromRound through toRound inclusive.
// Rounds missing from the file are skipped.
func (s *CSVStore) FetchRange(ctx context.Context, fromRound, toRound int) ([]models.DrawRecord, error) {
	if fromRound <= 0 || toRound < fromRound {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, fmt.Sprintf("invalid range %d..%d", fromRound, toRound), models.ErrInvalidRound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}

	var out []models.DrawRecord
	for i := range s.records {
		if s.records[i].Round >= fromRound && s.records[i].Round <= toRound {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Name returns the draw source name
func (s *CSVStore) Name() string {
	return "csv"
}

// load populates the in-memory cache from disk. Callers must hold mu.
func (s *CSVStore) load() error {
	if s.loaded {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = nil
			s.byRound = map[int]int{}
			s.loaded = true
			return nil
		}
		return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to open store", err)
	}
	defer f.Close()

	var rows []drawRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			s.records = nil
			s.byRound = map[int]int{}
			s.loaded = true
			return nil
		}
		return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to parse store", err)
	}

	records := make([]models.DrawRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toRecord()
		if err != nil {
			return err
		}
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Round < records[j].Round })

	byRound := make(map[int]int, len(records))
	for i := range records {
		if _, dup := byRound[records[i].Round]; dup {
			return NewDataSourceError(s.Name(), ErrCodeInvalidData, fmt.Sprintf("round %d stored twice", records[i].Round), models.ErrRoundsNotIncreasing)
		}
		byRound[records[i].Round] = i
	}

	s.records = records
	s.byRound = byRound
	s.loaded = true
	return nil
}

// save writes records to disk atomically and refreshes the cache. Callers
// must hold mu.
func (s *CSVStore) save(records []models.DrawRecord) error {
	rows := make([]drawRow, len(records))
	byRound := make(map[int]int, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return NewDataSourceError(s.Name(), ErrCodeInvalidData, fmt.Sprintf("round %d: malformed draw", records[i].Round), err)
		}
		if _, dup := byRound[records[i].Round]; dup {
			return NewDataSourceError(s.Name(), ErrCodeInvalidData, fmt.Sprintf("round %d stored twice", records[i].Round), models.ErrRoundsNotIncreasing)
		}
		byRound[records[i].Round] = i
		rows[i] = fromRecord(&records[i])
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to create store directory", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to create store file", err)
	}

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to write store", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to close store file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return NewDataSourceError(s.Name(), ErrCodeInvalidData, "failed to replace store file", err)
	}

	stored := make([]models.DrawRecord, len(records))
	copy(stored, records)
	s.records = stored
	s.byRound = byRound
	s.loaded = true
	return nil
}

// toRecord converts a CSV row into a validated draw record.
func (r *drawRow) toRecord() (*models.DrawRecord, error) {
	date, err := time.Parse(drawDateLayout, r.Date)
	if err != nil {
		return nil, NewDataSourceError("csv", ErrCodeInvalidData, fmt.Sprintf("round %d: bad draw date %q", r.Round, r.Date), err)
	}

	numbers := []int{r.N1, r.N2, r.N3, r.N4, r.N5, r.N6}
	sort.Ints(numbers)

	firstPrize, err := parseAmount(r.FirstPrizeAmount)
	if err != nil {
		return nil, NewDataSourceError("csv", ErrCodeInvalidData, fmt.Sprintf("round %d: bad prize amount %q", r.Round, r.FirstPrizeAmount), err)
	}
	totalSales, err := parseAmount(r.TotalSales)
	if err != nil {
		return nil, NewDataSourceError("csv", ErrCodeInvalidData, fmt.Sprintf("round %d: bad sales amount %q", r.Round, r.TotalSales), err)
	}

	record := &models.DrawRecord{
		Round:             r.Round,
		Date:              date,
		Bonus:             r.Bonus,
		FirstPrizeAmount:  firstPrize,
		FirstPrizeWinners: r.FirstPrizeWinners,
		TotalSales:        totalSales,
	}
	copy(record.Numbers[:], numbers)

	if err := record.Validate(); err != nil {
		return nil, NewDataSourceError("csv", ErrCodeInvalidData, fmt.Sprintf("round %d: malformed draw", r.Round), err)
	}

	return record, nil
}

// fromRecord converts a draw record into its CSV row.
func fromRecord(record *models.DrawRecord) drawRow {
	return drawRow{
		Round:             record.Round,
		Date:              record.Date.Format(drawDateLayout),
		N1:                record.Numbers[0],
		N2:                record.Numbers[1],
		N3:                record.Numbers[2],
		N4:                record.Numbers[3],
		N5:                record.Numbers[4],
		N6:                record.Numbers[5],
		Bonus:             record.Bonus,
		FirstPrizeAmount:  record.FirstPrizeAmount.String(),
		FirstPrizeWinners: record.FirstPrizeWinners,
		TotalSales:        record.TotalSales.String(),
	}
}

// parseAmount parses a currency cell, treating empty as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
