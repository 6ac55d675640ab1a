// Package helpers provides shared fixtures for integration and e2e tests.
package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/chkomi/lotto/internal/datasource"
	"github.com/chkomi/lotto/internal/models"
)

// Draw fabricates one valid round. Numbers rotate with the round so
// frequency-style strategies have structure to find.
func Draw(round int) models.DrawRecord {
	base := (round*7)%39 + 1
	record := models.DrawRecord{
		Round: round,
		Date:  time.Date(2002, time.December, 7, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*(round-1)),
		Bonus: base + 6,
	}
	for i := range record.Numbers {
		record.Numbers[i] = base + i
	}
	return record
}

// Draws fabricates rounds from..to inclusive.
func Draws(from, to int) []models.DrawRecord {
	draws := make([]models.DrawRecord, 0, to-from+1)
	for round := from; round <= to; round++ {
		draws = append(draws, Draw(round))
	}
	return draws
}

// NewStore creates a CSV store on a temp path, seeded with draws.
func NewStore(t *testing.T, draws []models.DrawRecord) *datasource.CSVStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "draws.csv")
	store := datasource.NewCSVStore(path, QuietLogger())
	if len(draws) > 0 {
		require.NoError(t, store.Save(draws))
	}
	return store
}

// DrawAPIServer serves the official JSON shape for rounds in
// [from, latest()]. latest is re-evaluated per request so callers can tie
// it to the wall clock.
func DrawAPIServer(t *testing.T, from int, latest func() int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		round, _ := strconv.Atoi(r.URL.Query().Get("drwNo"))
		if round < from || round > latest() {
			fmt.Fprint(w, `{"returnValue":"fail"}`)
			return
		}

		record := Draw(round)
		payload := map[string]interface{}{
			"returnValue":    "success",
			"drwNo":          record.Round,
			"drwNoDate":      record.Date.Format("2006-01-02"),
			"drwtNo1":        record.Numbers[0],
			"drwtNo2":        record.Numbers[1],
			"drwtNo3":        record.Numbers[2],
			"drwtNo4":        record.Numbers[3],
			"drwtNo5":        record.Numbers[4],
			"drwtNo6":        record.Numbers[5],
			"bnusNo":         record.Bonus,
			"firstWinamnt":   1859093250,
			"firstPrzwnerCo": 12,
			"totSellamnt":    81032551500,
		}
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

// QuietLogger returns a logger that only reports problems.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}
