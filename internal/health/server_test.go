package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeStore struct {
	lastRound int
	err       error
}

func (f *fakeStore) LastRound() (int, error) {
	return f.lastRound, f.err
}

func TestNewServerDefaultPort(t *testing.T) {
	s := NewServer(Config{ServiceName: "fetch"})
	if s.port != "8080" {
		t.Fatalf("port = %s, want 8080", s.port)
	}
}

func TestHandleHealth(t *testing.T) {
	s := NewServer(Config{ServiceName: "fetch", Version: "1.2.3", Commit: "abc1234"})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "fetch" || resp.Version != "1.2.3" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleReadyNotReady(t *testing.T) {
	s := NewServer(Config{ServiceName: "fetch"})

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp ReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checks["service"] != "not_ready" {
		t.Fatalf("service check = %q, want not_ready", resp.Checks["service"])
	}
}

func TestHandleReadyReportsStoreRound(t *testing.T) {
	s := NewServer(Config{ServiceName: "fetch", Store: &fakeStore{lastRound: 1100}})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp ReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Checks["store"] != "last_round 1100" {
		t.Fatalf("store check = %q, want last_round 1100", resp.Checks["store"])
	}
}

func TestHandleReadyStoreError(t *testing.T) {
	s := NewServer(Config{ServiceName: "fetch", Store: &fakeStore{err: errors.New("corrupt history")}})
	s.SetReady(true)

	rec := httptest.NewRecorder()
	s.handleReady(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp ReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Checks["store"], "error:") {
		t.Fatalf("store check = %q, want error prefix", resp.Checks["store"])
	}
}

func TestHandleLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "fetch"})

	rec := httptest.NewRecorder()
	s.handleLive(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
