//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/store"
)

type fakeStore struct {
	mu      sync.Mutex
	entries map[uint64]domain.IgnoreEntry
	pingErr error
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[uint64]domain.IgnoreEntry)}
}

func (f *fakeStore) IsIgnored(_ context.Context, userID uint64) (*domain.IgnoreEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[userID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) AddIgnore(_ context.Context, userID uint64, reason *string, quiet bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[userID]; ok {
		return false, nil
	}
	f.entries[userID] = domain.IgnoreEntry{UserID: userID, Reason: reason, Quiet: quiet}
	return true, nil
}

func (f *fakeStore) RemoveIgnore(_ context.Context, userID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[userID]
	delete(f.entries, userID)
	return ok, nil
}

func (f *fakeStore) ListIgnored(_ context.Context) ([]domain.IgnoreEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.IgnoreEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeStore) Close() error                 { return nil }

var _ store.IgnoreStore = (*fakeStore)(nil)

type fakeSession struct {
	snap domain.SessionSnapshot
}

func (f fakeSession) Snapshot() domain.SessionSnapshot { return f.snap }

func newTestRouter(st *fakeStore, sess fakeSession) http.Handler {
	return NewRouter(RouterConfig{
		Status:         NewStatusHandler(st, sess, "v1.0.0"),
		AllowedOrigins: []string{"*"},
	})
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode %s response: %v", path, err)
	}
	return w, body
}

func TestHealth(t *testing.T) {
	st := newFakeStore()
	h := newTestRouter(st, fakeSession{snap: domain.SessionSnapshot{Ready: true}})

	w, body := get(t, h, "/health")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if body["status"] != "healthy" || body["version"] != "v1.0.0" {
		t.Errorf("Unexpected body %v", body)
	}
	checks := body["checks"].(map[string]interface{})
	if checks["database"] != "ok" || checks["relay"] != "ready" {
		t.Errorf("Unexpected checks %v", checks)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	st := newFakeStore()
	st.pingErr = errors.New("database is closed")
	h := newTestRouter(st, fakeSession{})

	w, body := get(t, h, "/health")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	checks := body["checks"].(map[string]interface{})
	if body["status"] != "degraded" || checks["database"] != "unreachable" || checks["relay"] != "starting" {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestSession(t *testing.T) {
	last := uint64(18446744073709551615)
	h := newTestRouter(newFakeStore(), fakeSession{snap: domain.SessionSnapshot{Ready: true, LastContacted: &last}})

	w, body := get(t, h, "/api/session")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	// IDs are strings so they survive JavaScript number precision.
	if body["last_contacted"] != "18446744073709551615" || body["ready"] != true {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestListIgnored(t *testing.T) {
	st := newFakeStore()
	reason := "spam"
	st.entries[2] = domain.IgnoreEntry{UserID: 2, Reason: &reason}
	st.entries[1] = domain.IgnoreEntry{UserID: 1, Quiet: true}
	h := newTestRouter(st, fakeSession{})

	w, body := get(t, h, "/api/ignored")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if body["count"] != float64(2) {
		t.Errorf("Expected count 2, got %v", body["count"])
	}
	entries := body["ignored"].([]interface{})
	first := entries[0].(map[string]interface{})
	if first["user_id"] != "1" || first["quiet"] != true {
		t.Errorf("Unexpected first entry %v", first)
	}
}

func TestListIgnored_Empty(t *testing.T) {
	h := newTestRouter(newFakeStore(), fakeSession{})

	_, body := get(t, h, "/api/ignored")

	entries, ok := body["ignored"].([]interface{})
	if !ok || len(entries) != 0 {
		t.Errorf("Expected empty list, got %v", body["ignored"])
	}
}

func TestListIgnored_StoreError(t *testing.T) {
	st := newFakeStore()
	st.listErr = errors.New("boom")
	h := newTestRouter(st, fakeSession{})

	w, _ := get(t, h, "/api/ignored")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGetIgnored(t *testing.T) {
	st := newFakeStore()
	reason := "rude"
	st.entries[111] = domain.IgnoreEntry{UserID: 111, Reason: &reason}
	h := newTestRouter(st, fakeSession{})

	tests := []struct {
		path string
		want int
	}{
		{path: "/api/ignored/111", want: http.StatusOK},
		{path: "/api/ignored/222", want: http.StatusNotFound},
		{path: "/api/ignored/abc", want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(strings.TrimPrefix(tc.path, "/api/ignored/"), func(t *testing.T) {
			w, body := get(t, h, tc.path)
			if w.Code != tc.want {
				t.Errorf("Expected status %d, got %d", tc.want, w.Code)
			}
			if tc.want == http.StatusOK && body["reason"] != "rude" {
				t.Errorf("Unexpected body %v", body)
			}
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(newFakeStore(), fakeSession{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected default Go collectors in /metrics output")
	}
}
