package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/ashureev/modmail/internal/domain"
)

type fakeLister struct {
	entries []domain.IgnoreEntry
	err     error
	calls   atomic.Int32
}

func (f *fakeLister) ListIgnored(context.Context) ([]domain.IgnoreEntry, error) {
	f.calls.Add(1)
	return f.entries, f.err
}

func gaugeValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := IgnoredUsers.Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestRefreshIgnored(t *testing.T) {
	lister := &fakeLister{entries: []domain.IgnoreEntry{{UserID: 1}, {UserID: 2}}}

	n, ok := refreshIgnored(context.Background(), lister)

	if !ok || n != 2 {
		t.Fatalf("refreshIgnored() = %d, %v", n, ok)
	}
	if got := gaugeValue(t); got != 2 {
		t.Errorf("Expected gauge 2, got %v", got)
	}
}

func TestRefreshIgnored_KeepsValueOnError(t *testing.T) {
	IgnoredUsers.Set(7)
	lister := &fakeLister{err: errors.New("database is locked")}

	if _, ok := refreshIgnored(context.Background(), lister); ok {
		t.Fatal("Expected refresh to fail")
	}
	if got := gaugeValue(t); got != 7 {
		t.Errorf("Expected gauge to stay at 7, got %v", got)
	}
}

func TestStartIgnoreListWorker_StopsWithContext(t *testing.T) {
	lister := &fakeLister{}
	ctx, cancel := context.WithCancel(context.Background())

	StartIgnoreListWorker(ctx, lister, time.Hour)

	deadline := time.Now().Add(2 * time.Second)
	for lister.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not run an initial refresh")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}
