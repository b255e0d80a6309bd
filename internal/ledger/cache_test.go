package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	rows  []Entry
	err   error
}

func (s *countingSource) Rows(ctx context.Context, dataset string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestCacheGetLoadsOnce(t *testing.T) {
	source := &countingSource{rows: []Entry{mkEntry("2025-06-01", "3101001", 100, 0)}}
	cache := NewCache(source)

	for i := 0; i < 3; i++ {
		rows, _, err := cache.Get(context.Background(), "mayor")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
	}
	if source.callCount() != 1 {
		t.Fatalf("expected single source load, got %d", source.callCount())
	}
}

func TestCacheGetCopyOnRead(t *testing.T) {
	source := &countingSource{rows: []Entry{mkEntry("2025-06-01", "3101001", 100, 0)}}
	cache := NewCache(source)

	first, _, err := cache.Get(context.Background(), "mayor")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first[0].Debit = 999999

	second, _, err := cache.Get(context.Background(), "mayor")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second[0].Debit != 100 {
		t.Fatalf("cached rows mutated through caller copy: %f", second[0].Debit)
	}
}

func TestCacheInvalidateForcesReload(t *testing.T) {
	source := &countingSource{rows: []Entry{mkEntry("2025-06-01", "3101001", 100, 0)}}
	cache := NewCache(source)

	if _, _, err := cache.Get(context.Background(), "mayor"); err != nil {
		t.Fatalf("get: %v", err)
	}
	cache.Invalidate("mayor")
	if _, _, err := cache.Get(context.Background(), "mayor"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if source.callCount() != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", source.callCount())
	}
}

func TestCacheRefreshUpdatesTimestamp(t *testing.T) {
	source := &countingSource{rows: []Entry{
		mkEntry("2025-06-01", "3101001", 100, 0),
		mkEntry("2025-06-02", "3101002", 200, 0),
	}}
	cache := NewCache(source)

	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	cache.WithClock(func() time.Time { return now })

	count, err := cache.Refresh(context.Background(), "mayor")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
	refreshed, ok := cache.LastRefreshed("mayor")
	if !ok || !refreshed.Equal(now) {
		t.Fatalf("last refreshed = %v (%v)", refreshed, ok)
	}
}

func TestCacheGetPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("dataset unavailable")
	cache := NewCache(&countingSource{err: wantErr})
	if _, _, err := cache.Get(context.Background(), "mayor"); !errors.Is(err, wantErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}
