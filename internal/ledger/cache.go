package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RowSource abstracts the repository for cache loading.
type RowSource interface {
	Rows(ctx context.Context, dataset string) ([]Entry, error)
}

// Cache is a process-wide read-through cache of ledger datasets. Every Get
// returns an independent copy of the rows, so callers may slice and mutate
// freely without cross-request synchronization.
type Cache struct {
	source RowSource
	clock  func() time.Time

	mu    sync.RWMutex
	data  map[string]cacheEntry
	group singleflight.Group
}

type cacheEntry struct {
	rows      []Entry
	refreshed time.Time
}

// NewCache constructs the dataset cache.
func NewCache(source RowSource) *Cache {
	return &Cache{
		source: source,
		clock:  time.Now,
		data:   make(map[string]cacheEntry),
	}
}

// WithClock overrides the cache clock for testing.
func (c *Cache) WithClock(fn func() time.Time) {
	if fn != nil {
		c.clock = fn
	}
}

// Get returns the cached rows for the dataset, loading them on first use.
// Concurrent loads of the same dataset are collapsed into one source call.
func (c *Cache) Get(ctx context.Context, dataset string) ([]Entry, time.Time, error) {
	if c == nil || c.source == nil {
		return nil, time.Time{}, errors.New("ledger: cache not initialised")
	}

	c.mu.RLock()
	entry, ok := c.data[dataset]
	c.mu.RUnlock()
	if ok {
		return copyRows(entry.rows), entry.refreshed, nil
	}

	result, err, _ := c.group.Do(dataset, func() (interface{}, error) {
		c.mu.RLock()
		entry, ok := c.data[dataset]
		c.mu.RUnlock()
		if ok {
			return entry, nil
		}
		rows, err := c.source.Rows(ctx, dataset)
		if err != nil {
			return cacheEntry{}, err
		}
		entry = cacheEntry{rows: rows, refreshed: c.clock()}
		c.mu.Lock()
		c.data[dataset] = entry
		c.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	entry = result.(cacheEntry)
	return copyRows(entry.rows), entry.refreshed, nil
}

// LastRefreshed reports when the dataset was last loaded, if ever.
func (c *Cache) LastRefreshed(dataset string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.data[dataset]
	return entry.refreshed, ok
}

// Invalidate drops the cached rows so the next Get reloads from the source.
func (c *Cache) Invalidate(dataset string) {
	c.mu.Lock()
	delete(c.data, dataset)
	c.mu.Unlock()
}

// Refresh reloads the dataset immediately and returns the number of rows.
func (c *Cache) Refresh(ctx context.Context, dataset string) (int, error) {
	if c == nil || c.source == nil {
		return 0, errors.New("ledger: cache not initialised")
	}
	rows, err := c.source.Rows(ctx, dataset)
	if err != nil {
		return 0, err
	}
	entry := cacheEntry{rows: rows, refreshed: c.clock()}
	c.mu.Lock()
	c.data[dataset] = entry
	c.mu.Unlock()
	return len(rows), nil
}

func copyRows(rows []Entry) []Entry {
	out := make([]Entry, len(rows))
	copy(out, rows)
	return out
}
