package hold

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ExpiryIndex is a time-ordered record of when each active hold expires.
// The manager's per-hold timers do the expiring; the index lets the sweeper
// find holds whose timer was lost and keeps the schedule outside the
// process when backed by Redis.
type ExpiryIndex interface {
	Schedule(ctx context.Context, holdID string, expiresAt time.Time) error
	Remove(ctx context.Context, holdID string) error
	// Due returns up to limit hold IDs whose expiry is at or before now,
	// earliest first.
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// MemoryIndex is an in-process ExpiryIndex.
type MemoryIndex struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryIndex returns an empty in-process index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]time.Time)}
}

func (m *MemoryIndex) Schedule(_ context.Context, holdID string, expiresAt time.Time) error {
	m.mu.Lock()
	m.entries[holdID] = expiresAt
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Remove(_ context.Context, holdID string) error {
	m.mu.Lock()
	delete(m.entries, holdID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Due(_ context.Context, now time.Time, limit int) ([]string, error) {
	type due struct {
		id string
		at time.Time
	}
	m.mu.Lock()
	var found []due
	for id, at := range m.entries {
		if !at.After(now) {
			found = append(found, due{id, at})
		}
	}
	m.mu.Unlock()
	sort.Slice(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	ids := make([]string, 0, len(found))
	for _, d := range found {
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]time.Time)
	m.mu.Unlock()
	return nil
}

// Len reports the number of scheduled holds.
func (m *MemoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
