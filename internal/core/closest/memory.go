package closest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Memory is an in process Index kept sorted per source
type Memory struct {
	mu      sync.RWMutex
	entries map[int64][]Entry
}

// NewMemory returns an index seeded with entries
func NewMemory(entries ...Entry) *Memory {
	m := &Memory{entries: make(map[int64][]Entry)}
	m.Add(entries...)
	return m
}

// Add inserts entries keeping each source ordered by timestamp
// an entry with the same source and timestamp replaces the existing one
func (m *Memory) Add(entries ...Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		list := m.entries[e.SourceID]
		i := sort.Search(len(list), func(i int) bool { return !list[i].Timestamp.Before(e.Timestamp) })
		if i < len(list) && list[i].Timestamp.Equal(e.Timestamp) {
			list[i] = e
			continue
		}
		m.entries[e.SourceID] = slices.Insert(list, i, e)
	}
}

// Len returns the number of entries held for a source
func (m *Memory) Len(sourceID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[sourceID])
}

// NearestBefore implements Index
func (m *Memory) NearestBefore(_ context.Context, sourceID int64, t time.Time) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[sourceID]
	i := firstAtOrAfter(list, t)
	if i == 0 {
		return nil, nil
	}
	e := list[i-1]
	return &e, nil
}

// NearestAtOrAfter implements Index
func (m *Memory) NearestAtOrAfter(_ context.Context, sourceID int64, t time.Time) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.entries[sourceID]
	i := firstAtOrAfter(list, t)
	if i == len(list) {
		return nil, nil
	}
	e := list[i]
	return &e, nil
}

func firstAtOrAfter(list []Entry, t time.Time) int {
	return sort.Search(len(list), func(i int) bool { return !list[i].Timestamp.Before(t) })
}
