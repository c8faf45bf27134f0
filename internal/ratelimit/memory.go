package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/nota-flow/internal/service"
)

// MemoryStore is an in-process service.EventStore, for tests and one-shot runs.
type MemoryStore struct {
	events map[string][]time.Time
	mu     sync.Mutex
}

var _ service.EventStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]time.Time)}
}

// RecordEventIfUnder implements service.EventStore.
func (m *MemoryStore) RecordEventIfUnder(_ context.Context, key string, since, now time.Time, limit int) (service.EventWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var w service.EventWindow
	for _, at := range m.events[key] {
		if at.After(since) {
			if w.Count == 0 || at.Before(w.Oldest) {
				w.Oldest = at
			}
			w.Count++
		}
	}
	if w.Count < limit {
		m.events[key] = append(m.events[key], now)
		w.Recorded = true
	}
	return w, nil
}

// PruneEvents implements service.EventStore.
func (m *MemoryStore) PruneEvents(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pruned int64
	for key, times := range m.events {
		kept := times[:0]
		for _, at := range times {
			if at.After(before) {
				kept = append(kept, at)
			} else {
				pruned++
			}
		}
		if len(kept) == 0 {
			delete(m.events, key)
			continue
		}
		m.events[key] = kept
	}
	return pruned, nil
}
