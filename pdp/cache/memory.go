package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

// MemoryStore is a process-local Store. Concurrent writers to one key race harmlessly:
// both compute the same value and the last write wins.
type MemoryStore[V any] struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry[V]
	ttl     time.Duration
	clock   Clock
}

func NewMemoryStore[V any](ttl time.Duration, opts ...Option) *MemoryStore[V] {
	o := buildOptions(opts)
	return &MemoryStore[V]{
		entries: make(map[string]model.CacheEntry[V]),
		ttl:     ttl,
		clock:   o.clock,
	}
}

func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	now := s.clock()

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}

	if !entry.Fresh(now, s.ttl) {
		s.mu.Lock()
		// a concurrent Set may have refreshed the entry since the read lock was dropped
		if current, ok := s.entries[key]; ok && !current.Fresh(now, s.ttl) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return entry.Value, true
}

func (s *MemoryStore[V]) Set(_ context.Context, key string, value V) {
	s.mu.Lock()
	s.entries[key] = model.CacheEntry[V]{Value: value, StoredAt: s.clock()}
	s.mu.Unlock()
}

func (s *MemoryStore[V]) Delete(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len counts stored entries, stale ones included.
func (s *MemoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
