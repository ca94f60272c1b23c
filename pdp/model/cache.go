package model

import "time"

// CacheEntry wraps a cached value with the time it was stored; freshness is judged on read.
type CacheEntry[V any] struct {
	Value    V         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Fresh reports whether the entry is still inside ttl at now.
func (e CacheEntry[V]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}
