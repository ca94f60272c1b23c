package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is a read-through TTL cache. Entries are judged fresh on read and evicted lazily;
// nothing sweeps in the background. Implementations never return an error: a failed read
// is a miss and a failed write is dropped.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
	Delete(ctx context.Context, key string)
}

// KeyFunc derives the stored key from a raw lookup key.
type KeyFunc func(raw string) string

// SHA256Key hashes raw so credentials never appear as cache keys.
func SHA256Key(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IdentityKey uses the raw key unchanged.
func IdentityKey(raw string) string {
	return raw
}

// Clock returns the current time; tests pin it.
type Clock func() time.Time

type options struct {
	clock Clock
}

type Option func(*options)

func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
