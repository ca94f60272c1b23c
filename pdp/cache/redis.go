package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

// RedisClient is the subset of go-redis the store needs; *redis.Client satisfies it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cipher seals cached payloads at rest.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// RedisStore shares cache entries between instances. The stored timestamp is checked on
// read exactly like MemoryStore; the redis expiry only reclaims memory.
type RedisStore[V any] struct {
	client RedisClient
	prefix string
	ttl    time.Duration
	clock  Clock
	cipher Cipher
}

func NewRedisStore[V any](client RedisClient, prefix string, ttl time.Duration, cipher Cipher, opts ...Option) *RedisStore[V] {
	o := buildOptions(opts)
	return &RedisStore[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		clock:  o.clock,
		cipher: cipher,
	}
}

func (s *RedisStore[V]) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	raw, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return zero, false
	} else if err != nil {
		logger.Warn("Cache read failed", zap.String("prefix", s.prefix), zap.Error(err))
		return zero, false
	}

	payload, err := s.open(raw)
	if err != nil {
		logger.Warn("Cache entry unreadable", zap.String("prefix", s.prefix), zap.Error(err))
		s.Delete(ctx, key)
		return zero, false
	}

	var entry model.CacheEntry[V]
	if err := json.Unmarshal(payload, &entry); err != nil {
		logger.Warn("Failed to unmarshal cache entry", zap.String("prefix", s.prefix), zap.Error(err))
		s.Delete(ctx, key)
		return zero, false
	}

	if !entry.Fresh(s.clock(), s.ttl) {
		s.Delete(ctx, key)
		return zero, false
	}
	return entry.Value, true
}

func (s *RedisStore[V]) Set(ctx context.Context, key string, value V) {
	payload, err := json.Marshal(model.CacheEntry[V]{Value: value, StoredAt: s.clock()})
	if err != nil {
		logger.Warn("Failed to marshal cache entry", zap.String("prefix", s.prefix), zap.Error(err))
		return
	}

	sealed, err := s.seal(payload)
	if err != nil {
		logger.Warn("Failed to encrypt cache entry", zap.String("prefix", s.prefix), zap.Error(err))
		return
	}

	if err := s.client.Set(ctx, s.key(key), sealed, s.ttl).Err(); err != nil {
		logger.Warn("Cache write failed", zap.String("prefix", s.prefix), zap.Error(err))
	}
}

func (s *RedisStore[V]) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		logger.Warn("Cache delete failed", zap.String("prefix", s.prefix), zap.Error(err))
	}
}

func (s *RedisStore[V]) seal(payload []byte) (string, error) {
	if s.cipher == nil {
		return string(payload), nil
	}
	encrypted, err := s.cipher.Encrypt(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func (s *RedisStore[V]) open(raw string) ([]byte, error) {
	if s.cipher == nil {
		return []byte(raw), nil
	}
	encrypted, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return s.cipher.Decrypt(encrypted)
}
