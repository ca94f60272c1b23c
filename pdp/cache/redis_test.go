package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

type xorCipher struct{}

func (xorCipher) Encrypt(p []byte) ([]byte, error) { return xor(p), nil }
func (xorCipher) Decrypt(c []byte) ([]byte, error) { return xor(c), nil }

func xor(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[i] = b[i] ^ 0x5a
	}
	return out
}

type profile struct {
	Role string `json:"role"`
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name   string
		cipher cache.Cipher
	}{
		{name: "plain", cipher: nil},
		{name: "encrypted", cipher: xorCipher{}},
	} {
		t.Run(tc.name+" round trip through redis", func(t *testing.T) {
			client := new(MockRedisClient)
			clock := &fakeClock{now: start}
			store := cache.NewRedisStore[profile](client, "authz:profile", 5*time.Minute, tc.cipher, cache.WithClock(clock.Now))

			var stored string
			client.On("Set", ctx, "authz:profile:alice", mock.Anything, 5*time.Minute).
				Run(func(args mock.Arguments) { stored = args.Get(2).(string) }).
				Return(redis.NewStatusResult("OK", nil))

			store.Set(ctx, "alice", profile{Role: "admin"})
			if tc.cipher != nil {
				assert.NotContains(t, stored, "admin")
			}

			client.On("Get", ctx, "authz:profile:alice").Return(redis.NewStringResult(stored, nil))
			clock.Advance(time.Minute)

			got, ok := store.Get(ctx, "alice")
			assert.True(t, ok)
			assert.Equal(t, "admin", got.Role)
			client.AssertExpectations(t)
		})
	}

	t.Run("stale entry is deleted on read", func(t *testing.T) {
		client := new(MockRedisClient)
		clock := &fakeClock{now: start}
		store := cache.NewRedisStore[profile](client, "p", time.Minute, nil, cache.WithClock(clock.Now))

		var stored string
		client.On("Set", ctx, "p:bob", mock.Anything, time.Minute).
			Run(func(args mock.Arguments) { stored = args.Get(2).(string) }).
			Return(redis.NewStatusResult("OK", nil))
		store.Set(ctx, "bob", profile{Role: "user"})

		client.On("Get", ctx, "p:bob").Return(redis.NewStringResult(stored, nil))
		client.On("Del", ctx, []string{"p:bob"}).Return(redis.NewIntResult(1, nil))
		clock.Advance(time.Minute)

		_, ok := store.Get(ctx, "bob")
		assert.False(t, ok)
		client.AssertCalled(t, "Del", ctx, []string{"p:bob"})
	})

	t.Run("missing key is a miss", func(t *testing.T) {
		client := new(MockRedisClient)
		store := cache.NewRedisStore[profile](client, "p", time.Minute, nil)
		client.On("Get", ctx, "p:nobody").Return(redis.NewStringResult("", redis.Nil))

		_, ok := store.Get(ctx, "nobody")
		assert.False(t, ok)
	})

	t.Run("redis failure is a miss", func(t *testing.T) {
		client := new(MockRedisClient)
		store := cache.NewRedisStore[profile](client, "p", time.Minute, nil)
		client.On("Get", ctx, "p:x").Return(redis.NewStringResult("", errors.New("connection refused")))

		_, ok := store.Get(ctx, "x")
		assert.False(t, ok)
	})
}
