package token_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/token"
)

var invocation = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

func unsignedToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".signature"
}

type countingVerifier struct {
	inner token.Verifier
	calls int32
}

func (c *countingVerifier) Verify(ctx context.Context, raw string) (jwt.MapClaims, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.inner.Verify(ctx, raw)
}

func newDecoder(clock func() time.Time, opts ...token.DecoderOption) (*token.Decoder, *countingVerifier) {
	v := &countingVerifier{inner: token.NewUnverifiedVerifier()}
	store := cache.NewMemoryStore[model.IdentityClaims](5*time.Minute, cache.WithClock(clock))
	return token.NewDecoder(v, store, opts...), v
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDecodeMalformed(t *testing.T) {
	d, _ := newDecoder(fixedClock(invocation))
	ctx := context.Background()

	tokens := map[string]string{
		"one segment":        "abc",
		"two segments":       "abc.def",
		"four segments":      "a.b.c.d",
		"payload not base64": "a.!!!.c",
		"payload not json":   "a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c",
		"payload json array": "a." + base64.RawURLEncoding.EncodeToString([]byte(`[1,2]`)) + ".c",
		"empty payload":      "a..c",
		"demo when disabled": "demo.admin",
	}
	for name, raw := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := d.Decode(ctx, raw, invocation)
			assert.ErrorIs(t, err, authz_errors.ErrTokenMalformed)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := d.Decode(ctx, "", invocation)
		assert.ErrorIs(t, err, authz_errors.ErrTokenMissing)
	})
}

func TestDecodeClaims(t *testing.T) {
	d, _ := newDecoder(fixedClock(invocation))
	ctx := context.Background()

	t.Run("cognito username and groups", func(t *testing.T) {
		raw := unsignedToken(t, map[string]interface{}{
			"sub":              "abc-123",
			"cognito:username": "maria",
			"email":            "maria@medisupply.com",
			"cognito:groups":   []string{"compras", "ventas"},
			"exp":              invocation.Add(time.Hour).Unix(),
		})
		id, err := d.Decode(ctx, raw, invocation)
		require.NoError(t, err)
		assert.Equal(t, "maria", id.Username)
		assert.Equal(t, "abc-123", id.Subject)
		assert.Equal(t, "maria@medisupply.com", id.Email)
		assert.Equal(t, []string{"compras", "ventas"}, id.Groups)
		assert.Equal(t, invocation.Add(time.Hour).Unix(), id.ExpiresAt)
	})

	t.Run("falls back to sub then unknown", func(t *testing.T) {
		id, err := d.Decode(ctx, unsignedToken(t, map[string]interface{}{"sub": "only-sub"}), invocation)
		require.NoError(t, err)
		assert.Equal(t, "only-sub", id.Username)

		id, err = d.Decode(ctx, unsignedToken(t, map[string]interface{}{"email": "x@y.z"}), invocation)
		require.NoError(t, err)
		assert.Equal(t, "unknown", id.Username)
	})

	t.Run("single string groups claim", func(t *testing.T) {
		id, err := d.Decode(ctx, unsignedToken(t, map[string]interface{}{"sub": "s", "groups": "admin"}), invocation)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, id.Groups)
	})

	t.Run("padded payload is tolerated", func(t *testing.T) {
		payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"pad"}`))
		require.Contains(t, payload, "=")
		id, err := d.Decode(ctx, "h."+payload+".s", invocation)
		require.NoError(t, err)
		assert.Equal(t, "pad", id.Username)
	})

	t.Run("zero exp means no expiry", func(t *testing.T) {
		id, err := d.Decode(ctx, unsignedToken(t, map[string]interface{}{"sub": "z", "exp": 0}), invocation)
		require.NoError(t, err)
		assert.Zero(t, id.ExpiresAt)
	})
}

func TestDecodeExpired(t *testing.T) {
	d, _ := newDecoder(fixedClock(invocation))
	raw := unsignedToken(t, map[string]interface{}{
		"sub": "late",
		"exp": invocation.Add(-time.Second).Unix(),
	})

	_, err := d.Decode(context.Background(), raw, invocation)
	assert.ErrorIs(t, err, authz_errors.ErrTokenExpired)
}

func TestDecodeNonNumericExpiry(t *testing.T) {
	d, v := newDecoder(fixedClock(invocation))
	ctx := context.Background()

	for _, exp := range []interface{}{"1000", "yesterday", true} {
		raw := unsignedToken(t, map[string]interface{}{
			"sub":              "u1",
			"cognito:username": "alice",
			"exp":              exp,
		})
		_, err := d.Decode(ctx, raw, invocation)
		assert.ErrorIs(t, err, authz_errors.ErrTokenMalformed, "exp=%v", exp)

		// never cached, so a retry is decoded and rejected again
		_, err = d.Decode(ctx, raw, invocation)
		assert.ErrorIs(t, err, authz_errors.ErrTokenMalformed)
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(&v.calls))
}

func TestDecodeCache(t *testing.T) {
	ctx := context.Background()

	t.Run("second decode inside ttl is served from cache", func(t *testing.T) {
		now := invocation
		d, v := newDecoder(func() time.Time { return now })
		raw := unsignedToken(t, map[string]interface{}{"sub": "cached"})

		first, err := d.Decode(ctx, raw, now)
		require.NoError(t, err)
		now = now.Add(4 * time.Minute)
		second, err := d.Decode(ctx, raw, now)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), atomic.LoadInt32(&v.calls))
	})

	t.Run("entry older than ttl is decoded again", func(t *testing.T) {
		now := invocation
		d, v := newDecoder(func() time.Time { return now })
		raw := unsignedToken(t, map[string]interface{}{"sub": "stale"})

		_, err := d.Decode(ctx, raw, now)
		require.NoError(t, err)
		now = now.Add(5 * time.Minute)
		_, err = d.Decode(ctx, raw, now)
		require.NoError(t, err)

		assert.Equal(t, int32(2), atomic.LoadInt32(&v.calls))
	})

	t.Run("cached identity that expired since is rejected", func(t *testing.T) {
		now := invocation
		d, v := newDecoder(func() time.Time { return now })
		raw := unsignedToken(t, map[string]interface{}{
			"sub": "short",
			"exp": invocation.Add(time.Minute).Unix(),
		})

		_, err := d.Decode(ctx, raw, now)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, err = d.Decode(ctx, raw, now)
		assert.ErrorIs(t, err, authz_errors.ErrTokenExpired)

		// evicted, so the next attempt goes back to the verifier
		_, err = d.Decode(ctx, raw, now)
		assert.ErrorIs(t, err, authz_errors.ErrTokenExpired)
		assert.Equal(t, int32(2), atomic.LoadInt32(&v.calls))
	})
}

func TestDecodeDemo(t *testing.T) {
	d, v := newDecoder(fixedClock(invocation), token.WithDemo(token.DemoConfig{
		Enabled:     true,
		Prefix:      "demo.",
		EmailDomain: "medisupply.com",
	}))

	id, err := d.Decode(context.Background(), "demo.user.ny", invocation)
	require.NoError(t, err)

	assert.Equal(t, "demo_user_ny", id.Username)
	assert.Equal(t, "demo_user_ny@medisupply.com", id.Email)
	assert.Equal(t, "demo-demo.user.ny", id.Subject)
	assert.True(t, id.Demo)
	assert.Zero(t, atomic.LoadInt32(&v.calls))

	_, err = d.Decode(context.Background(), "notdemo", invocation)
	assert.ErrorIs(t, err, authz_errors.ErrTokenMalformed)
}
