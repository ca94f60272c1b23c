package token_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
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

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]interface{}{{
				"kty": "RSA",
				"use": "sig",
				"kid": kid,
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits int32
	server := jwksServer(t, "kid-1", &key.PublicKey, &hits)
	clock := fixedClock(invocation)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := token.NewJWKSVerifier(ctx, server.URL, "https://issuer.example", clock)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		raw := signRS256(t, key, "kid-1", jwt.MapClaims{
			"sub":              "u-1",
			"cognito:username": "ana",
			"iss":              "https://issuer.example",
			"exp":              invocation.Add(time.Hour).Unix(),
		})
		claims, err := v.Verify(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "ana", claims["cognito:username"])

		_, err = v.Verify(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})

	t.Run("unknown kid", func(t *testing.T) {
		raw := signRS256(t, key, "kid-2", jwt.MapClaims{"sub": "u", "iss": "https://issuer.example"})
		_, err := v.Verify(ctx, raw)
		assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

		// the unknown-kid refetch is rate limited
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		raw := signRS256(t, other, "kid-1", jwt.MapClaims{"sub": "u", "iss": "https://issuer.example"})
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		raw := signRS256(t, key, "kid-1", jwt.MapClaims{"sub": "u", "iss": "https://evil.example"})
		_, err := v.Verify(ctx, raw)
		assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
	})

	t.Run("expired at invocation time", func(t *testing.T) {
		raw := signRS256(t, key, "kid-1", jwt.MapClaims{
			"sub": "u",
			"iss": "https://issuer.example",
			"exp": invocation.Add(-time.Minute).Unix(),
		})
		_, err := v.Verify(ctx, raw)
		assert.ErrorIs(t, err, authz_errors.ErrTokenExpired)
	})

	t.Run("hmac token rejected", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte("k"))
		require.NoError(t, err)
		_, err = v.Verify(ctx, raw)
		assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
	})
}

func TestJWKSVerifierUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := token.NewJWKSVerifier(ctx, server.URL, "", fixedClock(invocation))
	require.NoError(t, err)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.Verify(ctx, signRS256(t, key, "kid-1", jwt.MapClaims{"sub": "u"}))
	assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
}

func TestHMACVerifier(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	v := token.NewHMACVerifier(secret, "", fixedClock(invocation))
	ctx := context.Background()

	sign := func(key []byte, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	claims, err := v.Verify(ctx, sign(secret, jwt.MapClaims{"sub": "svc"}))
	require.NoError(t, err)
	assert.Equal(t, "svc", claims["sub"])

	_, err = v.Verify(ctx, sign([]byte("another-secret"), jwt.MapClaims{"sub": "svc"}))
	assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)

	unsigned := unsignedToken(t, map[string]interface{}{"sub": "svc"})
	_, err = v.Verify(ctx, unsigned)
	assert.Error(t, err)
}

func TestDecoderWithSignatureVerification(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	store := cache.NewMemoryStore[model.IdentityClaims](5*time.Minute, cache.WithClock(fixedClock(invocation)))
	d := token.NewDecoder(token.NewHMACVerifier(secret, "", fixedClock(invocation)), store)

	forged := unsignedToken(t, map[string]interface{}{"sub": "mallory", "cognito:username": "admin"})
	_, err := d.Decode(context.Background(), forged, invocation)
	assert.ErrorIs(t, err, authz_errors.ErrTokenSignature)
}
