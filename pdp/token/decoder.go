package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
)

// DemoConfig enables the unsigned demo sentinel. Never enable it in production.
type DemoConfig struct {
	Enabled     bool
	Prefix      string
	EmailDomain string
}

// Decoder validates bearer tokens into IdentityClaims:
// Received -> Parsed -> Valid | Expired | Malformed.
type Decoder struct {
	verifier Verifier
	cache    cache.Store[model.IdentityClaims]
	keyFunc  cache.KeyFunc
	demo     DemoConfig
}

type DecoderOption func(*Decoder)

func WithDemo(demo DemoConfig) DecoderOption {
	return func(d *Decoder) { d.demo = demo }
}

func WithKeyFunc(fn cache.KeyFunc) DecoderOption {
	return func(d *Decoder) { d.keyFunc = fn }
}

func NewDecoder(verifier Verifier, store cache.Store[model.IdentityClaims], opts ...DecoderOption) *Decoder {
	d := &Decoder{
		verifier: verifier,
		cache:    store,
		keyFunc:  cache.SHA256Key,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode returns the identity for raw, or ErrTokenMissing, ErrTokenMalformed,
// ErrTokenExpired or ErrTokenSignature. Expiry is checked against now on both the
// decode path and the cache-hit path.
func (d *Decoder) Decode(ctx context.Context, raw string, now time.Time) (*model.IdentityClaims, error) {
	if raw == "" {
		return nil, authz_errors.ErrTokenMissing
	}

	key := d.keyFunc(raw)
	if cached, ok := d.cache.Get(ctx, key); ok {
		if cached.ExpiredAt(now) {
			d.cache.Delete(ctx, key)
			return nil, authz_errors.ErrTokenExpired
		}
		logger.Debug("Token cache hit", zap.String("username", cached.Username))
		return &cached, nil
	}

	identity, err := d.decode(ctx, raw)
	if err != nil {
		return nil, err
	}
	if identity.ExpiredAt(now) {
		return nil, authz_errors.ErrTokenExpired
	}

	d.cache.Set(ctx, key, *identity)
	return identity, nil
}

func (d *Decoder) decode(ctx context.Context, raw string) (*model.IdentityClaims, error) {
	if d.demo.Enabled && d.demo.Prefix != "" && strings.HasPrefix(raw, d.demo.Prefix) {
		return d.demoIdentity(raw), nil
	}

	if strings.Count(raw, ".") != 2 {
		return nil, fmt.Errorf("%w: expected 3 segments", authz_errors.ErrTokenMalformed)
	}

	claims, err := d.verifier.Verify(ctx, raw)
	if err != nil {
		if !errors.Is(err, authz_errors.ErrTokenMalformed) && !errors.Is(err, authz_errors.ErrTokenExpired) && !errors.Is(err, authz_errors.ErrTokenSignature) {
			err = fmt.Errorf("%w: %v", authz_errors.ErrTokenSignature, err)
		}
		return nil, err
	}
	return identityFromClaims(claims)
}

func (d *Decoder) demoIdentity(raw string) *model.IdentityClaims {
	username := strings.ReplaceAll(raw, ".", "_")
	return &model.IdentityClaims{
		Subject:  "demo-" + raw,
		Username: username,
		Email:    username + "@" + d.demo.EmailDomain,
		Demo:     true,
	}
}

// identityFromClaims rejects an exp claim that is present but not numeric.
func identityFromClaims(claims jwt.MapClaims) (*model.IdentityClaims, error) {
	sub, _ := claims["sub"].(string)

	username := firstString(claims, "cognito:username", "username")
	if username == "" {
		username = sub
	}
	if username == "" {
		username = "unknown"
	}

	identity := &model.IdentityClaims{
		Subject:  sub,
		Username: username,
		Email:    firstString(claims, "email"),
		Groups:   groupsOf(claims),
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp claim: %v", authz_errors.ErrTokenMalformed, err)
	}
	if exp != nil {
		identity.ExpiresAt = exp.Unix()
	}
	return identity, nil
}

func firstString(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if s, ok := claims[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// groupsOf reads cognito:groups, then groups; either may be a list or a single string.
func groupsOf(claims jwt.MapClaims) []string {
	for _, name := range []string{"cognito:groups", "groups"} {
		switch v := claims[name].(type) {
		case []interface{}:
			groups := make([]string, 0, len(v))
			for _, g := range v {
				if s, ok := g.(string); ok && s != "" {
					groups = append(groups, s)
				}
			}
			if len(groups) > 0 {
				return groups
			}
		case string:
			if v != "" {
				return []string{v}
			}
		}
	}
	return nil
}
