package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
)

// Verifier turns a three-segment token into its claims. Expiry against the invocation
// time is checked by the Decoder, not here.
type Verifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// UnverifiedVerifier only decodes the payload segment. It exists for demo and test
// deployments; production configurations select JWKS or HMAC verification.
type UnverifiedVerifier struct {
	parser *jwt.Parser
}

func NewUnverifiedVerifier() *UnverifiedVerifier {
	return &UnverifiedVerifier{parser: jwt.NewParser(jwt.WithPaddingAllowed())}
}

func (v *UnverifiedVerifier) Verify(_ context.Context, token string) (jwt.MapClaims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, authz_errors.ErrTokenMalformed
	}

	payload, err := v.parser.DecodeSegment(segments[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %v", authz_errors.ErrTokenMalformed, err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", authz_errors.ErrTokenMalformed, err)
	}
	return claims, nil
}

// HMACVerifier checks HS256/384/512 signatures against a shared secret.
type HMACVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewHMACVerifier(secret []byte, issuer string, clock func() time.Time) *HMACVerifier {
	return &HMACVerifier{
		secret: secret,
		parser: newSigningParser(issuer, clock),
	}
}

func (v *HMACVerifier) Verify(_ context.Context, token string) (jwt.MapClaims, error) {
	parsed, err := v.parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	return claimsOf(parsed, err)
}

func newSigningParser(issuer string, clock func() time.Time) *jwt.Parser {
	opts := []jwt.ParserOption{jwt.WithPaddingAllowed()}
	if clock != nil {
		opts = append(opts, jwt.WithTimeFunc(clock))
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return jwt.NewParser(opts...)
}

// claimsOf maps jwt parse failures onto the token error taxonomy.
func claimsOf(parsed *jwt.Token, err error) (jwt.MapClaims, error) {
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrTokenExpired, err)
	default:
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrTokenSignature, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, authz_errors.ErrTokenSignature
	}
	return claims, nil
}
