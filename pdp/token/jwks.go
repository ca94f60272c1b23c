package token

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
)

// CognitoJWKSURL is the well-known key set of a Cognito user pool.
func CognitoJWKSURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", region, userPoolID)
}

// JWKSVerifier checks RS256 signatures with keys from a JWKS endpoint. The key set is
// refreshed in the background every refresh interval until ctx is cancelled, and on an
// unknown kid at most once per unknownKIDEvery.
type JWKSVerifier struct {
	keys   keyfunc.Keyfunc
	parser *jwt.Parser
}

type jwksOptions struct {
	httpClient      *http.Client
	refreshInterval time.Duration
	unknownKIDEvery time.Duration
}

type JWKSOption func(*jwksOptions)

func WithHTTPClient(c *http.Client) JWKSOption {
	return func(o *jwksOptions) { o.httpClient = c }
}

func WithRefreshInterval(d time.Duration) JWKSOption {
	return func(o *jwksOptions) { o.refreshInterval = d }
}

func WithUnknownKIDRefresh(every time.Duration) JWKSOption {
	return func(o *jwksOptions) { o.unknownKIDEvery = every }
}

// NewJWKSVerifier fetches the key set once before returning. A failing first fetch is
// logged rather than returned; verification fails until a refresh succeeds.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string, clock func() time.Time, opts ...JWKSOption) (*JWKSVerifier, error) {
	o := jwksOptions{
		httpClient:      &http.Client{Timeout: 5 * time.Second},
		refreshInterval: time.Hour,
		unknownKIDEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("parse JWKS URL: %w", err)
	}

	remote, err := jwkset.NewStorageFromHTTP(u, jwkset.HTTPClientStorageOptions{
		Client:                    o.httpClient,
		Ctx:                       ctx,
		HTTPTimeout:               o.httpClient.Timeout,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           o.refreshInterval,
		RefreshErrorHandler: func(ctx context.Context, err error) {
			logger.Warn("JWKS refresh failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create JWKS storage: %w", err)
	}

	client, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{jwksURL: remote},
		RefreshUnknownKID: rate.NewLimiter(rate.Every(o.unknownKIDEvery), 1),
	})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	keys, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: client})
	if err != nil {
		return nil, fmt.Errorf("create JWKS keyfunc: %w", err)
	}

	logger.Info("JWKS verifier ready", zap.String("url", jwksURL), zap.Duration("refreshInterval", o.refreshInterval))
	return &JWKSVerifier{
		keys:   keys,
		parser: newSigningParser(issuer, clock),
	}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (jwt.MapClaims, error) {
	lookup := v.keys.KeyfuncCtx(ctx)
	parsed, err := v.parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return lookup(t)
	})
	return claimsOf(parsed, err)
}
