package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
)

const DefaultEndpoint = "http://ip-api.com/json/"

// IPAPIClient resolves countries through the ip-api.com JSON API.
type IPAPIClient struct {
	endpoint    string
	httpClient  *http.Client
	limiter     *rate.Limiter
	homeCountry string
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	Message     string `json:"message"`
}

type IPAPIOption func(*IPAPIClient)

func WithHTTPClient(client *http.Client) IPAPIOption {
	return func(c *IPAPIClient) { c.httpClient = client }
}

// WithRequestsPerMinute caps outbound lookups; requests over the cap resolve to UNKNOWN.
func WithRequestsPerMinute(n int) IPAPIOption {
	return func(c *IPAPIClient) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// WithHomeCountry answers private and loopback addresses without a network call.
func WithHomeCountry(country string) IPAPIOption {
	return func(c *IPAPIClient) { c.homeCountry = strings.ToUpper(country) }
}

func NewIPAPIClient(endpoint string, timeout time.Duration, opts ...IPAPIOption) *IPAPIClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	c := &IPAPIClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *IPAPIClient) ResolveCountry(ctx context.Context, ip string) string {
	switch ClassifyIP(ip) {
	case IPPrivate:
		if c.homeCountry != "" {
			return c.homeCountry
		}
		return model.UnknownCountry
	case IPMalformed, IPUnknown:
		logger.Warn("Invalid IP address for geo lookup", zap.String("ip", ip))
		return model.UnknownCountry
	}

	if c.limiter != nil && !c.limiter.Allow() {
		logger.Warn("Geo lookup rate limited", zap.String("ip", ip))
		return model.UnknownCountry
	}

	country, err := c.lookup(ctx, strings.TrimSpace(ip))
	if err != nil {
		logger.Warn("Error getting country for IP", zap.String("ip", ip), zap.Error(err))
		return model.UnknownCountry
	}
	logger.Debug("IP resolved to country", zap.String("ip", ip), zap.String("country", country))
	return country
}

func (c *IPAPIClient) lookup(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+url.PathEscape(ip), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", authz_errors.ErrGeoLookupFailed, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", authz_errors.ErrGeoLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", authz_errors.ErrGeoLookupFailed, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", authz_errors.ErrGeoLookupFailed, err)
	}
	if body.Status != "" && body.Status != "success" {
		return "", fmt.Errorf("%w: %s", authz_errors.ErrGeoLookupFailed, body.Message)
	}
	if body.CountryCode == "" {
		return "", fmt.Errorf("%w: empty country code", authz_errors.ErrGeoLookupFailed)
	}
	return strings.ToUpper(body.CountryCode), nil
}
