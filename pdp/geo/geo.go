package geo

import (
	"context"
	"net/netip"
	"strings"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
)

// Resolver maps a client IP to an ISO country code. Failures resolve to
// model.UnknownCountry, never to an error.
type Resolver interface {
	ResolveCountry(ctx context.Context, ip string) string
}

// IPClass is the network category of a client address.
type IPClass string

const (
	IPPrivate   IPClass = "private"
	IPPublic    IPClass = "public"
	IPMalformed IPClass = "malformed"
	IPUnknown   IPClass = "unknown"
)

// ClassifyIP reports whether ip is private (RFC 1918, ULA, loopback or link-local),
// public, malformed, or missing.
func ClassifyIP(ip string) IPClass {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return IPUnknown
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return IPMalformed
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() {
		return IPPrivate
	}
	if addr.IsUnspecified() {
		return IPUnknown
	}
	return IPPublic
}

type cached struct {
	next  Resolver
	store cache.Store[string]
}

// Cached memoises next's answers in store. UNKNOWN answers are not stored so a
// transient provider failure is retried on the next request.
func Cached(next Resolver, store cache.Store[string]) Resolver {
	return &cached{next: next, store: store}
}

func (c *cached) ResolveCountry(ctx context.Context, ip string) string {
	if country, ok := c.store.Get(ctx, ip); ok {
		return country
	}
	country := c.next.ResolveCountry(ctx, ip)
	if country != model.UnknownCountry {
		c.store.Set(ctx, ip, country)
	}
	return country
}
