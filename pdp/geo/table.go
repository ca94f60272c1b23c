package geo

import (
	"context"
	"net/netip"
	"strings"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
)

// TableResolver answers from a static prefix table, for offline and demo deployments.
type TableResolver struct {
	entries     []tableEntry
	homeCountry string
}

type tableEntry struct {
	prefix  netip.Prefix
	country string
}

// DefaultTable maps a few well-known public ranges used by the demo clients.
func DefaultTable() map[string]string {
	return map[string]string{
		"8.8.0.0/16":     "US",
		"201.0.0.0/8":    "MX",
		"200.0.0.0/8":    "CA",
		"181.0.0.0/8":    "CO",
		"190.0.0.0/8":    "CO",
		"2001:4860::/32": "US",
	}
}

// NewTableResolver builds a resolver from CIDR -> country entries. Private and loopback
// addresses resolve to homeCountry. Invalid CIDRs are skipped.
func NewTableResolver(table map[string]string, homeCountry string) *TableResolver {
	r := &TableResolver{homeCountry: strings.ToUpper(homeCountry)}
	for cidr, country := range table {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		r.entries = append(r.entries, tableEntry{prefix: prefix.Masked(), country: strings.ToUpper(country)})
	}
	return r
}

func (r *TableResolver) ResolveCountry(_ context.Context, ip string) string {
	switch ClassifyIP(ip) {
	case IPPrivate:
		if r.homeCountry != "" {
			return r.homeCountry
		}
		return model.UnknownCountry
	case IPPublic:
	default:
		return model.UnknownCountry
	}

	addr, _ := netip.ParseAddr(strings.TrimSpace(ip))
	addr = addr.Unmap()
	best := -1
	country := model.UnknownCountry
	for _, e := range r.entries {
		if e.prefix.Contains(addr) && e.prefix.Bits() > best {
			best = e.prefix.Bits()
			country = e.country
		}
	}
	return country
}
