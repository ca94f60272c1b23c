// authorizer/model/group_policy.go
package model

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// HourSet is a set of hours of the day; the zero value matches nothing.
type HourSet struct {
	any   bool
	hours [24]bool
}

func AnyHour() HourSet {
	return HourSet{any: true}
}

// HourRange returns the inclusive range [start, end].
func HourRange(start, end int) HourSet {
	var hs HourSet
	for h := start; h <= end && h < 24; h++ {
		if h >= 0 {
			hs.hours[h] = true
		}
	}
	return hs
}

// ParseHourSet accepts "*", a single hour, or comma separated inclusive ranges like "6-11,13-18".
func ParseHourSet(spec string) (HourSet, error) {
	spec = strings.TrimSpace(spec)
	if spec == "*" {
		return AnyHour(), nil
	}
	var hs HourSet
	for _, part := range strings.Split(spec, ",") {
		bounds := strings.SplitN(strings.TrimSpace(part), "-", 2)
		start, err := parseHour(bounds[0])
		if err != nil {
			return HourSet{}, err
		}
		end := start
		if len(bounds) == 2 {
			if end, err = parseHour(bounds[1]); err != nil {
				return HourSet{}, err
			}
		}
		if end < start {
			return HourSet{}, fmt.Errorf("hour range %q ends before it starts", part)
		}
		for h := start; h <= end; h++ {
			hs.hours[h] = true
		}
	}
	return hs, nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour %q", s)
	}
	return h, nil
}

func (hs HourSet) Contains(hour int) bool {
	if hs.any {
		return true
	}
	return hour >= 0 && hour < 24 && hs.hours[hour]
}

func (hs HourSet) IsAny() bool {
	return hs.any
}

// PolicyRule is the static access rule attached to one directory group.
type PolicyRule struct {
	Group       string
	Description string
	Countries   []string
	Hours       HourSet
	IPWhitelist []netip.Prefix
}

// RestrictsCountry is false when the rule has no country list or lists the wildcard or UNKNOWN.
func (r *PolicyRule) RestrictsCountry() bool {
	if len(r.Countries) == 0 {
		return false
	}
	for _, c := range r.Countries {
		if c == AnyCountry || c == UnknownCountry {
			return false
		}
	}
	return true
}

func (r *PolicyRule) AllowsCountry(country string) bool {
	if !r.RestrictsCountry() {
		return true
	}
	for _, c := range r.Countries {
		if strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}

// Whitelisted reports whether addr falls into one of the rule's CIDR blocks.
func (r *PolicyRule) Whitelisted(addr netip.Addr) bool {
	for _, p := range r.IPWhitelist {
		if p.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// GroupPolicy is the per-group rule table, looked up in token group order.
type GroupPolicy map[string]PolicyRule
