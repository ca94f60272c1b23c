package engine

import (
	"strings"
	"time"
)

var (
	easternZone = time.FixedZone("EST", -5*60*60)
	pacificZone = time.FixedZone("PST", -8*60*60)
)

// LocalTime converts t to the profile's timezone. Only a fixed-offset approximation of
// US Eastern and Pacific is known; every other zone is treated as UTC.
func LocalTime(t time.Time, timezone string) time.Time {
	switch {
	case strings.Contains(timezone, "New_York"), strings.Contains(timezone, "Eastern"):
		return t.In(easternZone)
	case strings.Contains(timezone, "Los_Angeles"), strings.Contains(timezone, "Pacific"):
		return t.In(pacificZone)
	default:
		return t.UTC()
	}
}

// OffsetTime shifts t to a fixed UTC offset in whole hours.
func OffsetTime(t time.Time, utcOffsetHours int) time.Time {
	if utcOffsetHours == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", utcOffsetHours*60*60))
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}
