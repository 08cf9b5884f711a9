// Package slot holds the time rules of the booking domain: hour-aligned
// slots, "now" comparisons and the cancellation lead window.
package slot

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCancellationLead is the minimum interval before a slot during which
// an appointment can no longer be canceled.
const DefaultCancellationLead = 2 * time.Hour

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// NormalizeToHourStart returns the start of the hour containing t as seen
// in loc. Inputs carrying a half-hour offset still land on loc's hour.
func NormalizeToHourStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
}

// IsPast reports whether slot strictly precedes now.
func IsPast(slot, now time.Time) bool {
	return slot.Before(now)
}

// IsWithinLeadTime reports whether now is already inside the no-cancel window
// that starts lead before slot.
func IsWithinLeadTime(slot time.Time, lead time.Duration, now time.Time) bool {
	return slot.Add(-lead).Before(now)
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date-time. Values without an offset are read
// in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}
