package utils

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout is a fixed-width ISO-8601 layout with millisecond precision.
// Fixed width keeps stored timestamps lexicographically sortable.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// eventTimeLayouts are the layouts accepted for journal event times, in order.
// Athena renders timestamps without a zone, which are treated as UTC.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// FormatISO formats a time as UTC ISO-8601 with milliseconds
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses a timestamp written by FormatISO (or any RFC3339 value).
// An empty string yields the zero time.
func ParseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseEventTime parses a journal event timestamp as produced by the query engine
func ParseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized event time %q", s)
}

// MinutesSince returns the minutes elapsed between t and now (negative if t is in the future)
func MinutesSince(t, now time.Time) float64 {
	return float64(now.Sub(t).Milliseconds()) / 60000
}

// ParseSince parses a point in time given either as an RFC3339 timestamp or as
// a Go duration counted back from now ("24h" means 24 hours before now).
// An empty string yields the zero time.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %q", s)
		}
		return now.Add(-d).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or a duration like 24h)", s)
	}
	return t.UTC(), nil
}
