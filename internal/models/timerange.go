package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format for times of day.
	ClockLayout = "15:04"
)

// ClockTime is a time of day at minute resolution, stored as minutes since midnight.
type ClockTime int

// ParseClock parses "HH:MM" (seconds, if present, are ignored).
func ParseClock(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > 5 {
		raw = raw[:5]
	}
	t, err := time.Parse(ClockLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// String renders the clock as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// TimeRange is a half-open [Start, End) interval within one day.
type TimeRange struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// Valid requires the range to be non-empty.
func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= 24*60 && r.Start < r.End
}

// Equal compares both endpoints at minute resolution.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.Start == other.Start && r.End == other.End
}

// ParseTimeRange parses both endpoints; either one missing yields an error.
func ParseTimeRange(start, end string) (TimeRange, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return TimeRange{}, fmt.Errorf("time range requires both start and end")
	}
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: s, End: e}, nil
}

// ParseDate accepts "2006-01-02" or a full RFC3339 timestamp and keeps the calendar day as written.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return d, nil
}

// SameDay compares two instants by calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
