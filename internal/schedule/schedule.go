// Package schedule decides whether a sync lane is due. Everything here is
// pure: callers pass the current time in.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is a configured sync frequency
type Schedule string

const (
	Off     Schedule = "off"
	Hourly  Schedule = "1h"
	Every6  Schedule = "6h"
	Every12 Schedule = "12h"
	Daily   Schedule = "24h"
	Weekly  Schedule = "168h"
)

var intervals = map[Schedule]time.Duration{
	Hourly:  time.Hour,
	Every6:  6 * time.Hour,
	Every12: 12 * time.Hour,
	Daily:   24 * time.Hour,
	Weekly:  168 * time.Hour,
}

// All lists the accepted schedule values, off first.
var All = []Schedule{Off, Hourly, Every6, Every12, Daily, Weekly}

// Parse validates a schedule string. The empty string means off.
func Parse(s string) (Schedule, error) {
	v := Schedule(strings.ToLower(strings.TrimSpace(s)))
	if v == "" || v == Off {
		return Off, nil
	}
	if _, ok := intervals[v]; ok {
		return v, nil
	}
	return "", fmt.Errorf("invalid schedule %q (want one of off, 1h, 6h, 12h, 24h, 168h)", s)
}

// Interval returns the fixed duration for an enabled schedule.
func Interval(s Schedule) (time.Duration, bool) {
	d, ok := intervals[s]
	return d, ok
}

// IsDue reports whether a lane should run at now.
func IsDue(s Schedule, lastSync, start *time.Time, now time.Time) bool {
	interval, ok := intervals[s]
	if !ok {
		return false
	}
	if start != nil && start.After(now) {
		return false
	}
	if lastSync == nil {
		return true
	}
	return now.Sub(*lastSync) >= interval
}

// NextRun returns the earliest instant at which IsDue turns true, or nil
// when the schedule is off.
func NextRun(s Schedule, lastSync, start *time.Time, now time.Time) *time.Time {
	interval, ok := intervals[s]
	if !ok {
		return nil
	}
	next := now
	if lastSync != nil {
		next = lastSync.Add(interval)
	}
	if start != nil && start.After(next) {
		next = *start
	}
	if next.Before(now) {
		next = now
	}
	return &next
}

// ParseTime reads a stored RFC 3339 timestamp. Empty or malformed values are nil.
func ParseTime(v string) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}

// FormatTime is the inverse of ParseTime.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
