package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true)
// if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// AlignFromTo truncates the time range to bucket boundaries for the
// timeframe, so range queries line up with stored bucket starts.
func AlignFromTo(from, to time.Time, tf string) (time.Time, time.Time) {
	d := timeframeDuration(tf)
	return from.Truncate(d), to.Truncate(d)
}

func timeframeDuration(tf string) time.Duration {
	switch tf {
	case "1s":
		return time.Second
	case "5m":
		return 5 * time.Minute
	default:
		return time.Minute
	}
}
