package models

import (
	"fmt"
	"time"
)

// Timeframe is the fixed duration of one aggregation bucket.
type Timeframe string

const (
	TF1s Timeframe = "1s"
	TF1m Timeframe = "1m"
	TF5m Timeframe = "5m"
)

// Duration returns the bucket length for the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1s:
		return time.Second
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	default:
		return 0
	}
}

// Valid reports whether tf is a supported timeframe.
func (tf Timeframe) Valid() bool { return tf.Duration() > 0 }

// Bucket maps an event time (microseconds since epoch) to the start of its
// half-open bucket [start, start+tf).
func (tf Timeframe) Bucket(eventMicros int64) time.Time {
	d := tf.Duration().Microseconds()
	if d <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(eventMicros - eventMicros%d).UTC()
}

// DefaultTimeframe returns the default bucket resolution.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe converts a raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if tf.Valid() {
		return tf
	}
	return DefaultTimeframe()
}

// ParseTimeframes converts raw config strings, rejecting unknown values.
func ParseTimeframes(raw []string) ([]Timeframe, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one timeframe is required")
	}
	out := make([]Timeframe, 0, len(raw))
	for _, s := range raw {
		tf := Timeframe(s)
		if !tf.Valid() {
			return nil, fmt.Errorf("unsupported timeframe: %s", s)
		}
		out = append(out, tf)
	}
	return out, nil
}
