package models

import (
	"fmt"
	"time"
)

// Tick is a single trade event for one instrument. Immutable once created.
type Tick struct {
	Pair       string  `json:"pair"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	EventTime  int64   `json:"event_time"` // microseconds since epoch
	SequenceID uint64  `json:"seq"`        // monotonically non-decreasing per pair
}

// Time returns the event time as UTC.
func (t *Tick) Time() time.Time { return time.UnixMicro(t.EventTime).UTC() }

// Validate rejects malformed ticks at the ingress boundary so invalid shapes
// never reach aggregation logic.
func (t *Tick) Validate() error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	if t.Pair == "" {
		return fmt.Errorf("pair is empty")
	}
	if t.Price <= 0 {
		return fmt.Errorf("non-positive price: %v", t.Price)
	}
	if t.Size < 0 {
		return fmt.Errorf("negative size: %v", t.Size)
	}
	if t.EventTime <= 0 {
		return fmt.Errorf("invalid event time: %d", t.EventTime)
	}
	return nil
}
