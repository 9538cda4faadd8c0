package models

import "time"

// Bar is an OHLCV aggregate of all ticks within one fixed time bucket,
// identified by the composite key (pair, timeframe, bucketStart). A bar is
// mutated in place by the aggregator while its window is open and becomes
// immutable once emitted to the bar store.
type Bar struct {
	Pair        string    `json:"pair"`
	Timeframe   Timeframe `json:"timeframe"`
	BucketStart time.Time `json:"bucket_start"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	TickCount   uint64    `json:"tick_count"`
}

// NewBar opens a bar seeded with the window's first tick.
func NewBar(t *Tick, tf Timeframe, bucketStart time.Time) *Bar {
	return &Bar{
		Pair:        t.Pair,
		Timeframe:   tf,
		BucketStart: bucketStart,
		Open:        t.Price,
		High:        t.Price,
		Low:         t.Price,
		Close:       t.Price,
		Volume:      t.Size,
		TickCount:   1,
	}
}

// Apply folds a same-bucket tick into the open bar.
func (b *Bar) Apply(t *Tick) {
	if t.Price > b.High {
		b.High = t.Price
	}
	if t.Price < b.Low {
		b.Low = t.Price
	}
	b.Close = t.Price
	b.Volume += t.Size
	b.TickCount++
}

// BucketEnd returns the exclusive end of the bar's interval.
func (b *Bar) BucketEnd() time.Time { return b.BucketStart.Add(b.Timeframe.Duration()) }
