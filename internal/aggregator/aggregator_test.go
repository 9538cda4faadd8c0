package aggregator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"PairFlow/internal/domain/models"
	applogger "PairFlow/pkg/logger"
)

type countMetrics struct {
	mu      sync.Mutex
	dropped map[string]int
	errors  map[string]int
}

func newCountMetrics() *countMetrics {
	return &countMetrics{dropped: make(map[string]int), errors: make(map[string]int)}
}

func (m *countMetrics) RecordTickIngested(string) {}
func (m *countMetrics) RecordTickDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}
func (m *countMetrics) RecordBarPersisted(string, string)    {}
func (m *countMetrics) RecordPersistFailure(string, string)  {}
func (m *countMetrics) RecordLastPrice(string, float64)      {}
func (m *countMetrics) RecordZScore(string, string, float64) {}
func (m *countMetrics) RecordAlert(string, string)           {}
func (m *countMetrics) RecordLatency(string, float64)        {}
func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

// fakeStore records upserts and can fail a configured number of times.
type fakeStore struct {
	mu       sync.Mutex
	bars     []models.Bar
	failures int
}

func (s *fakeStore) Upsert(_ context.Context, b *models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("store unavailable")
	}
	s.bars = append(s.bars, *b)
	return nil
}

func (s *fakeStore) Query(context.Context, string, models.Timeframe, time.Time, time.Time) ([]models.Bar, error) {
	return nil, nil
}
func (s *fakeStore) LatestN(context.Context, string, models.Timeframe, int) ([]models.Bar, error) {
	return nil, nil
}
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

func micros(t time.Time) int64 { return t.UnixMicro() }

func newTestAggregator(store *fakeStore, tfs ...models.Timeframe) (*Aggregator, *countMetrics) {
	m := newCountMetrics()
	a := New(store, m, applogger.Quiet(), Config{
		Timeframes:   tfs,
		RetryMax:     2,
		RetryBackoff: time.Millisecond,
	})
	return a, m
}

func TestOneSecondBarLifecycle(t *testing.T) {
	store := &fakeStore{}
	agg, _ := newTestAggregator(store, models.TF1s)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	ticks := []*models.Tick{
		{Pair: "BTCUSDT", Price: 100, Size: 1, EventTime: micros(base.Add(100 * time.Millisecond)), SequenceID: 1},
		{Pair: "BTCUSDT", Price: 101, Size: 2, EventTime: micros(base.Add(400 * time.Millisecond)), SequenceID: 2},
		{Pair: "BTCUSDT", Price: 99, Size: 1, EventTime: micros(base.Add(1200 * time.Millisecond)), SequenceID: 3},
	}
	for _, tk := range ticks {
		agg.Apply(ctx, tk)
	}

	if len(store.bars) != 1 {
		t.Fatalf("expected 1 emitted bar, got %d", len(store.bars))
	}
	b := store.bars[0]
	if !b.BucketStart.Equal(base) {
		t.Fatalf("unexpected bucket start %v", b.BucketStart)
	}
	if b.Open != 100 || b.High != 101 || b.Low != 100 || b.Close != 101 {
		t.Fatalf("unexpected OHLC %+v", b)
	}
	if b.TickCount != 2 || b.Volume != 3 {
		t.Fatalf("unexpected count/volume %+v", b)
	}

	open, ok := agg.OpenWindow("BTCUSDT", models.TF1s)
	if !ok {
		t.Fatal("expected an open window")
	}
	if !open.BucketStart.Equal(base.Add(time.Second)) || open.Close != 99 {
		t.Fatalf("unexpected open window %+v", open)
	}

	wm, ok := agg.Watermark("BTCUSDT", models.TF1s)
	if !ok || !wm.Equal(base) {
		t.Fatalf("unexpected watermark %v ok=%v", wm, ok)
	}
}

func TestBarInvariants(t *testing.T) {
	store := &fakeStore{}
	agg, _ := newTestAggregator(store, models.TF1s)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	prices := []float64{50, 48, 53, 51, 47, 52}
	for i, p := range prices {
		agg.Apply(ctx, &models.Tick{
			Pair: "ETHUSDT", Price: p, Size: 1,
			EventTime:  micros(base.Add(time.Duration(i*100) * time.Millisecond)),
			SequenceID: uint64(i + 1),
		})
	}
	// advance past the boundary to close the bar
	agg.Apply(ctx, &models.Tick{
		Pair: "ETHUSDT", Price: 49, Size: 1,
		EventTime: micros(base.Add(1100 * time.Millisecond)), SequenceID: 10,
	})

	b := store.bars[0]
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		t.Fatalf("invariant violated: %+v", b)
	}
	if b.Low != 47 || b.High != 53 {
		t.Fatalf("unexpected extremes: %+v", b)
	}
}

func TestMultipleTimeframesAdvanceIndependently(t *testing.T) {
	store := &fakeStore{}
	agg, _ := newTestAggregator(store, models.TF1s, models.TF1m)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 100, Size: 1, EventTime: micros(base), SequenceID: 1})
	// next second: closes the 1s window, merely updates the 1m window
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 101, Size: 1, EventTime: micros(base.Add(time.Second)), SequenceID: 2})

	if len(store.bars) != 1 {
		t.Fatalf("expected only the 1s bar to close, got %d bars", len(store.bars))
	}
	if store.bars[0].Timeframe != models.TF1s {
		t.Fatalf("unexpected closed timeframe %s", store.bars[0].Timeframe)
	}

	minuteBar, ok := agg.OpenWindow("BTCUSDT", models.TF1m)
	if !ok || minuteBar.TickCount != 2 {
		t.Fatalf("expected 1m window with 2 ticks, got %+v ok=%v", minuteBar, ok)
	}
}

func TestLateTickDroppedAndCounted(t *testing.T) {
	store := &fakeStore{}
	agg, m := newTestAggregator(store, models.TF1s)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 100, Size: 1, EventTime: micros(base), SequenceID: 1})
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 101, Size: 1, EventTime: micros(base.Add(2 * time.Second)), SequenceID: 2})
	// arrives after its bucket was already closed
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 999, Size: 1, EventTime: micros(base.Add(500 * time.Millisecond)), SequenceID: 3})

	if m.dropped["late"] != 1 {
		t.Fatalf("expected 1 late drop, got %d", m.dropped["late"])
	}
	if len(store.bars) != 1 || store.bars[0].High == 999 {
		t.Fatalf("late tick must not mutate closed bar: %+v", store.bars)
	}
	open, _ := agg.OpenWindow("BTCUSDT", models.TF1s)
	if open.High == 999 {
		t.Fatalf("late tick must not mutate open bar: %+v", open)
	}
}

func TestMalformedTickRejected(t *testing.T) {
	store := &fakeStore{}
	agg, m := newTestAggregator(store, models.TF1s)
	ctx := context.Background()

	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: -1, Size: 1, EventTime: 1000, SequenceID: 1})
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 10, Size: -2, EventTime: 1000, SequenceID: 2})

	if m.dropped["malformed"] != 2 {
		t.Fatalf("expected 2 malformed drops, got %d", m.dropped["malformed"])
	}
	if _, ok := agg.OpenWindow("BTCUSDT", models.TF1s); ok {
		t.Fatal("malformed ticks must never open a window")
	}
}

func TestEmitRetriesBeforeAdvancingWatermark(t *testing.T) {
	store := &fakeStore{failures: 2}
	agg, m := newTestAggregator(store, models.TF1s)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 100, Size: 1, EventTime: micros(base), SequenceID: 1})
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 101, Size: 1, EventTime: micros(base.Add(time.Second)), SequenceID: 2})

	if len(store.bars) != 1 {
		t.Fatalf("expected bar persisted after retries, got %d", len(store.bars))
	}
	if m.errors["bar_upsert"] != 2 {
		t.Fatalf("expected 2 upsert errors, got %d", m.errors["bar_upsert"])
	}
	if wm, ok := agg.Watermark("BTCUSDT", models.TF1s); !ok || !wm.Equal(base) {
		t.Fatalf("watermark must advance after acknowledged write, got %v ok=%v", wm, ok)
	}
}

func TestExhaustedRetriesSkipBucket(t *testing.T) {
	store := &fakeStore{failures: 10}
	agg, _ := newTestAggregator(store, models.TF1s)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 100, Size: 1, EventTime: micros(base), SequenceID: 1})
	agg.Apply(ctx, &models.Tick{Pair: "BTCUSDT", Price: 101, Size: 1, EventTime: micros(base.Add(time.Second)), SequenceID: 2})

	if len(store.bars) != 0 {
		t.Fatalf("expected no bars persisted, got %d", len(store.bars))
	}
	if _, ok := agg.Watermark("BTCUSDT", models.TF1s); ok {
		t.Fatal("watermark must not advance on persistent failure")
	}
	// pipeline keeps going: the new window is open
	if _, ok := agg.OpenWindow("BTCUSDT", models.TF1s); !ok {
		t.Fatal("expected a new open window after skipped bucket")
	}
}
