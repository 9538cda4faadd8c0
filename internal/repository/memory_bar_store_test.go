package repository

import (
	"context"
	"testing"
	"time"

	"PairFlow/internal/domain/models"
)

func mkBar(pair string, tf models.Timeframe, bucket time.Time, close float64) *models.Bar {
	return &models.Bar{
		Pair: pair, Timeframe: tf, BucketStart: bucket,
		Open: close, High: close, Low: close, Close: close,
		Volume: 1, TickCount: 1,
	}
}

func TestUpsertQueryRoundTrip(t *testing.T) {
	s := NewMemoryBarStore()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	want := mkBar("BTCUSDT", models.TF1m, bucket, 101.5)
	want.Open, want.High, want.Low = 100, 102, 99.5
	want.Volume, want.TickCount = 7, 4
	if err := s.Upsert(ctx, want); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Query(ctx, "BTCUSDT", models.TF1m, bucket, bucket.Add(time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 bar, got %d", len(got))
	}
	if got[0] != *want {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got[0], *want)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := NewMemoryBarStore()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	b := mkBar("BTCUSDT", models.TF1m, bucket, 100)
	if err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, b); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("replay must not duplicate: %d bars", s.Len())
	}

	// replace with new content under the same key
	b2 := mkBar("BTCUSDT", models.TF1m, bucket, 200)
	if err := s.Upsert(ctx, b2); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := s.Query(ctx, "BTCUSDT", models.TF1m, bucket, bucket.Add(time.Minute))
	if len(got) != 1 || got[0].Close != 200 {
		t.Fatalf("expected replaced bar, got %+v", got)
	}
}

func TestQueryRangeIsHalfOpenAndOrdered(t *testing.T) {
	s := NewMemoryBarStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	// insert out of order
	for _, off := range []int{3, 0, 2, 1, 4} {
		bucket := base.Add(time.Duration(off) * time.Minute)
		if err := s.Upsert(ctx, mkBar("BTCUSDT", models.TF1m, bucket, float64(100+off))); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := s.Query(ctx, "BTCUSDT", models.TF1m, base.Add(time.Minute), base.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 bars in [from, to), got %d", len(got))
	}
	for i, b := range got {
		if want := base.Add(time.Duration(i+1) * time.Minute); !b.BucketStart.Equal(want) {
			t.Fatalf("bars not ascending: idx %d has %v", i, b.BucketStart)
		}
	}
}

func TestLatestNReturnsAscendingTail(t *testing.T) {
	s := NewMemoryBarStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	for off := 0; off < 5; off++ {
		bucket := base.Add(time.Duration(off) * time.Minute)
		if err := s.Upsert(ctx, mkBar("ETHUSDT", models.TF1m, bucket, float64(off))); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := s.LatestN(ctx, "ETHUSDT", models.TF1m, 2)
	if err != nil {
		t.Fatalf("latestN: %v", err)
	}
	if len(got) != 2 || got[0].Close != 3 || got[1].Close != 4 {
		t.Fatalf("unexpected tail %+v", got)
	}
}

func TestQueryFiltersPairAndTimeframe(t *testing.T) {
	s := NewMemoryBarStore()
	ctx := context.Background()
	bucket := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	_ = s.Upsert(ctx, mkBar("BTCUSDT", models.TF1m, bucket, 1))
	_ = s.Upsert(ctx, mkBar("BTCUSDT", models.TF5m, bucket, 2))
	_ = s.Upsert(ctx, mkBar("ETHUSDT", models.TF1m, bucket, 3))

	got, err := s.Query(ctx, "BTCUSDT", models.TF1m, bucket, bucket.Add(time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Close != 1 {
		t.Fatalf("expected only the matching key, got %+v", got)
	}
}
