package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"PairFlow/internal/domain/models"
	"PairFlow/internal/repository"
	applogger "PairFlow/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordTickIngested(string)            {}
func (nopMetrics) RecordTickDropped(string)             {}
func (nopMetrics) RecordBarPersisted(string, string)    {}
func (nopMetrics) RecordPersistFailure(string, string)  {}
func (nopMetrics) RecordLastPrice(string, float64)      {}
func (nopMetrics) RecordZScore(string, string, float64) {}
func (nopMetrics) RecordAlert(string, string)           {}
func (nopMetrics) RecordLatency(string, float64)        {}
func (nopMetrics) RecordError(string)                   {}

func newTestEngine() (*Engine, *repository.MemoryBarStore) {
	store := repository.NewMemoryBarStore()
	return NewEngine(store, nopMetrics{}, applogger.Quiet()), store
}

func seedBar(t *testing.T, store *repository.MemoryBarStore, pair string, tf models.Timeframe, bucket time.Time, close float64) {
	t.Helper()
	b := &models.Bar{
		Pair:        pair,
		Timeframe:   tf,
		BucketStart: bucket,
		Open:        close,
		High:        close,
		Low:         close,
		Close:       close,
		Volume:      1,
		TickCount:   1,
	}
	if err := store.Upsert(context.Background(), b); err != nil {
		t.Fatalf("seed bar: %v", err)
	}
}

var testBase = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// seedCointegrated writes n aligned one-minute bars where
// log(closeY) = 2*log(closeX) + 0.5 + small noise.
func seedCointegrated(t *testing.T, store *repository.MemoryBarStore, n int) {
	t.Helper()
	xlog := lcgNoise(7, n, 0.2)
	ynoise := lcgNoise(9, n, 0.01)
	for i := 0; i < n; i++ {
		lx := 4.6 + xlog[i]
		bucket := testBase.Add(time.Duration(i) * time.Minute)
		seedBar(t, store, "BTCUSDT", models.TF1m, bucket, math.Exp(lx))
		seedBar(t, store, "ETHUSDT", models.TF1m, bucket, math.Exp(2*lx+0.5+ynoise[i]))
	}
}

func TestComputeSnapshotRecoversHedgeRatio(t *testing.T) {
	eng, store := newTestEngine()
	seedCointegrated(t, store, 50)

	snap, err := eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 50, SnapshotOptions{})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if snap.Status != models.SnapshotOK {
		t.Fatalf("status = %q (%s), want ok", snap.Status, snap.Reason)
	}
	if math.Abs(snap.HedgeRatio-2) > 0.05 {
		t.Errorf("hedge ratio = %v, want ~2", snap.HedgeRatio)
	}
	if math.Abs(snap.Alpha-0.5) > 0.1 {
		t.Errorf("alpha = %v, want ~0.5", snap.Alpha)
	}
	if snap.Correlation < 0.99 {
		t.Errorf("correlation = %v, want > 0.99", snap.Correlation)
	}
	if len(snap.Spread) != 50 {
		t.Errorf("spread length = %d, want 50", len(snap.Spread))
	}
	if math.IsNaN(snap.ZScore) || math.IsInf(snap.ZScore, 0) {
		t.Errorf("z-score = %v, want finite", snap.ZScore)
	}
	if snap.ADFPValue != nil {
		t.Error("ADF p-value set without RunADF")
	}
}

func TestComputeSnapshotRunsADFOnRequest(t *testing.T) {
	eng, store := newTestEngine()
	seedCointegrated(t, store, 50)

	snap, err := eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 50, SnapshotOptions{RunADF: true, LagOrder: 1})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if snap.ADFPValue == nil {
		t.Fatal("ADF p-value missing")
	}
	// residuals of a cointegrated pair are mean-reverting
	if *snap.ADFPValue > 0.05 {
		t.Errorf("ADF p-value = %v, want <= 0.05", *snap.ADFPValue)
	}
	if snap.ADFStat >= 0 {
		t.Errorf("ADF stat = %v, want negative", snap.ADFStat)
	}
	if snap.ADFLagOrder != 1 {
		t.Errorf("ADF lag order = %d, want 1", snap.ADFLagOrder)
	}
}

func TestComputeSnapshotInsufficientData(t *testing.T) {
	eng, store := newTestEngine()
	seedCointegrated(t, store, 10)

	snap, err := eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 50, SnapshotOptions{})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if snap.Status != models.SnapshotInsufficientData {
		t.Fatalf("status = %q, want insufficient_data", snap.Status)
	}
	if snap.Reason == "" {
		t.Error("reason missing on insufficient data")
	}
	if snap.HedgeRatio != 0 || len(snap.Spread) != 0 {
		t.Error("partial numbers computed on insufficient data")
	}
}

func TestComputeSnapshotDegenerateConstantPrices(t *testing.T) {
	eng, store := newTestEngine()
	for i := 0; i < 50; i++ {
		bucket := testBase.Add(time.Duration(i) * time.Minute)
		seedBar(t, store, "BTCUSDT", models.TF1m, bucket, 100)
		seedBar(t, store, "ETHUSDT", models.TF1m, bucket, 200)
	}

	snap, err := eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 50, SnapshotOptions{})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if snap.Status != models.SnapshotDegenerate {
		t.Fatalf("status = %q, want degenerate_series", snap.Status)
	}
}

func TestComputeSnapshotAlignsOnBucketStart(t *testing.T) {
	eng, store := newTestEngine()
	// X has 60 bars, Y only the even-minute buckets
	xlog := lcgNoise(7, 60, 0.2)
	ynoise := lcgNoise(9, 60, 0.01)
	for i := 0; i < 60; i++ {
		lx := 4.6 + xlog[i]
		bucket := testBase.Add(time.Duration(i) * time.Minute)
		seedBar(t, store, "BTCUSDT", models.TF1m, bucket, math.Exp(lx))
		if i%2 == 0 {
			seedBar(t, store, "ETHUSDT", models.TF1m, bucket, math.Exp(2*lx+0.5+ynoise[i]))
		}
	}

	// 30 aligned rows cover a window of 25
	snap, err := eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 25, SnapshotOptions{})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if snap.Status != models.SnapshotOK {
		t.Fatalf("status = %q (%s), want ok", snap.Status, snap.Reason)
	}
	if len(snap.Spread) != 25 {
		t.Errorf("spread length = %d, want 25", len(snap.Spread))
	}

	// but not a window of 40
	snap, err = eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 40, SnapshotOptions{})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if snap.Status != models.SnapshotInsufficientData {
		t.Fatalf("status = %q, want insufficient_data", snap.Status)
	}
}

func TestComputeSnapshotDeterministic(t *testing.T) {
	eng, store := newTestEngine()
	seedCointegrated(t, store, 60)

	ctx := context.Background()
	a, err := eng.ComputeSnapshot(ctx, "BTCUSDT", "ETHUSDT", models.TF1m, 50, SnapshotOptions{RunADF: true, LagOrder: 1})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	b, err := eng.ComputeSnapshot(ctx, "BTCUSDT", "ETHUSDT", models.TF1m, 50, SnapshotOptions{RunADF: true, LagOrder: 1})
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	if a.HedgeRatio != b.HedgeRatio || a.Alpha != b.Alpha || a.ZScore != b.ZScore || a.Correlation != b.Correlation {
		t.Errorf("repeated runs differ: %+v vs %+v", a, b)
	}
	if *a.ADFPValue != *b.ADFPValue || a.ADFStat != b.ADFStat {
		t.Errorf("ADF results differ: %v/%v vs %v/%v", *a.ADFPValue, a.ADFStat, *b.ADFPValue, b.ADFStat)
	}
	if len(a.Spread) != len(b.Spread) {
		t.Fatalf("spread lengths differ: %d vs %d", len(a.Spread), len(b.Spread))
	}
	for i := range a.Spread {
		if a.Spread[i] != b.Spread[i] {
			t.Fatalf("spread[%d] differs: %v vs %v", i, a.Spread[i], b.Spread[i])
		}
	}
}

func TestComputeSnapshotRejectsTinyWindow(t *testing.T) {
	eng, _ := newTestEngine()
	if _, err := eng.ComputeSnapshot(context.Background(), "BTCUSDT", "ETHUSDT", models.TF1m, 1, SnapshotOptions{}); err == nil {
		t.Fatal("expected error for window < 2")
	}
}
