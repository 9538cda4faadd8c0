package aggregator

import (
	"context"
	"errors"
	"time"

	"PairFlow/internal/buffer"
	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"
)

type windowKey struct {
	pair string
	tf   models.Timeframe
}

// Config holds aggregator tuning.
type Config struct {
	Timeframes   []models.Timeframe
	RetryMax     int           // bounded upsert attempts beyond the first
	RetryBackoff time.Duration // base backoff between attempts
}

// Aggregator maintains one open window per (pair, timeframe) and emits closed
// bars to the bar store. Open windows are owned exclusively by the aggregator
// loop; no other component reads or writes them. The per-key watermark is the
// latest bucket whose bar has been durably persisted.
type Aggregator struct {
	store   domrepo.BarStore
	metrics domrepo.Metrics
	log     *applogger.Logger
	cfg     Config

	open      map[windowKey]*models.Bar
	watermark map[windowKey]time.Time
}

// New creates an aggregator for the configured timeframes.
func New(store domrepo.BarStore, metrics domrepo.Metrics, log *applogger.Logger, cfg Config) *Aggregator {
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = []models.Timeframe{models.TF1s, models.TF1m, models.TF5m}
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}
	return &Aggregator{
		store:     store,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
		open:      make(map[windowKey]*models.Bar),
		watermark: make(map[windowKey]time.Time),
	}
}

// Run consumes the buffer until the context is cancelled. Open windows are
// intentionally not persisted on shutdown: only closed bars are ever stored,
// so a restart loses at most the currently open window per timeframe.
func (a *Aggregator) Run(ctx context.Context, buf *buffer.Buffer) error {
	for {
		t, err := buf.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				a.log.Info("aggregator stopped",
					applogger.Int("open_windows", len(a.open)))
				return nil
			}
			return err
		}
		a.Apply(ctx, t)
	}
}

// Apply routes one tick through every timeframe's window state machine.
// A single tick can close one timeframe's window while merely updating
// another's.
func (a *Aggregator) Apply(ctx context.Context, t *models.Tick) {
	if err := t.Validate(); err != nil {
		a.metrics.RecordTickDropped("malformed")
		a.log.Warn("malformed tick rejected", applogger.Error(err))
		return
	}
	a.metrics.RecordTickIngested(t.Pair)
	a.metrics.RecordLastPrice(t.Pair, t.Price)

	for _, tf := range a.cfg.Timeframes {
		a.applyTimeframe(ctx, t, tf)
	}
}

func (a *Aggregator) applyTimeframe(ctx context.Context, t *models.Tick, tf models.Timeframe) {
	key := windowKey{pair: t.Pair, tf: tf}
	bucket := tf.Bucket(t.EventTime)

	w := a.open[key]
	switch {
	case w == nil:
		a.open[key] = models.NewBar(t, tf, bucket)

	case bucket.Equal(w.BucketStart):
		w.Apply(t)

	case bucket.After(w.BucketStart):
		// time advanced past the boundary: close and emit, then open the
		// tick's bucket. Empty buckets in between are simply absent.
		a.emit(ctx, key, w)
		a.open[key] = models.NewBar(t, tf, bucket)

	default:
		// late arrival for an already-closed bucket. Grace period is zero:
		// closed bars are immutable, so the tick is dropped and counted.
		a.metrics.RecordTickDropped("late")
		a.log.Debug("late tick dropped",
			applogger.String("pair", t.Pair),
			applogger.String("tf", string(tf)),
			applogger.Int64("event_micros", t.EventTime))
	}
}

// emit persists a closed bar with bounded retries. The watermark advances only
// after an acknowledged write; exhausted retries skip the bucket and count it
// as data loss. Upsert is idempotent, so a retry after a crash-restart never
// duplicates.
func (a *Aggregator) emit(ctx context.Context, key windowKey, b *models.Bar) {
	start := time.Now()
	var err error
	for attempt := 0; attempt <= a.cfg.RetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * a.cfg.RetryBackoff):
			case <-ctx.Done():
				a.metrics.RecordPersistFailure(key.pair, string(key.tf))
				return
			}
		}
		if err = a.store.Upsert(ctx, b); err == nil {
			a.watermark[key] = b.BucketStart
			a.metrics.RecordBarPersisted(key.pair, string(key.tf))
			a.metrics.RecordLatency("bar_upsert", time.Since(start).Seconds())
			return
		}
		a.metrics.RecordError("bar_upsert")
	}

	a.metrics.RecordPersistFailure(key.pair, string(key.tf))
	a.log.Error("bar dropped after retries",
		applogger.String("pair", key.pair),
		applogger.String("tf", string(key.tf)),
		applogger.Any("bucket", b.BucketStart),
		applogger.Error(err))
}

// Watermark returns the last persisted bucket for (pair, timeframe).
func (a *Aggregator) Watermark(pair string, tf models.Timeframe) (time.Time, bool) {
	t, ok := a.watermark[windowKey{pair: pair, tf: tf}]
	return t, ok
}

// OpenWindow exposes a copy of the current open bar for inspection in tests
// and status reporting; the live bar remains owned by the aggregator.
func (a *Aggregator) OpenWindow(pair string, tf models.Timeframe) (models.Bar, bool) {
	w, ok := a.open[windowKey{pair: pair, tf: tf}]
	if !ok {
		return models.Bar{}, false
	}
	return *w, true
}
