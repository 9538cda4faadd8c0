package analytics

import (
	"context"
	"fmt"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"
)

// Engine turns two aligned bar series into a tradability signal. It only
// reads from the bar store and is pure with respect to its contents: the
// same bars always produce the same numbers.
type Engine struct {
	store   domrepo.BarStore
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewEngine(store domrepo.BarStore, metrics domrepo.Metrics, log *applogger.Logger) *Engine {
	return &Engine{store: store, metrics: metrics, log: log}
}

// SnapshotOptions tunes a single computation. The unit-root test runs only
// on explicit request since it is the most expensive step.
type SnapshotOptions struct {
	RunADF   bool
	LagOrder int
}

// ComputeSnapshot joins the two legs' closed bars on bucketStart, regresses
// log(Y) on log(X) over the most recent window, and derives the spread,
// z-score, and rolling correlation. Insufficient or degenerate input is
// reported in the snapshot status, never as a partially computed signal;
// only store failures surface as errors.
func (e *Engine) ComputeSnapshot(ctx context.Context, pairX, pairY string, tf models.Timeframe, window int, opts SnapshotOptions) (*models.PairSnapshot, error) {
	start := time.Now()
	snap := &models.PairSnapshot{
		PairX:      pairX,
		PairY:      pairY,
		Timeframe:  tf,
		WindowSize: window,
		AsOf:       time.Now().UTC(),
	}
	if window < 2 {
		return nil, fmt.Errorf("window must be >= 2, got %d", window)
	}

	// fetch extra rows so gaps in one leg still leave a full aligned window
	fetch := window*2 + 10
	barsX, err := e.store.LatestN(ctx, pairX, tf, fetch)
	if err != nil {
		return nil, fmt.Errorf("load %s bars: %w", pairX, err)
	}
	barsY, err := e.store.LatestN(ctx, pairY, tf, fetch)
	if err != nil {
		return nil, fmt.Errorf("load %s bars: %w", pairY, err)
	}

	closesX, closesY := alignCloses(barsX, barsY)
	if len(closesX) < window {
		snap.Status = models.SnapshotInsufficientData
		snap.Reason = fmt.Sprintf("%v: have %d aligned, need %d", models.ErrInsufficientData, len(closesX), window)
		return snap, nil
	}

	// most recent window of aligned rows
	closesX = closesX[len(closesX)-window:]
	closesY = closesY[len(closesY)-window:]
	logX := logSeries(closesX)
	logY := logSeries(closesY)

	alpha, beta, err := olsFit(logX, logY)
	if err != nil {
		snap.Status = models.SnapshotDegenerate
		snap.Reason = err.Error()
		return snap, nil
	}
	snap.Alpha = alpha
	snap.HedgeRatio = beta
	snap.Spread = residuals(logX, logY, alpha, beta)

	corr, err := pearson(logX, logY)
	if err != nil {
		snap.Status = models.SnapshotDegenerate
		snap.Reason = err.Error()
		return snap, nil
	}
	snap.Correlation = corr

	mean, std := meanStd(snap.Spread)
	if std == 0 {
		// z-score undefined: reported, not computed
		snap.Status = models.SnapshotDegenerate
		snap.Reason = models.ErrDegenerateSeries.Error()
		return snap, nil
	}
	snap.ZScore = (snap.LatestSpread() - mean) / std
	snap.Status = models.SnapshotOK

	if opts.RunADF {
		res, err := ADFTest(snap.Spread, opts.LagOrder)
		if err != nil {
			e.log.Warn("adf test skipped",
				applogger.String("pair_x", pairX),
				applogger.String("pair_y", pairY),
				applogger.Error(err))
		} else {
			p := res.PValue
			snap.ADFPValue = &p
			snap.ADFStat = res.Stat
			snap.ADFLagOrder = res.LagOrder
		}
	}

	e.metrics.RecordLatency("compute_snapshot", time.Since(start).Seconds())
	return snap, nil
}

// alignCloses inner-joins the two legs' closes on bucketStart. Rows present
// in only one leg are excluded; the engine tolerates irregular bar spacing,
// so gaps simply shrink the aligned set.
func alignCloses(barsX, barsY []models.Bar) (x, y []float64) {
	byBucket := make(map[int64]float64, len(barsY))
	for _, b := range barsY {
		byBucket[b.BucketStart.UnixMicro()] = b.Close
	}
	x = make([]float64, 0, len(barsX))
	y = make([]float64, 0, len(barsX))
	for _, b := range barsX {
		if closeY, ok := byBucket[b.BucketStart.UnixMicro()]; ok {
			x = append(x, b.Close)
			y = append(y, closeY)
		}
	}
	return x, y
}
