package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	"PairFlow/internal/services/analytics"
	applogger "PairFlow/pkg/logger"
)

// SnapshotConfig fixes the monitored pair and the cadence of the periodic
// signal computation.
type SnapshotConfig struct {
	PairX         string
	PairY         string
	Timeframe     models.Timeframe
	Window        int
	CycleInterval time.Duration
	LagOrder      int
	AlertZScore   float64 // 0 disables alerting
	ADFEveryCycle bool
}

// SnapshotService recomputes the pair signal on a fixed cadence and keeps the
// latest snapshot for the API. The unit-root test is excluded from the cycle
// unless configured in, and can always be triggered on demand.
type SnapshotService struct {
	engine  *analytics.Engine
	cfg     SnapshotConfig
	metrics domrepo.Metrics
	log     *applogger.Logger

	mu     sync.RWMutex
	latest *models.PairSnapshot
}

func NewSnapshotService(engine *analytics.Engine, cfg SnapshotConfig, metrics domrepo.Metrics, log *applogger.Logger) *SnapshotService {
	return &SnapshotService{engine: engine, cfg: cfg, metrics: metrics, log: log}
}

// Run executes compute cycles until the context is cancelled. The first cycle
// runs immediately so the API has a snapshot as soon as bars exist.
func (s *SnapshotService) Run(ctx context.Context) error {
	s.cycle(ctx)

	ticker := time.NewTicker(s.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *SnapshotService) cycle(ctx context.Context) {
	snap, err := s.engine.ComputeSnapshot(ctx, s.cfg.PairX, s.cfg.PairY, s.cfg.Timeframe, s.cfg.Window,
		analytics.SnapshotOptions{RunADF: s.cfg.ADFEveryCycle, LagOrder: s.cfg.LagOrder})
	if err != nil {
		s.metrics.RecordError("snapshot_cycle")
		s.log.Error("snapshot cycle failed",
			applogger.String("pair_x", s.cfg.PairX),
			applogger.String("pair_y", s.cfg.PairY),
			applogger.Error(err))
		return
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if snap.Status != models.SnapshotOK {
		s.log.Debug("snapshot not tradable",
			applogger.String("status", string(snap.Status)),
			applogger.String("reason", snap.Reason))
		return
	}

	s.metrics.RecordZScore(s.cfg.PairX, s.cfg.PairY, snap.ZScore)
	if s.cfg.AlertZScore > 0 && math.Abs(snap.ZScore) >= s.cfg.AlertZScore {
		s.metrics.RecordAlert(s.cfg.PairX, s.cfg.PairY)
		s.log.Warn("z-score alert",
			applogger.String("pair_x", s.cfg.PairX),
			applogger.String("pair_y", s.cfg.PairY),
			applogger.Float64("z_score", snap.ZScore),
			applogger.Float64("threshold", s.cfg.AlertZScore))
	}
}

// Config returns the monitored pair configuration.
func (s *SnapshotService) Config() SnapshotConfig { return s.cfg }

// Latest returns the most recent snapshot, or nil before the first cycle
// completes.
func (s *SnapshotService) Latest() *models.PairSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// TriggerADF recomputes the configured pair with the unit-root test included
// and stores the result as the latest snapshot.
func (s *SnapshotService) TriggerADF(ctx context.Context, lagOrder int) (*models.PairSnapshot, error) {
	if lagOrder < 0 {
		lagOrder = s.cfg.LagOrder
	}
	snap, err := s.engine.ComputeSnapshot(ctx, s.cfg.PairX, s.cfg.PairY, s.cfg.Timeframe, s.cfg.Window,
		analytics.SnapshotOptions{RunADF: true, LagOrder: lagOrder})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()
	return snap, nil
}
