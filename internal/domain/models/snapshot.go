package models

import (
	"errors"
	"time"
)

// SnapshotStatus distinguishes the three consumer-visible signal states:
// a valid current signal, not enough data yet, and a computational failure.
type SnapshotStatus string

const (
	SnapshotOK               SnapshotStatus = "ok"
	SnapshotInsufficientData SnapshotStatus = "insufficient_data"
	SnapshotDegenerate       SnapshotStatus = "degenerate_series"
)

// ErrInsufficientData is reported when fewer than windowSize aligned bars
// exist for the requested pair and timeframe.
var ErrInsufficientData = errors.New("insufficient aligned bars")

// ErrDegenerateSeries is reported when a series has zero variance and the
// regression or z-score is undefined.
var ErrDegenerateSeries = errors.New("degenerate series: zero variance")

// PairSnapshot is the stat-arb signal for one pair of legs, recomputed each
// analytics cycle. Ephemeral: a pure function of the bar history within the
// analysis window, never persisted.
type PairSnapshot struct {
	PairX      string    `json:"pair_x"`
	PairY      string    `json:"pair_y"`
	Timeframe  Timeframe `json:"timeframe"`
	WindowSize int       `json:"window_size"`

	HedgeRatio  float64   `json:"hedge_ratio"`
	Alpha       float64   `json:"alpha"`
	Spread      []float64 `json:"spread"`
	ZScore      float64   `json:"z_score"`
	Correlation float64   `json:"correlation"`

	// ADFPValue is nil until the stationarity test has been run.
	ADFPValue   *float64 `json:"adf_p_value,omitempty"`
	ADFStat     float64  `json:"adf_stat,omitempty"`
	ADFLagOrder int      `json:"adf_lag_order,omitempty"`

	AsOf   time.Time      `json:"as_of"`
	Status SnapshotStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
}

// LatestSpread returns the most recent residual, or zero when empty.
func (s *PairSnapshot) LatestSpread() float64 {
	if len(s.Spread) == 0 {
		return 0
	}
	return s.Spread[len(s.Spread)-1]
}

// Tradable reports whether the snapshot carries a usable signal.
func (s *PairSnapshot) Tradable() bool { return s.Status == SnapshotOK }
