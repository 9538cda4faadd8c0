package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksIngested   *prometheus.CounterVec
	ticksDropped    *prometheus.CounterVec
	barsPersisted   *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	zScore          *prometheus.GaugeVec
	alertsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairflow_ticks_ingested_total",
				Help: "Total number of ticks accepted into the pipeline",
			},
			[]string{"pair"},
		),
		ticksDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairflow_ticks_dropped_total",
				Help: "Total number of ticks dropped, by reason",
			},
			[]string{"reason"},
		),
		barsPersisted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairflow_bars_persisted_total",
				Help: "Total number of closed bars stored",
			},
			[]string{"pair", "timeframe"},
		),
		persistFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairflow_bar_persist_failures_total",
				Help: "Total number of bars lost after exhausted retries",
			},
			[]string{"pair", "timeframe"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairflow_last_price",
				Help: "Last observed trade price for a pair",
			},
			[]string{"pair"},
		),
		zScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairflow_z_score",
				Help: "Latest spread z-score for the monitored pair",
			},
			[]string{"pair_x", "pair_y"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairflow_z_score_alerts_total",
				Help: "Total number of z-score threshold crossings",
			},
			[]string{"pair_x", "pair_y"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pairflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairflow_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordTickIngested counts an accepted tick.
func (r *Recorder) RecordTickIngested(pair string) {
	r.ticksIngested.WithLabelValues(pair).Inc()
}

// RecordTickDropped counts a dropped tick by reason.
func (r *Recorder) RecordTickDropped(reason string) {
	r.ticksDropped.WithLabelValues(reason).Inc()
}

// RecordBarPersisted counts a stored bar.
func (r *Recorder) RecordBarPersisted(pair, timeframe string) {
	r.barsPersisted.WithLabelValues(pair, timeframe).Inc()
}

// RecordPersistFailure counts a bar lost after exhausted retries.
func (r *Recorder) RecordPersistFailure(pair, timeframe string) {
	r.persistFailures.WithLabelValues(pair, timeframe).Inc()
}

// RecordLastPrice records the last price for a pair.
func (r *Recorder) RecordLastPrice(pair string, price float64) {
	r.lastPrice.WithLabelValues(pair).Set(price)
}

// RecordZScore records the latest z-score of the monitored pair.
func (r *Recorder) RecordZScore(pairX, pairY string, z float64) {
	r.zScore.WithLabelValues(pairX, pairY).Set(z)
}

// RecordAlert counts a z-score threshold crossing.
func (r *Recorder) RecordAlert(pairX, pairY string) {
	r.alertsTotal.WithLabelValues(pairX, pairY).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
