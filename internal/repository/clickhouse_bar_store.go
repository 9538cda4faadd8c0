package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	pkgch "PairFlow/pkg/clickhouse"
	applogger "PairFlow/pkg/logger"
)

// Schema statements for the bar table. ReplacingMergeTree keyed by
// (pair, timeframe, bucket_start) gives upsert replace semantics: re-inserting
// a key after a crash-restart converges to one row, deduplicated at merge time
// and at read time via FINAL.
var BarSchema = []string{
	`CREATE DATABASE IF NOT EXISTS pairflow`,
	`CREATE TABLE IF NOT EXISTS pairflow.bars (
        pair         LowCardinality(String),
        timeframe    LowCardinality(String),
        bucket_start DateTime64(6, 'UTC'),
        open         Float64,
        high         Float64,
        low          Float64,
        close        Float64,
        volume       Float64,
        tick_count   UInt64,
        ingested_at  DateTime64(6, 'UTC') DEFAULT now64(6)
    ) ENGINE = ReplacingMergeTree(ingested_at)
    ORDER BY (pair, timeframe, bucket_start)`,
}

// CHBarStore implements BarStore backed by ClickHouse.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, l *applogger.Logger) *CHBarStore {
	return &CHBarStore{db: ch.DB(), table: "pairflow.bars", l: l}
}

func (s *CHBarStore) Upsert(ctx context.Context, b *models.Bar) error {
	if b == nil {
		return fmt.Errorf("bar is nil")
	}
	q := fmt.Sprintf(`INSERT INTO %s
        (pair, timeframe, bucket_start, open, high, low, close, volume, tick_count)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		b.Pair, string(b.Timeframe), b.BucketStart.UTC(),
		b.Open, b.High, b.Low, b.Close, b.Volume, b.TickCount,
	)
	if err != nil {
		return fmt.Errorf("upsert bar: %w", err)
	}
	return nil
}

func (s *CHBarStore) Query(ctx context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT pair, timeframe, bucket_start, open, high, low, close, volume, tick_count
        FROM %s FINAL
        WHERE pair = ? AND timeframe = ? AND bucket_start >= ? AND bucket_start < ?
        ORDER BY bucket_start ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, q, pair, string(tf), from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse bar query error",
			applogger.String("pair", pair),
			applogger.String("tf", string(tf)),
			applogger.Error(err))
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows, 0)
	if err != nil {
		return nil, err
	}
	s.l.Debug("clickhouse bar query ok",
		applogger.String("pair", pair),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (s *CHBarStore) LatestN(ctx context.Context, pair string, tf models.Timeframe, n int) ([]models.Bar, error) {
	q := fmt.Sprintf(`
        SELECT pair, timeframe, bucket_start, open, high, low, close, volume, tick_count
        FROM %s FINAL
        WHERE pair = ? AND timeframe = ?
        ORDER BY bucket_start DESC
        LIMIT ?`, s.table)

	rows, err := s.db.QueryContext(ctx, q, pair, string(tf), n)
	if err != nil {
		s.l.Error("clickhouse latest bars query error",
			applogger.String("pair", pair),
			applogger.String("tf", string(tf)),
			applogger.Int("limit", n),
			applogger.Error(err))
		return nil, fmt.Errorf("latest bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows, n)
	if err != nil {
		return nil, err
	}
	// reverse DESC result to ascending
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanBars(rows *sql.Rows, hint int) ([]models.Bar, error) {
	if hint <= 0 {
		hint = 256
	}
	out := make([]models.Bar, 0, hint)
	for rows.Next() {
		var b models.Bar
		var tf string
		if err := rows.Scan(&b.Pair, &tf, &b.BucketStart, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.TickCount); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timeframe = models.Timeframe(tf)
		b.BucketStart = b.BucketStart.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHBarStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close is a no-op: the pooled client is owned by the app lifecycle.
func (s *CHBarStore) Close() error { return nil }

var _ domrepo.BarStore = (*CHBarStore)(nil)
