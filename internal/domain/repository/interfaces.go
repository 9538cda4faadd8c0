package repository

import (
	"context"
	"time"

	"PairFlow/internal/domain/models"
)

// TickSource delivers a best-effort ordered stream of raw ticks. Duplicates
// and replays are tolerated downstream via sequence IDs.
type TickSource interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// TickPublisher fans ingested ticks out to a transport (Redis Streams or
// Kafka) for external consumers or a second pipeline instance.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	Close() error
}

// BarStore is durable, idempotent keyed storage for closed bars. Upsert with
// an existing (pair, timeframe, bucketStart) key replaces the stored bar.
type BarStore interface {
	Upsert(ctx context.Context, b *models.Bar) error
	// Query returns bars ordered by bucketStart ascending, [from, to).
	Query(ctx context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]models.Bar, error)
	// LatestN returns the most recent n bars in ascending order.
	LatestN(ctx context.Context, pair string, tf models.Timeframe, n int) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the observability boundary for all pipeline components.
type Metrics interface {
	RecordTickIngested(pair string)
	RecordTickDropped(reason string) // overflow, duplicate, late, malformed, throttled
	RecordBarPersisted(pair, timeframe string)
	RecordPersistFailure(pair, timeframe string)
	RecordLastPrice(pair string, price float64)
	RecordZScore(pairX, pairY string, z float64)
	RecordAlert(pairX, pairY string)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
