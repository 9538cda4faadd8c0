package usecase

import (
	"context"
	"time"

	"PairFlow/internal/buffer"
	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"

	"golang.org/x/time/rate"
)

// TickCollector reads ticks from the source, throttles them, optionally fans
// them out to a transport, and pushes them into the bounded buffer.
type TickCollector struct {
	source  domrepo.TickSource
	fanout  domrepo.TickPublisher // nil when fanout is disabled
	buf     *buffer.Buffer
	limiter *rate.Limiter // nil when unthrottled
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewTickCollector(source domrepo.TickSource, fanout domrepo.TickPublisher, buf *buffer.Buffer, maxTicksPerSec int, metrics domrepo.Metrics, log *applogger.Logger) *TickCollector {
	var limiter *rate.Limiter
	if maxTicksPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxTicksPerSec), maxTicksPerSec)
	}
	return &TickCollector{
		source:  source,
		fanout:  fanout,
		buf:     buf,
		limiter: limiter,
		metrics: metrics,
		log:     log,
	}
}

// IsConnected reports whether the tick source is connected.
func (c *TickCollector) IsConnected() bool {
	return c.source.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.source.Connect(ctx); err != nil {
		return err
	}
	if err := c.source.Subscribe(ctx); err != nil {
		return err
	}
	tickCh, errCh := c.source.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

const (
	reconnectBaseBackoff = 100 * time.Millisecond
	reconnectMaxBackoff  = 5 * time.Second
)

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err == nil {
				continue
			}
			if err != nil {
				c.metrics.RecordError("source")
				c.log.Warn("tick source error, reconnecting", applogger.Error(err))
			}
			// an error or a closed channel both mean the stream is dead
			if tickCh, errCh = c.reestablish(ctx); tickCh == nil {
				return
			}
		case t, ok := <-tickCh:
			if !ok {
				if tickCh, errCh = c.reestablish(ctx); tickCh == nil {
					return
				}
				continue
			}
			if t == nil {
				continue
			}
			c.ingest(ctx, t)
		}
	}
}

// reestablish retries Reconnect with exponential backoff until it succeeds or
// the context ends. Nil channels signal cancellation.
func (c *TickCollector) reestablish(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	backoff := reconnectBaseBackoff
	for {
		err := c.source.Reconnect(ctx)
		if err == nil {
			c.log.Info("tick source reconnected")
			return c.source.Read(ctx)
		}
		c.metrics.RecordError("reconnect")
		c.log.Error("tick source reconnect failed",
			applogger.Error(err),
			applogger.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMaxBackoff {
			backoff = reconnectMaxBackoff
		}
	}
}

func (c *TickCollector) ingest(ctx context.Context, t *models.Tick) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.metrics.RecordTickDropped("throttled")
		return
	}
	if c.fanout != nil {
		// best effort: a transport outage never blocks local aggregation
		if err := c.fanout.Publish(ctx, t); err != nil {
			c.metrics.RecordError("fanout")
			c.log.Warn("tick fanout failed",
				applogger.String("pair", t.Pair),
				applogger.Error(err))
		}
	}
	c.buf.Push(t)
}

// Shutdown closes the source and the fanout transport.
func (c *TickCollector) Shutdown() error {
	err := c.source.Close()
	if c.fanout != nil {
		if cerr := c.fanout.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
