package buffer

import (
	"context"
	"sync"
	"sync/atomic"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
)

// Buffer is the bounded hand-off queue between ingestion and the aggregator.
// Push never blocks the producer: on overflow the oldest tick is dropped and
// counted. Delivery is at-most-once per sequence ID: a tick whose sequence ID
// is <= the last accepted for its pair is discarded, which defends against
// upstream reconnect replays.
type Buffer struct {
	ch      chan *models.Tick
	metrics domrepo.Metrics

	mu      sync.Mutex
	lastSeq map[string]uint64

	droppedOldest uint64
	droppedDup    uint64
}

// New creates a buffer with the given fixed capacity.
func New(capacity int, metrics domrepo.Metrics) *Buffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Buffer{
		ch:      make(chan *models.Tick, capacity),
		metrics: metrics,
		lastSeq: make(map[string]uint64),
	}
}

// Push appends a tick. Duplicate and overflowed ticks are dropped silently;
// the caller is never blocked and never sees an error.
func (b *Buffer) Push(t *models.Tick) {
	if t == nil {
		return
	}

	b.mu.Lock()
	last, seen := b.lastSeq[t.Pair]
	if seen && t.SequenceID <= last {
		b.mu.Unlock()
		atomic.AddUint64(&b.droppedDup, 1)
		b.metrics.RecordTickDropped("duplicate")
		return
	}
	b.lastSeq[t.Pair] = t.SequenceID
	b.mu.Unlock()

	for {
		select {
		case b.ch <- t:
			return
		default:
		}
		// full: evict the oldest and retry
		select {
		case <-b.ch:
			atomic.AddUint64(&b.droppedOldest, 1)
			b.metrics.RecordTickDropped("overflow")
		case b.ch <- t:
			return
		}
	}
}

// Pop returns the next tick in arrival order, blocking until one is available
// or the context is done.
func (b *Buffer) Pop(ctx context.Context) (*models.Tick, error) {
	select {
	case t := <-b.ch:
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered ticks.
func (b *Buffer) Len() int { return len(b.ch) }

// DroppedOldest returns the count of ticks evicted on overflow.
func (b *Buffer) DroppedOldest() uint64 { return atomic.LoadUint64(&b.droppedOldest) }

// DroppedDuplicates returns the count of ticks discarded by sequence dedup.
func (b *Buffer) DroppedDuplicates() uint64 { return atomic.LoadUint64(&b.droppedDup) }

// LastSequence returns the last accepted sequence ID for a pair.
func (b *Buffer) LastSequence(pair string) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seq, ok := b.lastSeq[pair]
	return seq, ok
}
