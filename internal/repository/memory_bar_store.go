package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
)

// MemoryBarStore keeps closed bars in process memory. Used by tests and for
// storage-free runs; carries the same replace-on-key semantics as the
// ClickHouse store.
type MemoryBarStore struct {
	mu   sync.RWMutex
	bars map[string]models.Bar
}

func NewMemoryBarStore() *MemoryBarStore {
	return &MemoryBarStore{bars: make(map[string]models.Bar)}
}

func barKey(pair string, tf models.Timeframe, bucket time.Time) string {
	return fmt.Sprintf("%s|%s|%d", pair, tf, bucket.UnixMicro())
}

func (s *MemoryBarStore) Upsert(_ context.Context, b *models.Bar) error {
	if b == nil {
		return fmt.Errorf("bar is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[barKey(b.Pair, b.Timeframe, b.BucketStart)] = *b
	return nil
}

func (s *MemoryBarStore) Query(_ context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]models.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Bar, 0, 64)
	for _, b := range s.bars {
		if b.Pair != pair || b.Timeframe != tf {
			continue
		}
		if b.BucketStart.Before(from) || !b.BucketStart.Before(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out, nil
}

func (s *MemoryBarStore) LatestN(_ context.Context, pair string, tf models.Timeframe, n int) ([]models.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Bar, 0, n)
	for _, b := range s.bars {
		if b.Pair == pair && b.Timeframe == tf {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (s *MemoryBarStore) Health(context.Context) error { return nil }

func (s *MemoryBarStore) Close() error { return nil }

// Len returns the number of stored bars.
func (s *MemoryBarStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bars)
}

var _ domrepo.BarStore = (*MemoryBarStore)(nil)
