package cache

import (
	"sync"
	"time"
)

// MemoryOption configures Memory.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds cache settings.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// WithMaxSize caps the number of cached entries before LRU eviction.
func WithMaxSize(n int) MemoryOption {
	return func(c *MemoryConfig) {
		if n > 0 {
			c.MaxSize = n
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if d > 0 {
			c.CleanupInterval = d
		}
	}
}

type item struct {
	value    interface{}
	expireAt time.Time
}

// Memory is an in-process TTL cache with LRU eviction at capacity. It backs
// the on-demand pair endpoint so repeated queries within the TTL reuse one
// computation.
type Memory struct {
	mu      sync.Mutex
	data    map[string]*item
	access  map[string]time.Time
	maxSize int

	ticker *time.Ticker
	done   chan struct{}
}

// NewMemory creates an in-memory cache and starts its sweep loop.
func NewMemory(opts ...MemoryOption) *Memory {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Memory{
		data:    make(map[string]*item),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxSize {
		m.evictLRU()
	}
	m.data[key] = &item{value: value, expireAt: time.Now().Add(ttl)}
	m.access[key] = time.Now()
}

// Get returns the cached value, or false when absent or expired.
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expireAt) {
		delete(m.data, key)
		delete(m.access, key)
		return nil, false
	}
	m.access[key] = time.Now()
	return it.value, true
}

// Delete removes keys.
func (m *Memory) Delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.access, key)
	}
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Stop ends the sweep loop.
func (m *Memory) Stop() {
	m.ticker.Stop()
	close(m.done)
}

func (m *Memory) evictLRU() {
	var oldest string
	var oldestAt time.Time
	for key, at := range m.access {
		if oldest == "" || at.Before(oldestAt) {
			oldest = key
			oldestAt = at
		}
	}
	if oldest != "" {
		delete(m.data, oldest)
		delete(m.access, oldest)
	}
}

func (m *Memory) sweep() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, it := range m.data {
				if now.After(it.expireAt) {
					delete(m.data, key)
					delete(m.access, key)
				}
			}
			m.mu.Unlock()
		}
	}
}
