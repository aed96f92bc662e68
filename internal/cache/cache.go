// Package cache provides an in-memory result cache keyed by page identity and
// guarded by a content hash, with confidence-scaled TTLs and bounded capacity.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCapacity is the default maximum number of entries.
const DefaultCapacity = 1000

// DefaultSweepInterval is the default period of the background expiry sweep.
const DefaultSweepInterval = 5 * time.Minute

// Entry is a cached value with its bookkeeping.
type Entry[T any] struct {
	Data        T
	CreatedAt   time.Time
	TTL         time.Duration
	HitCount    int
	ContentHash string
}

func (e *Entry[T]) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= e.TTL
}

// Config configures a Cache.
type Config struct {
	Capacity      int
	SweepInterval time.Duration
}

// Stats is a read-only snapshot of cache counters.
type Stats struct {
	Entries       int     `json:"entries"`
	Capacity      int     `json:"capacity"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Evictions     uint64  `json:"evictions"`
	Invalidations uint64  `json:"invalidations"`
	Expired       uint64  `json:"expired"`
	HitRate       float64 `json:"hit_rate"`
}

// Cache is a concurrency-safe map of entries. Values are copied on the way
// in and out with the clone function so callers never share cached memory.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[T]
	cfg     Config
	clone   func(T) T
	now     func() time.Time
	logger  *zap.Logger

	hits, misses, evictions, invalidations, expired uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a cache. A nil clone copies values by assignment.
func New[T any](cfg Config, clone func(T) T, logger *zap.Logger) *Cache[T] {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[T]{
		entries: make(map[string]*Entry[T]),
		cfg:     cfg,
		clone:   clone,
		now:     time.Now,
		logger:  logger.Named("cache"),
		stop:    make(chan struct{}),
	}
}

// SetClock replaces the time source. Tests only.
func (c *Cache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the value stored under key if it has not expired and was
// produced from content with the same hash. A hash mismatch drops the entry.
func (c *Cache[T]) Get(key, contentHash string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.expired++
		c.misses++
		return zero, false
	}
	if contentHash != "" && e.ContentHash != contentHash {
		delete(c.entries, key)
		c.invalidations++
		c.misses++
		return zero, false
	}

	e.HitCount++
	c.hits++
	return c.clone(e.Data), true
}

// Set stores value under key for ttl. When the cache is full the entry with
// the oldest set time is evicted.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration, contentHash string) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.Capacity {
		c.sweepLocked(now)
		if len(c.entries) >= c.cfg.Capacity {
			c.evictOldestLocked()
		}
	}

	c.entries[key] = &Entry[T]{
		Data:        c.clone(value),
		CreatedAt:   now,
		TTL:         ttl,
		ContentHash: contentHash,
	}
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *Cache[T]) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.expired += uint64(removed)
	return removed
}

func (c *Cache[T]) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey = k
			oldest = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries:       len(c.entries),
		Capacity:      c.cfg.Capacity,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		Expired:       c.expired,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Start runs the background sweep until ctx is done or Stop is called.
func (c *Cache[T]) Start(ctx context.Context) {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return
	}
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.sweepLoop(ctx)
}

func (c *Cache[T]) sweepLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("swept expired entries", zap.Int("removed", n))
			}
		}
	}
}

// Stop halts the background sweep and waits for it to exit.
func (c *Cache[T]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
