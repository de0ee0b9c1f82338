package sentiment

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sol-swarm/internal/domain"
	"sol-swarm/internal/observability"
)

// Cache is a token-keyed TTL cache in front of the Aggregator. Entries
// expire lazily on read; there is no background sweep. Concurrent
// requests for the same token collapse into one computation via
// singleflight, so the classifier runs at most once per token per TTL
// window.
type Cache struct {
	aggregator *Aggregator
	ttl        time.Duration
	logger     *log.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry

	group singleflight.Group
}

type cacheEntry struct {
	result   *domain.SentimentResult
	cachedAt time.Time
}

// NewCache creates a Cache with the given TTL. metrics may be nil.
func NewCache(aggregator *Aggregator, ttl time.Duration, logger *log.Logger, metrics *observability.Metrics) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		aggregator: aggregator,
		ttl:        ttl,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		entries:    make(map[string]*cacheEntry),
	}
}

// GetOrCompute returns the cached result for token if fresh, otherwise
// computes it from texts and caches it. A second caller for the same
// token while a computation is in flight waits for and reuses that
// result.
func (c *Cache) GetOrCompute(ctx context.Context, token string, texts []string) *domain.SentimentResult {
	if result := c.lookup(token); result != nil {
		c.logger.Printf("using cached sentiment for %s", token)
		c.recordHit()
		return result
	}

	v, _, _ := c.group.Do(token, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have stored a
		// fresh entry between our lookup and Do.
		if result := c.lookup(token); result != nil {
			c.recordHit()
			return result, nil
		}

		if c.metrics != nil {
			c.metrics.SentimentCacheMisses.Inc()
		}
		result := c.aggregator.Analyze(ctx, token, texts)

		c.mu.Lock()
		c.entries[token] = &cacheEntry{result: result, cachedAt: c.now()}
		c.mu.Unlock()

		return result, nil
	})

	return v.(*domain.SentimentResult)
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.SentimentCacheHits.Inc()
	}
}

// lookup returns a fresh cached result or nil, evicting a stale entry.
func (c *Cache) lookup(token string) *domain.SentimentResult {
	c.mu.RLock()
	entry, ok := c.entries[token]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	if c.now().Sub(entry.cachedAt) >= c.ttl {
		c.mu.Lock()
		// Entry may have been refreshed while upgrading the lock.
		if cur, ok := c.entries[token]; ok && c.now().Sub(cur.cachedAt) >= c.ttl {
			delete(c.entries, token)
		}
		c.mu.Unlock()
		return nil
	}
	return entry.result
}

// Len returns the number of cached entries, including stale ones not yet
// evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
