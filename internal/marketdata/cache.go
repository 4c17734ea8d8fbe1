package marketdata

import (
	"fmt"
	"sync"
	"time"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

type cacheEntry struct {
	candles   []model.Candle
	fetchedAt time.Time
}

// Cache holds candle sequences keyed by (market, timeframe, limit) with a
// time-based expiry. It is passed explicitly to the feed, never a package
// global; concurrent refreshes may race but only ever replace a value with
// an equally valid one.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(market, timeframe string, limit int) string {
	return fmt.Sprintf("%s-%s-%d", market, timeframe, limit)
}

// Get returns the cached sequence if it has not expired.
func (c *Cache) Get(market, timeframe string, limit int) ([]model.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(market, timeframe, limit)]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.candles, true
}

func (c *Cache) Set(market, timeframe string, limit int, candles []model.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(market, timeframe, limit)] = cacheEntry{
		candles:   candles,
		fetchedAt: c.now(),
	}
}

// Invalidate drops a single cached sequence.
func (c *Cache) Invalidate(market, timeframe string, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(market, timeframe, limit))
}
