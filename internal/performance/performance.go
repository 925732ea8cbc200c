// Package performance keeps repeated statistics requests cheap with a
// memoizing cache over the analytics pipeline.
package performance

import (
	"sync"
	"sync/atomic"

	"trading-journal/internal/analytics"
	"trading-journal/internal/models"
)

// DefaultMaxEntries bounds the number of memoized results per trade version.
const DefaultMaxEntries = 64

// Source is a versioned trade collection. The version changes on every
// mutation.
type Source interface {
	Version() uint64
	SnapshotVersion() ([]models.Trade, uint64)
}

// StatsKey identifies one memoized computation. Only the civil date of
// Query.Now takes part, since filtering never looks at the time of day.
type StatsKey struct {
	Version        uint64
	Timeframe      models.Timeframe
	Strategy       string
	InitialBalance float64
	WeekScheme     models.WeekScheme
	TopN           int
	RecentLimit    int
	MonthlyWindow  int
	Today          models.Date
}

// KeyFor builds the cache key for q against the given trade version.
func KeyFor(version uint64, q analytics.Query) StatsKey {
	return StatsKey{
		Version:        version,
		Timeframe:      q.Timeframe,
		Strategy:       q.Strategy,
		InitialBalance: q.InitialBalance,
		WeekScheme:     q.WeekScheme,
		TopN:           q.TopN,
		RecentLimit:    q.RecentLimit,
		MonthlyWindow:  q.MonthlyWindow,
		Today:          models.DateOf(q.Now),
	}
}

// StatsCache memoizes analytics results. Entries for older versions are
// dropped as soon as a newer version is seen. Returned stats are shared
// between callers and must be treated as read-only.
type StatsCache struct {
	engine     *analytics.Engine
	maxEntries int

	mu      sync.Mutex
	version uint64
	entries map[StatsKey]models.PerformanceStats

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewStatsCache creates a cache computing through engine.
// If maxEntries is 0, it defaults to DefaultMaxEntries.
func NewStatsCache(engine *analytics.Engine, maxEntries int) *StatsCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &StatsCache{
		engine:     engine,
		maxEntries: maxEntries,
		entries:    make(map[StatsKey]models.PerformanceStats),
	}
}

// Stats returns the statistics of src for q, computing them at most once per
// (version, query).
func (c *StatsCache) Stats(src Source, q analytics.Query) models.PerformanceStats {
	if stats, ok := c.lookup(KeyFor(src.Version(), q)); ok {
		c.hits.Add(1)
		return stats
	}
	c.misses.Add(1)

	trades, version := src.SnapshotVersion()
	stats := c.engine.Compute(trades, q)
	c.store(KeyFor(version, q), stats)
	return stats
}

func (c *StatsCache) lookup(key StatsKey) (models.PerformanceStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.entries[key]
	return stats, ok
}

func (c *StatsCache) store(key StatsKey, stats models.PerformanceStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case key.Version < c.version:
		return // computed from a snapshot that is already stale
	case key.Version > c.version:
		c.version = key.Version
		clear(c.entries)
	}
	if len(c.entries) >= c.maxEntries {
		clear(c.entries)
	}
	c.entries[key] = stats
}

// CacheStats returns hit and miss counters.
func (c *StatsCache) CacheStats() CacheStats {
	c.mu.Lock()
	entries, version := len(c.entries), c.version
	c.mu.Unlock()

	return CacheStats{
		Entries: entries,
		Version: version,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// CacheStats contains stats cache statistics.
type CacheStats struct {
	Entries int
	Version uint64
	Hits    uint64
	Misses  uint64
}
