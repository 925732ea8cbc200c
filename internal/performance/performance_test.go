package performance

import (
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"trading-journal/internal/analytics"
	"trading-journal/internal/models"
)

// fakeSource is a minimal versioned collection.
type fakeSource struct {
	mu        sync.Mutex
	trades    []models.Trade
	version   uint64
	snapshots int
}

func (f *fakeSource) Version() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeSource) SnapshotVersion() ([]models.Trade, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	out := make([]models.Trade, len(f.trades))
	copy(out, f.trades)
	return out, f.version
}

func (f *fakeSource) add(t models.Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, t)
	f.version++
}

func generateTestTrades(count int, seed int64) []models.Trade {
	rng := rand.New(rand.NewSource(seed))
	base := models.Date{Year: 2024, Month: time.January, Day: 1}
	strategies := []string{"Breakout", "Scalp", "Reversal"}

	trades := make([]models.Trade, count)
	for i := range trades {
		trades[i] = models.Trade{
			ID:        fmt.Sprintf("p-%05d", i),
			Symbol:    "AAPL",
			Date:      base.AddDays(rng.Intn(600)).String(),
			PnL:       float64(rng.Intn(2001) - 1000),
			Direction: models.DirectionLong,
			Strategy:  strategies[rng.Intn(len(strategies))],
		}
	}
	return trades
}

func newTestCache() *StatsCache {
	return NewStatsCache(analytics.NewEngine(zerolog.Nop()), 0)
}

var testNow = time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)

func TestStatsCache_HitsUntilVersionChanges(t *testing.T) {
	src := &fakeSource{trades: generateTestTrades(50, 1), version: 1}
	cache := newTestCache()
	q := analytics.Query{Timeframe: models.TimeframeAll, Strategy: models.AllStrategies, Now: testNow, InitialBalance: 10000}

	first := cache.Stats(src, q)
	second := cache.Stats(src, q)
	assert.Equal(t, first.Risk, second.Risk)
	assert.Equal(t, 1, src.snapshots)

	// Later the same day shares the entry.
	q.Now = testNow.Add(3 * time.Hour)
	cache.Stats(src, q)
	assert.Equal(t, 1, src.snapshots)

	src.add(models.Trade{ID: "zz", Date: "2025-08-20", PnL: 1234, Direction: models.DirectionLong})
	third := cache.Stats(src, q)
	assert.Equal(t, 2, src.snapshots)
	assert.Equal(t, first.TotalTrades+1, third.TotalTrades)

	cs := cache.CacheStats()
	assert.Equal(t, uint64(2), cs.Hits)
	assert.Equal(t, uint64(2), cs.Misses)
	assert.Equal(t, uint64(2), cs.Version)
	assert.Equal(t, 1, cs.Entries, "entries for the old version are dropped")
}

func TestStatsCache_DistinctQueries(t *testing.T) {
	src := &fakeSource{trades: generateTestTrades(30, 2), version: 7}
	cache := newTestCache()

	base := analytics.Query{Timeframe: models.TimeframeAll, Strategy: models.AllStrategies, Now: testNow, InitialBalance: 10000}
	variants := []analytics.Query{base, base, base}
	variants[1].Strategy = "Scalp"
	variants[2].InitialBalance = 500

	for _, q := range variants {
		cache.Stats(src, q)
	}
	assert.Equal(t, 3, src.snapshots)
	assert.Equal(t, 3, cache.CacheStats().Entries)

	cache.Stats(src, base)
	assert.Equal(t, 3, src.snapshots)
}

func TestStatsCache_BoundedEntries(t *testing.T) {
	src := &fakeSource{trades: generateTestTrades(5, 3), version: 1}
	cache := NewStatsCache(analytics.NewEngine(zerolog.Nop()), 2)

	for i := 0; i < 5; i++ {
		cache.Stats(src, analytics.Query{Now: testNow, InitialBalance: float64(1000 + i)})
	}
	assert.LessOrEqual(t, cache.CacheStats().Entries, 2)
}

// Property: For any trades and query, the cached result equals a direct
// computation, on the first call and on repeated calls.
func TestProperty_CacheMatchesDirectCompute(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("memoized stats equal direct stats", prop.ForAll(
		func(count int, seed int64, tf string, strategy string, balance float64) bool {
			trades := generateTestTrades(count, seed)
			src := &fakeSource{trades: trades, version: uint64(seed) & 0xff}
			cache := newTestCache()
			q := analytics.Query{
				Timeframe:      models.Timeframe(tf),
				Strategy:       strategy,
				Now:            testNow,
				InitialBalance: balance,
			}

			want := analytics.Compute(trades, q)
			first := cache.Stats(src, q)
			again := cache.Stats(src, q)
			return reflect.DeepEqual(want, first) && reflect.DeepEqual(first, again)
		},
		gen.IntRange(0, 60),
		gen.Int64Range(1, 1<<20),
		gen.OneConstOf("daily", "weekly", "monthly", "yearly", "all"),
		gen.OneConstOf("All", "Breakout", "Scalp", "Missing"),
		gen.Float64Range(1, 50000),
	))

	properties.TestingRun(t)
}

func TestStatsCache_ConcurrentReaders(t *testing.T) {
	src := &fakeSource{trades: generateTestTrades(200, 4), version: 1}
	cache := newTestCache()
	q := analytics.Query{Now: testNow, InitialBalance: 10000}
	want := analytics.Compute(src.trades, q)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := cache.Stats(src, q)
			assert.Equal(t, want.Risk, got.Risk)
		}()
	}
	wg.Wait()
}

// BenchmarkStatsCache compares a memoized lookup with a full computation.
func BenchmarkStatsCache(b *testing.B) {
	src := &fakeSource{trades: generateTestTrades(5000, 5), version: 1}
	q := analytics.Query{Now: testNow, InitialBalance: 10000}

	b.Run("Cached", func(b *testing.B) {
		cache := newTestCache()
		cache.Stats(src, q)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			cache.Stats(src, q)
		}
	})

	b.Run("Direct", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			analytics.Compute(src.trades, q)
		}
	})
}
