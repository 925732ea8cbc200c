package journal

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

func testTrade(id, date string, pnl float64) models.Trade {
	return models.Trade{
		ID:        id,
		Symbol:    "AAPL",
		Date:      date,
		PnL:       pnl,
		Direction: models.DirectionLong,
		Strategy:  "Breakout",
	}
}

func ids(trades []models.Trade) []string {
	out := make([]string, len(trades))
	for i, t := range trades {
		out[i] = t.ID
	}
	return out
}

func isCanonical(trades []models.Trade) bool {
	return sort.SliceIsSorted(trades, func(i, j int) bool {
		if trades[i].Date != trades[j].Date {
			return trades[i].Date < trades[j].Date
		}
		return trades[i].ID < trades[j].ID
	})
}

func TestTradeStore_AddKeepsCanonicalOrder(t *testing.T) {
	s := NewTradeStore()
	require.NoError(t, s.Add(testTrade("b", "2025-01-02", 10)))
	require.NoError(t, s.Add(testTrade("c", "2025-01-01", 5)))
	require.NoError(t, s.Add(testTrade("a", "2025-01-02", -3)))

	assert.Equal(t, []string{"c", "a", "b"}, ids(s.Snapshot()))
	assert.Equal(t, []string{"b", "a", "c"}, ids(s.Recent(0)))
	assert.Equal(t, []string{"b", "a"}, ids(s.Recent(2)))
	assert.Equal(t, uint64(3), s.Version())
}

func TestTradeStore_Rejections(t *testing.T) {
	s := NewTradeStore()
	require.NoError(t, s.Add(testTrade("a", "2025-01-02", 10)))

	assert.ErrorIs(t, s.Add(testTrade("a", "2025-02-02", 1)), apperrors.ErrDuplicateTrade)
	assert.ErrorIs(t, s.Add(testTrade("", "2025-02-02", 1)), apperrors.ErrInvalidTrade)
	assert.ErrorIs(t, s.Add(testTrade("x", "02/03/2025", 1)), apperrors.ErrInvalidDate)
	assert.ErrorIs(t, s.Remove("missing"), apperrors.ErrTradeNotFound)
	assert.ErrorIs(t, s.Update(testTrade("missing", "2025-01-01", 1)), apperrors.ErrTradeNotFound)

	_, err := s.ToggleFavorite("missing")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
	assert.Equal(t, uint64(1), s.Version(), "failed mutations leave the version alone")
}

func TestTradeStore_UpdateResorts(t *testing.T) {
	s := NewTradeStore()
	require.NoError(t, s.Add(testTrade("a", "2025-01-01", 10)))
	require.NoError(t, s.Add(testTrade("b", "2025-01-05", 10)))

	moved := testTrade("a", "2025-02-01", 42)
	require.NoError(t, s.Update(moved))

	assert.Equal(t, []string{"b", "a"}, ids(s.Snapshot()))
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42.0, got.PnL)
}

func TestTradeStore_FavoritesAndStrategies(t *testing.T) {
	s := NewTradeStore()
	noStrategy := testTrade("n", "2025-01-03", 1)
	noStrategy.Strategy = ""
	scalp := testTrade("s", "2025-01-02", 1)
	scalp.Strategy = "Scalp"

	require.NoError(t, s.Add(testTrade("b", "2025-01-01", 1)))
	require.NoError(t, s.Add(scalp))
	require.NoError(t, s.Add(noStrategy))

	fav, err := s.ToggleFavorite("s")
	require.NoError(t, err)
	assert.True(t, fav.IsFavorite)
	assert.Equal(t, []string{"s"}, ids(s.Favorites()))

	assert.Equal(t, []string{"Breakout", "Scalp", models.UnknownStrategy}, s.Strategies())
}

func TestTradeStore_ReplaceLastWins(t *testing.T) {
	s := NewTradeStore()
	require.NoError(t, s.Add(testTrade("old", "2025-01-01", 1)))

	s.Replace([]models.Trade{
		testTrade("x", "2025-03-01", 1),
		testTrade("y", "2025-02-01", 2),
		testTrade("x", "2025-01-15", 3),
	})

	snap := s.Snapshot()
	assert.Equal(t, []string{"x", "y"}, ids(snap))
	assert.Equal(t, 3.0, snap[0].PnL)
	_, ok := s.Get("old")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestTradeStore_SnapshotIsCopy(t *testing.T) {
	s := NewTradeStore()
	require.NoError(t, s.Add(testTrade("a", "2025-01-01", 1)))

	snap := s.Snapshot()
	snap[0].PnL = 999

	got, _ := s.Get("a")
	assert.Equal(t, 1.0, got.PnL)
}

func TestTradeStore_ConcurrentAccess(t *testing.T) {
	s := NewTradeStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Add(testTrade(fmt.Sprintf("c-%02d", i), "2025-01-01", float64(i))))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Version()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
	assert.True(t, isCanonical(s.Snapshot()))
}

// Property: For any sequence of adds, removes and favorite toggles, the store
// stays in canonical order and the version counts the successful mutations.
func TestProperty_TradeStoreStaysCanonical(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	base := models.Date{Year: 2025, Month: time.January, Day: 1}

	properties.Property("store order is canonical after any mutation sequence", prop.ForAll(
		func(ops []int) bool {
			s := NewTradeStore()
			var mutations uint64
			for i, op := range ops {
				id := fmt.Sprintf("id-%02d", op%17)
				var err error
				switch op % 3 {
				case 0:
					err = s.Add(testTrade(id, base.AddDays(op%40).String(), float64(op-50)))
				case 1:
					err = s.Remove(id)
				default:
					_, err = s.ToggleFavorite(id)
				}
				if err == nil {
					mutations++
				}
				if !isCanonical(s.Snapshot()) {
					t.Logf("not canonical after op %d", i)
					return false
				}
			}
			return s.Version() == mutations
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	// Property: Toggling a favorite twice restores the original trade.
	properties.Property("double toggle is identity", prop.ForAll(
		func(n int, pick int) bool {
			s := NewTradeStore()
			for i := 0; i < n; i++ {
				if err := s.Add(testTrade(fmt.Sprintf("t-%02d", i), base.AddDays(i%5).String(), float64(i))); err != nil {
					return false
				}
			}
			before := s.Snapshot()
			id := before[pick%n].ID
			if _, err := s.ToggleFavorite(id); err != nil {
				return false
			}
			if _, err := s.ToggleFavorite(id); err != nil {
				return false
			}
			after := s.Snapshot()
			for i := range before {
				if before[i] != after[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
