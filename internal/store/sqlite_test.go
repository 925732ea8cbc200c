package store

import (
	"context"
	"fmt"
	"path/filepath"
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

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(id, date string, pnl float64) models.Trade {
	return models.Trade{
		ID:          id,
		Symbol:      "AAPL",
		Date:        date,
		EntryPrice:  150.25,
		ExitPrice:   155.5,
		Quantity:    10,
		PnL:         pnl,
		Direction:   models.DirectionLong,
		Currency:    "USD",
		Strategy:    "Breakout",
		Style:       "Day",
		MentalState: "Calm",
		Note:        "clean break of the range",
		CreatedAt:   time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC),
	}
}

// Property: For any trade, saving it and reading it back by id yields the same
// trade.
func TestProperty_TradeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	seq := 0
	properties.Property("save then get returns the saved trade", prop.ForAll(
		func(symbol string, dayOffset int, pnl float64, favorite bool, override bool, short bool) bool {
			ctx := context.Background()
			seq++

			tr := sampleTrade(fmt.Sprintf("rt-%d", seq), models.Date{Year: 2024, Month: time.January, Day: 1}.AddDays(dayOffset).String(), pnl)
			tr.Symbol = symbol
			tr.IsFavorite = favorite
			tr.PnLOverride = override
			if short {
				tr.Direction = models.DirectionShort
			}

			if err := s.SaveTrade(ctx, &tr); err != nil {
				t.Logf("save failed: %v", err)
				return false
			}
			got, err := s.GetTrade(ctx, tr.ID)
			if err != nil {
				t.Logf("get failed: %v", err)
				return false
			}

			if !got.CreatedAt.Equal(tr.CreatedAt) {
				return false
			}
			got.CreatedAt = tr.CreatedAt
			return *got == tr
		},
		gen.OneConstOf("AAPL", "TSLA", "EURUSD", "BTCUSD"),
		gen.IntRange(0, 730),
		gen.Float64Range(-5000, 5000),
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestGetTrades_CanonicalOrderAndFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trades := []models.Trade{
		sampleTrade("b", "2025-01-02", 10),
		sampleTrade("a", "2025-01-02", -5),
		sampleTrade("c", "2024-12-31", 20),
		sampleTrade("d", "2025-02-10", 7),
	}
	trades[3].Symbol = "TSLA"
	trades[3].IsFavorite = true
	trades[2].Strategy = "Scalp"

	for i := range trades {
		require.NoError(t, s.SaveTrade(ctx, &trades[i]))
	}

	all, err := s.GetTrades(ctx)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, tr := range all {
		ids[i] = tr.ID
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
	assert.True(t, all[3].IsFavorite)
	assert.Equal(t, "Scalp", all[0].Strategy)
}

func TestGetTrades_CorruptRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO trades (id, symbol, date, pnl, direction, created_at)
		VALUES ('bad', 'AAPL', '2025-01-01', 'abc', 'Long', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = s.GetTrades(ctx)
	var de *apperrors.DataError
	require.True(t, apperrors.As(err, &de), err)
	assert.Equal(t, "trade", de.DataType)

	_, err = s.GetTrade(ctx, "bad")
	require.True(t, apperrors.As(err, &de), err)
	assert.Equal(t, "bad", de.TradeID)
}

func TestReplaceAndDeleteTrades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := sampleTrade("old", "2025-01-01", 1)
	require.NoError(t, s.SaveTrade(ctx, &old))

	require.NoError(t, s.ReplaceTrades(ctx, []models.Trade{
		sampleTrade("x", "2025-01-05", 3),
		sampleTrade("y", "2025-01-06", -2),
	}))

	_, err := s.GetTrade(ctx, "old")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)

	all, err := s.GetTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteTrade(ctx, "x"))
	assert.ErrorIs(t, s.DeleteTrade(ctx, "x"), apperrors.ErrTradeNotFound)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, SettingCurrency)
	assert.ErrorIs(t, err, apperrors.ErrSettingNotFound)

	require.NoError(t, s.SetSetting(ctx, SettingCurrency, "EUR"))
	require.NoError(t, s.SetSetting(ctx, SettingCurrency, "JPY"))

	v, err := s.GetSetting(ctx, SettingCurrency)
	require.NoError(t, err)
	assert.Equal(t, "JPY", v)
}

func TestLastSync_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	assert.True(t, s.GetLastSync("trades").IsZero())

	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetLastSync("trades", at))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.GetLastSync("trades").Equal(at))
}
