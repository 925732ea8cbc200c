package analytics

import (
	"fmt"
	"math/rand"
	"time"

	"trading-journal/internal/models"
)

var (
	testSymbols    = []string{"AAPL", "TSLA", "EURUSD", "BTCUSD", "NIFTY", "SPY"}
	testStrategies = []string{"Breakout", "Scalp", "Reversal", "", "Trend"}
)

// generateTrades builds count trades with dates spread over two years and
// P&L in [-500, 500]. Ids are unique; several trades share a date.
func generateTrades(count int, seed int64) []models.Trade {
	rng := rand.New(rand.NewSource(seed))
	base := models.Date{Year: 2024, Month: time.January, Day: 1}

	trades := make([]models.Trade, 0, count)
	for i := 0; i < count; i++ {
		d := base.AddDays(rng.Intn(730))
		pnl := float64(rng.Intn(100001)-50000) / 100
		trades = append(trades, models.Trade{
			ID:        fmt.Sprintf("t%04d-%d", rng.Intn(10000), i),
			Symbol:    testSymbols[rng.Intn(len(testSymbols))],
			Date:      d.String(),
			PnL:       pnl,
			Direction: models.DirectionLong,
			Strategy:  testStrategies[rng.Intn(len(testStrategies))],
		})
	}
	return trades
}

// tradesWithPnL builds one trade per value, one day apart, in order.
func tradesWithPnL(values ...float64) []models.Trade {
	base := models.Date{Year: 2025, Month: time.March, Day: 3}
	trades := make([]models.Trade, len(values))
	for i, v := range values {
		trades[i] = models.Trade{
			ID:        fmt.Sprintf("id-%03d", i),
			Symbol:    "AAPL",
			Date:      base.AddDays(i).String(),
			PnL:       v,
			Direction: models.DirectionLong,
			Strategy:  "Breakout",
		}
	}
	return trades
}

func trade(id, date string, pnl float64) models.Trade {
	return models.Trade{ID: id, Symbol: "AAPL", Date: date, PnL: pnl, Direction: models.DirectionLong, Strategy: "Breakout"}
}
