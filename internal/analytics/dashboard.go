package analytics

import "trading-journal/internal/models"

// DefaultRecentLimit is the number of recent trades shown on the dashboard.
const DefaultRecentLimit = 5

// Dashboard summarizes the whole, unfiltered trade collection.
func Dashboard(all []models.Trade, recentLimit int) models.DashboardSummary {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}

	ds := models.DashboardSummary{TotalTrades: len(all)}
	var wins int
	for _, t := range all {
		pnl := pnlOf(t)
		ds.TotalPnL += pnl
		switch {
		case pnl > 0:
			wins++
			ds.GrossProfit += pnl
		case pnl < 0:
			ds.GrossLoss += -pnl
		}
		if t.IsFavorite {
			ds.Favorites++
		}
	}
	ds.TotalPnL = finite(ds.TotalPnL)
	ds.GrossProfit = finite(ds.GrossProfit)
	ds.GrossLoss = finite(ds.GrossLoss)
	if ds.TotalTrades > 0 {
		ds.WinRate = float64(wins) / float64(ds.TotalTrades) * 100
	}
	ds.RecentTrades = Recent(all, recentLimit)
	return ds
}

// Recent returns up to limit trades, most recent first. A non-positive limit
// returns all trades.
func Recent(trades []models.Trade, limit int) []models.Trade {
	sorted := SortedCopy(trades)
	out := make([]models.Trade, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, sorted[i])
	}
	return out
}
