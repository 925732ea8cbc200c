// Package analytics turns a snapshot of journal trades into performance
// statistics: period filtering, P&L aggregation, the equity curve and risk
// metrics. Every function here is pure and performs no I/O.
package analytics

import (
	"math"
	"sort"

	"trading-journal/internal/models"
)

// DefaultTopN is the number of trades kept in the top and bottom rankings.
const DefaultTopN = 5

// SortCanonical sorts trades in place by date ascending, then id ascending.
// Trades with malformed dates sort first. The sort is stable, so applying it
// to an already sorted slice leaves the slice unchanged.
func SortCanonical(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return canonicalLess(trades[i], trades[j])
	})
}

// SortedCopy returns a canonically sorted copy of trades.
func SortedCopy(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	copy(out, trades)
	SortCanonical(out)
	return out
}

func canonicalLess(a, b models.Trade) bool {
	da, _ := a.CivilDate()
	db, _ := b.CivilDate()
	if c := da.Compare(db); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

// AvailableStrategies returns the strategy selector options: "All" followed
// by every distinct strategy in first-seen order, excluding "Unknown".
func AvailableStrategies(trades []models.Trade) []string {
	out := []string{models.AllStrategies}
	seen := map[string]bool{models.UnknownStrategy: true, models.AllStrategies: true}
	for _, t := range trades {
		key := t.StrategyKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// pnlOf returns the trade P&L with non-finite values treated as zero.
func pnlOf(t models.Trade) float64 {
	return finite(t.PnL)
}

// finite maps NaN and ±Inf to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
