package analytics

import (
	"fmt"
	"sort"
	"time"

	"trading-journal/internal/models"
)

// Aggregate groups the P&L of trades by strategy, symbol, month, week and
// year, builds the per-trade equity curve and sums gross profit and loss.
// Trades with malformed dates count towards the strategy, symbol and gross
// totals but are left out of the period buckets and counted in Skipped.
func Aggregate(trades []models.Trade, scheme models.WeekScheme) models.Aggregates {
	agg := models.Aggregates{
		StrategyProfit: []models.StrategyPnL{},
		SymbolProfit:   []models.SymbolPnL{},
	}

	strategyIdx := make(map[string]int)
	symbolIdx := make(map[string]int)
	monthly := make(map[string]float64)
	weekly := make(map[string]float64)
	yearly := make(map[string]float64)

	for _, t := range trades {
		pnl := pnlOf(t)
		win := pnl > 0

		switch {
		case pnl > 0:
			agg.TotalProfit += pnl
		case pnl < 0:
			agg.TotalLoss += -pnl
		}

		name := t.StrategyKey()
		i, ok := strategyIdx[name]
		if !ok {
			i = len(agg.StrategyProfit)
			strategyIdx[name] = i
			agg.StrategyProfit = append(agg.StrategyProfit, models.StrategyPnL{Name: name})
		}
		agg.StrategyProfit[i].PnL += pnl
		agg.StrategyProfit[i].Trades++
		if win {
			agg.StrategyProfit[i].Wins++
		}

		j, ok := symbolIdx[t.Symbol]
		if !ok {
			j = len(agg.SymbolProfit)
			symbolIdx[t.Symbol] = j
			agg.SymbolProfit = append(agg.SymbolProfit, models.SymbolPnL{Symbol: t.Symbol})
		}
		agg.SymbolProfit[j].PnL += pnl
		agg.SymbolProfit[j].Trades++
		if win {
			agg.SymbolProfit[j].Wins++
		}

		d, ok := t.CivilDate()
		if !ok {
			agg.Skipped++
			continue
		}
		monthly[MonthKey(d)] += pnl
		weekly[WeekKey(d, scheme)] += pnl
		yearly[YearKey(d)] += pnl
	}

	agg.Monthly = sortedBuckets(monthly)
	agg.Weekly = sortedBuckets(weekly)
	agg.Yearly = sortedBuckets(yearly)
	agg.Candles = EquityCandles(trades)
	return sanitizeAggregates(agg)
}

// sanitizeAggregates zeroes sums that overflowed, like sanitize does for the
// risk statistics.
func sanitizeAggregates(agg models.Aggregates) models.Aggregates {
	agg.TotalProfit = finite(agg.TotalProfit)
	agg.TotalLoss = finite(agg.TotalLoss)
	for i := range agg.StrategyProfit {
		agg.StrategyProfit[i].PnL = finite(agg.StrategyProfit[i].PnL)
	}
	for i := range agg.SymbolProfit {
		agg.SymbolProfit[i].PnL = finite(agg.SymbolProfit[i].PnL)
	}
	for _, buckets := range [][]models.PnLBucket{agg.Monthly, agg.Weekly, agg.Yearly} {
		for i := range buckets {
			buckets[i].PnL = finite(buckets[i].PnL)
		}
	}
	return agg
}

// EquityCandles builds the per-trade equity curve in canonical order. Equity
// starts at zero; each candle opens at the equity before the trade and closes
// after adding its P&L. An equity that overflows restarts from zero so
// consecutive candles still chain.
func EquityCandles(trades []models.Trade) []models.Candle {
	sorted := SortedCopy(trades)
	candles := make([]models.Candle, 0, len(sorted))

	var equity float64
	for i, t := range sorted {
		pnl := pnlOf(t)
		open := equity
		equity = finite(equity + pnl)
		candles = append(candles, models.Candle{
			Index:  i + 1,
			ID:     t.ID,
			Symbol: t.Symbol,
			Date:   t.Date,
			Open:   open,
			High:   max(open, equity),
			Low:    min(open, equity),
			Close:  equity,
			PnL:    pnl,
		})
	}
	return candles
}

// MonthKey returns "YYYY-MM".
func MonthKey(d models.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// YearKey returns "YYYY".
func YearKey(d models.Date) string {
	return fmt.Sprintf("%04d", d.Year)
}

// WeekKey returns "YYYY-Www" under the given numbering scheme.
//
// The sunday scheme counts Sunday-start weeks from January 1st, so week 1 runs
// from January 1st to the first Saturday. Year-boundary weeks are not merged:
// December 31st and the following January 1st always get different keys.
func WeekKey(d models.Date, scheme models.WeekScheme) string {
	if scheme == models.WeekSchemeISO {
		y, w := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	}
	jan1 := models.Date{Year: d.Year, Month: time.January, Day: 1}
	days := d.YearDay() - 1
	// ceil((days + weekday(jan1) + 1) / 7)
	week := (days + int(jan1.Weekday()) + 7) / 7
	return fmt.Sprintf("%04d-W%02d", d.Year, week)
}

// SortStrategiesByPnL returns a copy of groups ordered by descending P&L.
func SortStrategiesByPnL(groups []models.StrategyPnL) []models.StrategyPnL {
	out := make([]models.StrategyPnL, len(groups))
	copy(out, groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PnL > out[j].PnL
	})
	return out
}

func sortedBuckets(m map[string]float64) []models.PnLBucket {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.PnLBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.PnLBucket{Key: k, PnL: m[k]})
	}
	return out
}
