package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"trading-journal/internal/models"
)

const (
	// avgLossSentinel is the average loss used when there are no losing trades.
	avgLossSentinel = 1.0
	// profitFactorCap is reported when there is profit but no loss.
	profitFactorCap = 100.0
	// tradingDaysPerYear annualizes the daily Sharpe ratio. Journal trades
	// can close on any calendar day.
	tradingDaysPerYear = 365
)

// ComputeRiskStats calculates win rate, average win and loss, risk-reward,
// expectancy, Sharpe ratio, maximum drawdown, profit factor and the top and
// bottom trades. An empty input yields zero for every metric.
func ComputeRiskStats(trades []models.Trade, initialBalance float64) models.RiskStats {
	return computeRiskStats(trades, initialBalance, DefaultTopN)
}

func computeRiskStats(trades []models.Trade, initialBalance float64, topN int) models.RiskStats {
	rs := models.RiskStats{
		TopTrades:    []models.Trade{},
		BottomTrades: []models.Trade{},
	}
	if len(trades) == 0 {
		return rs
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	rs.TotalTrades = len(trades)
	for _, t := range trades {
		pnl := pnlOf(t)
		rs.TotalPnL += pnl
		switch {
		case pnl > 0:
			rs.Wins++
			rs.GrossProfit += pnl
			rs.LargestWin = max(rs.LargestWin, pnl)
		case pnl < 0:
			rs.Losses++
			rs.GrossLoss += -pnl
			rs.LargestLoss = min(rs.LargestLoss, pnl)
		}
	}

	rs.WinRate = float64(rs.Wins) / float64(rs.TotalTrades) * 100

	if rs.Wins > 0 {
		rs.AvgProfit = rs.GrossProfit / float64(rs.Wins)
	}
	rs.AvgLoss = avgLossSentinel
	if rs.Losses > 0 {
		rs.AvgLoss = rs.GrossLoss / float64(rs.Losses)
	}

	if rs.AvgLoss != 0 {
		rs.RiskReward = rs.AvgProfit / rs.AvgLoss
	}
	rs.Expectancy = rs.AvgProfit*rs.WinRate/100 - rs.AvgLoss*(1-rs.WinRate/100)
	rs.ExpectancyPerTrade = rs.TotalPnL / float64(rs.TotalTrades)

	if rs.Wins > 0 && rs.Losses > 0 {
		rs.AverageRR = rs.AvgProfit / rs.AvgLoss
	}

	rs.ProfitFactor = ProfitFactor(rs.GrossProfit, rs.GrossLoss)
	rs.Sharpe = SharpeRatio(trades)
	rs.MaxDrawdown = MaxDrawdown(trades, initialBalance)
	rs.TopTrades, rs.BottomTrades = TopAndBottom(trades, topN)

	return sanitize(rs)
}

// ProfitFactor returns grossProfit / grossLoss, or 100 when there is profit
// but no loss, or 0 when there is neither.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return profitFactorCap
		}
		return 0
	}
	return finite(grossProfit / grossLoss)
}

// SharpeRatio sums P&L per calendar day and returns the annualized ratio of
// the mean daily P&L to its sample standard deviation. It is zero with fewer
// than two trading days or when every day has the same P&L. Trades with a
// malformed date are not bucketed.
func SharpeRatio(trades []models.Trade) float64 {
	byDay := make(map[models.Date]float64)
	for _, t := range trades {
		d, ok := t.CivilDate()
		if !ok {
			continue
		}
		byDay[d] += pnlOf(t)
	}
	if len(byDay) < 2 {
		return 0
	}

	days := make([]models.Date, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	daily := make([]float64, len(days))
	uniform := true
	for i, d := range days {
		daily[i] = byDay[d]
		if daily[i] != daily[0] {
			uniform = false
		}
	}
	// Rounding in the mean can leave a tiny variance for identical values.
	if uniform {
		return 0
	}

	mean, variance := stat.MeanVariance(daily, nil)
	stdDev := math.Sqrt(variance)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0
	}
	return finite(mean / stdDev * math.Sqrt(tradingDaysPerYear))
}

// MaxDrawdown walks the trades in canonical order from initialBalance and
// returns the largest peak-to-trough decline, as an amount and as a percent
// of the peak at the end of the walk.
func MaxDrawdown(trades []models.Trade, initialBalance float64) models.Drawdown {
	if len(trades) == 0 {
		return models.Drawdown{}
	}

	current := finite(initialBalance)
	peak := current
	var maxDD float64
	for _, t := range SortedCopy(trades) {
		current += pnlOf(t)
		if current > peak {
			peak = current
		}
		if dd := peak - current; dd > maxDD {
			maxDD = dd
		}
	}

	dd := models.Drawdown{Amount: finite(maxDD)}
	if peak > 0 {
		dd.Percent = finite(maxDD / peak * 100)
	}
	return dd
}

// TopAndBottom ranks trades by P&L. Top holds the n best trades, best first;
// bottom holds the n worst, worst first. Equal P&L keeps canonical order.
func TopAndBottom(trades []models.Trade, n int) (top, bottom []models.Trade) {
	ranked := SortedCopy(trades)
	sort.SliceStable(ranked, func(i, j int) bool {
		return pnlOf(ranked[i]) > pnlOf(ranked[j])
	})

	k := min(n, len(ranked))
	top = append([]models.Trade{}, ranked[:k]...)
	bottom = make([]models.Trade, 0, k)
	for i := len(ranked) - 1; i >= len(ranked)-k; i-- {
		bottom = append(bottom, ranked[i])
	}
	return top, bottom
}

func sanitize(rs models.RiskStats) models.RiskStats {
	rs.WinRate = finite(rs.WinRate)
	rs.TotalPnL = finite(rs.TotalPnL)
	rs.GrossProfit = finite(rs.GrossProfit)
	rs.GrossLoss = finite(rs.GrossLoss)
	rs.AvgProfit = finite(rs.AvgProfit)
	rs.AvgLoss = finite(rs.AvgLoss)
	rs.RiskReward = finite(rs.RiskReward)
	rs.AverageRR = finite(rs.AverageRR)
	rs.Expectancy = finite(rs.Expectancy)
	rs.ExpectancyPerTrade = finite(rs.ExpectancyPerTrade)
	rs.Sharpe = finite(rs.Sharpe)
	rs.ProfitFactor = finite(rs.ProfitFactor)
	rs.LargestWin = finite(rs.LargestWin)
	rs.LargestLoss = finite(rs.LargestLoss)
	return rs
}
