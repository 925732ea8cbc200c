package analytics

import (
	"sort"
	"time"

	"trading-journal/internal/models"
)

// MonthlyPerformance returns one row per month with activity, oldest first.
// The running balance starts at initialBalance; each month's ROI is its P&L
// relative to the balance at the start of that month (0 when that balance is
// not positive). When lastN > 0 only the trailing lastN months are returned,
// but balances still account for every earlier month.
func MonthlyPerformance(trades []models.Trade, initialBalance float64, lastN int) []models.MonthlyPerformance {
	byMonth := make(map[string]float64)
	for _, t := range trades {
		d, ok := t.CivilDate()
		if !ok {
			continue
		}
		byMonth[MonthKey(d)] += pnlOf(t)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	rows := make([]models.MonthlyPerformance, 0, len(months))
	balance := finite(initialBalance)
	for _, m := range months {
		pnl := finite(byMonth[m])
		start := balance
		var roi float64
		if start > 0 {
			roi = finite(pnl / start * 100)
		}
		balance = finite(balance + pnl)
		rows = append(rows, models.MonthlyPerformance{Month: m, PnL: pnl, ROI: roi, Balance: balance})
	}

	if lastN > 0 && len(rows) > lastN {
		rows = rows[len(rows)-lastN:]
	}
	return rows
}

// DailyHeatmap sums P&L per day of now's calendar month.
func DailyHeatmap(trades []models.Trade, now time.Time) models.Heatmap {
	today := models.DateOf(now)
	first := models.Date{Year: today.Year, Month: today.Month, Day: 1}

	hm := models.Heatmap{
		Year:         today.Year,
		Month:        int(today.Month),
		DaysInMonth:  models.DaysIn(today.Year, today.Month),
		FirstWeekday: int(first.Weekday()),
		Days:         make(map[int]float64),
	}
	for _, t := range trades {
		d, ok := t.CivilDate()
		if !ok || d.Year != today.Year || d.Month != today.Month {
			continue
		}
		hm.Days[d.Day] += pnlOf(t)
	}
	for day, pnl := range hm.Days {
		hm.Days[day] = finite(pnl)
	}
	return hm
}
