package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"trading-journal/internal/models"
)

func TestEquityCurveASCII(t *testing.T) {
	assert.Equal(t, "No data to display", EquityCurveASCII(nil, 10000, 60, 12))

	candles := []models.Candle{
		{Index: 1, Close: 300, PnL: 300},
		{Index: 2, Close: 200, PnL: -100},
		{Index: 3, Close: 500, PnL: 300},
	}
	chart := EquityCurveASCII(candles, 10000, 20, 5)
	lines := strings.Split(strings.TrimSuffix(chart, "\n"), "\n")

	assert.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "Equity Curve ("))
	// The first point is the starting balance, the lowest value.
	assert.Equal(t, '█', []rune(lines[len(lines)-2])[1])
	// The last point is the peak.
	assert.Equal(t, '█', []rune(lines[3])[4])
}

func TestHeatmapGrid(t *testing.T) {
	hm := models.Heatmap{
		Year:         2025,
		Month:        3,
		DaysInMonth:  31,
		FirstWeekday: 6,
		Days:         map[int]float64{1: 120, 14: 300, 20: -45.5},
	}

	var colored []float64
	grid := HeatmapGrid(hm, func(pnl float64, s string) string {
		colored = append(colored, pnl)
		return "<" + s + ">"
	})
	lines := strings.Split(strings.TrimSuffix(grid, "\n"), "\n")

	assert.Equal(t, "March 2025", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Sun"))
	// March 1st is a Saturday, alone on the first row.
	assert.Equal(t, strings.Repeat(" ", 60)+"< 1 120.00>", strings.TrimRight(lines[2], " "))
	assert.Contains(t, grid, "<14 300.00>")
	assert.Contains(t, grid, "<20 -45.50>")
	assert.Contains(t, grid, " 2 ·")
	assert.Equal(t, []float64{120, 300, -45.5}, colored)
	// 1 + 4 full weeks + the 30th and 31st
	assert.Len(t, lines, 2+6)
}

func TestFormatRiskReward(t *testing.T) {
	assert.Equal(t, "1:2.50", FormatRiskReward(2.5))
	assert.Equal(t, "1:0.00", FormatRiskReward(0))
}

func TestShortIDAndFavoriteMark(t *testing.T) {
	assert.Equal(t, "89abcdef", shortID("0190a1b2-c3d4-7e5f-8a9b-0123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "★", favoriteMark(true))
}
