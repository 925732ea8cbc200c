package cli

import (
	"fmt"
	"strings"
	"time"

	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

// EquityCurveASCII plots cumulative P&L after each trade, starting from
// initial, as a width x height block chart.
func EquityCurveASCII(candles []models.Candle, initial float64, width, height int) string {
	if len(candles) == 0 {
		return "No data to display"
	}
	width = max(width, 10)
	height = max(height, 3)

	equity := make([]float64, 0, len(candles)+1)
	equity = append(equity, initial)
	for _, c := range candles {
		equity = append(equity, initial+c.Close)
	}

	lo, hi := equity[0], equity[0]
	for _, e := range equity {
		lo = min(lo, e)
		hi = max(hi, e)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.05
	hi += span * 0.05
	span = hi - lo

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	// Stretch or sample the series to the chart width.
	cols := min(width, len(equity))
	for x := 0; x < cols; x++ {
		i := x
		if len(equity) > width {
			i = x * (len(equity) - 1) / (width - 1)
		}
		y := int((equity[i] - lo) / span * float64(height-1))
		if y >= 0 && y < height {
			grid[height-1-y][x] = '█'
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Equity Curve (%s - %s)\n", utils.FormatNumber(lo, 0), utils.FormatNumber(hi, 0))
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	for _, row := range grid {
		sb.WriteRune('│')
		sb.WriteString(string(row))
		sb.WriteString("│\n")
	}
	sb.WriteString(strings.Repeat("─", width+2) + "\n")
	return sb.String()
}

// HeatmapGrid lays the month out as a Sunday-first calendar. Each day shows
// its compact P&L, or "·" when nothing was traded.
func HeatmapGrid(hm models.Heatmap, cell func(pnl float64, s string) string) string {
	const w = 10
	if cell == nil {
		cell = func(_ float64, s string) string { return s }
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d\n", time.Month(hm.Month), hm.Year)
	for _, d := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		sb.WriteString(PadRight(d, w))
	}
	sb.WriteString("\n")

	col := 0
	for ; col < hm.FirstWeekday; col++ {
		sb.WriteString(strings.Repeat(" ", w))
	}
	for day := 1; day <= hm.DaysInMonth; day++ {
		text := fmt.Sprintf("%2d ·", day)
		pnl, traded := hm.Days[day]
		if traded {
			text = fmt.Sprintf("%2d %s", day, utils.FormatCompact(pnl))
		}
		padded := PadRight(text, w)
		if traded {
			padded = cell(pnl, text) + strings.Repeat(" ", max(0, w-len([]rune(text))))
		}
		sb.WriteString(padded)

		col++
		if col == 7 && day < hm.DaysInMonth {
			sb.WriteString("\n")
			col = 0
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatRiskReward formats a risk-reward ratio.
func FormatRiskReward(rr float64) string {
	return fmt.Sprintf("1:%.2f", rr)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

func favoriteMark(fav bool) string {
	if fav {
		return "★"
	}
	return ""
}
