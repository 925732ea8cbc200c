package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trading-journal/internal/models"
)

// For any string and limit, TruncateString should:
// 1. Never return more than the limit in runes
// 2. Return the input unchanged when it fits
// 3. Keep a prefix of the input
func TestProperty_TruncateString(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property: output fits the limit and starts with the kept input
	properties.Property("TruncateString respects the limit", prop.ForAll(
		func(s string, maxLen int) bool {
			out := TruncateString(s, maxLen)
			n := utf8.RuneCountInString(s)

			if n <= maxLen {
				return out == s
			}
			if utf8.RuneCountInString(out) != maxLen {
				t.Logf("TruncateString(%q, %d) = %q", s, maxLen, out)
				return false
			}
			kept := strings.TrimSuffix(out, "...")
			return strings.HasPrefix(s, kept)
		},
		gen.AnyString(),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

// For any string and width, PadRight reaches at least the width and only
// appends spaces.
func TestProperty_PadRight(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property: padded length is max(len, width) in runes
	properties.Property("PadRight pads to the width", prop.ForAll(
		func(s string, width int) bool {
			out := PadRight(s, width)
			want := max(utf8.RuneCountInString(s), width)
			return utf8.RuneCountInString(out) == want &&
				strings.HasPrefix(out, s) &&
				strings.TrimRight(out[len(s):], " ") == ""
		},
		gen.AlphaString(),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}

// For any non-empty equity series the chart has a header, two borders and
// exactly height rows, each width cells wide.
func TestProperty_EquityCurveShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property: chart dimensions follow width and height
	properties.Property("EquityCurveASCII has a fixed shape", prop.ForAll(
		func(pnls []float64, width, height int) bool {
			if len(pnls) == 0 {
				return EquityCurveASCII(nil, 0, width, height) == "No data to display"
			}
			var candles []models.Candle
			var equity float64
			for i, p := range pnls {
				equity += p
				candles = append(candles, models.Candle{Index: i + 1, Close: equity, PnL: p})
			}

			lines := strings.Split(strings.TrimSuffix(EquityCurveASCII(candles, 10000, width, height), "\n"), "\n")
			if len(lines) != height+3 {
				t.Logf("got %d lines for height %d", len(lines), height)
				return false
			}
			for _, row := range lines[2 : len(lines)-1] {
				if utf8.RuneCountInString(row) != width+2 {
					return false
				}
			}
			return strings.HasPrefix(lines[0], "Equity Curve (")
		},
		gen.SliceOf(gen.Float64Range(-500, 500)),
		gen.IntRange(10, 80),
		gen.IntRange(3, 20),
	))

	properties.TestingRun(t)
}
