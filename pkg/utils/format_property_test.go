package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var groupedPattern = regexp.MustCompile(`^-?\d{1,3}(,\d{3})*\.\d{2}$`)

// Property: FormatNumber groups thousands with commas, always prints two
// decimals for scale 2, and preserves the value up to rounding.
func TestProperty_FormatNumber(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("FormatNumber produces en-US grouping", prop.ForAll(
		func(amount float64) bool {
			result := FormatNumber(amount, 2)
			if !groupedPattern.MatchString(result) {
				t.Logf("unexpected format %q for %v", result, amount)
				return false
			}
			return true
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("FormatNumber preserves value", prop.ForAll(
		func(amount float64) bool {
			result := FormatNumber(amount, 2)
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(result, ",", ""), 64)
			if err != nil {
				t.Logf("failed to parse %q: %v", result, err)
				return false
			}
			return math.Abs(parsed-amount) <= 0.0051
		},
		gen.Float64Range(-1e7, 1e7),
	))

	properties.Property("FormatSignedMoney marks positive amounts", prop.ForAll(
		func(amount float64, code string) bool {
			result := FormatSignedMoney(CurrencySymbol(code), amount, 2)
			switch {
			case amount >= 0.005:
				return strings.HasPrefix(result, "+"+CurrencySymbol(code))
			case amount <= -0.005:
				return strings.HasPrefix(result, "-"+CurrencySymbol(code))
			default:
				return true
			}
		},
		gen.Float64Range(-1e6, 1e6),
		gen.OneConstOf("USD", "EUR", "JPY", "GBP", "INR", "AUD", "CAD", "XYZ"),
	))

	properties.TestingRun(t)
}

func TestFormatNumberExamples(t *testing.T) {
	tests := []struct {
		value    float64
		decimals int
		expected string
	}{
		{0, 2, "0.00"},
		{1234.5, 2, "1,234.50"},
		{-1234567.891, 2, "-1,234,567.89"},
		{999.999, 2, "1,000.00"},
		{-0.001, 2, "0.00"},
		{42, 0, "42"},
		{math.NaN(), 2, "0"},
		{math.Inf(-1), 2, "0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatNumber(tt.value, tt.decimals), "FormatNumber(%v, %d)", tt.value, tt.decimals)
	}
}

func TestFormatMoneyExamples(t *testing.T) {
	assert.Equal(t, "$1,000.00", FormatMoney("$", 1000, 2))
	assert.Equal(t, "-€12.30", FormatMoney("€", -12.3, 2))
	assert.Equal(t, "+A$5.00", FormatSignedMoney("A$", 5, 2))
	assert.Equal(t, "$0.00", FormatSignedMoney("$", 0.001, 2))
	assert.Equal(t, "+12.50%", FormatPercent(12.5))
	assert.Equal(t, "-3.00%", FormatPercent(-3))
	assert.Equal(t, "0.00%", FormatPercent(0))
	assert.Equal(t, "1.50M", FormatCompact(1_500_000))
	assert.Equal(t, "12.5K", FormatCompact(12_500))
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "$", CurrencySymbol("USD"))
	assert.Equal(t, "€", CurrencySymbol("eur"))
	assert.Equal(t, "¥", CurrencySymbol("JPY"))
	assert.Equal(t, "£", CurrencySymbol("GBP"))
	assert.Equal(t, "₹", CurrencySymbol("INR"))
	assert.Equal(t, "A$", CurrencySymbol("AUD"))
	assert.Equal(t, "C$", CurrencySymbol("CAD"))
	assert.Equal(t, "$", CurrencySymbol("CHF"))
	assert.True(t, KnownCurrency(" gbp "))
	assert.False(t, KnownCurrency("CHF"))
}
