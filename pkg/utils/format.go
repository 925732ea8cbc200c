// Package utils provides shared utility functions.
package utils

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatNumber formats n with thousands separators and exactly decimals
// fractional digits, e.g. 1234.5 -> "1,234.50". NaN and Inf format as "0".
func FormatNumber(n float64, decimals int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return "0"
	}
	if decimals < 0 {
		decimals = 0
	}
	// Round half away from zero before formatting, and avoid "-0.00".
	scale := math.Pow(10, float64(decimals))
	if r := math.Round(n*scale) / scale; !math.IsInf(r, 0) && !math.IsNaN(r) {
		n = r
	}
	if n == 0 {
		n = 0
	}
	return printer.Sprintf("%v", number.Decimal(n, number.Scale(decimals)))
}

// FormatMoney formats an amount with a currency symbol, e.g. "-$1,234.50".
func FormatMoney(symbol string, amount float64, decimals int) string {
	formatted := FormatNumber(amount, decimals)
	if strings.HasPrefix(formatted, "-") {
		return "-" + symbol + formatted[1:]
	}
	return symbol + formatted
}

// FormatSignedMoney is FormatMoney with a leading "+" for positive amounts.
func FormatSignedMoney(symbol string, amount float64, decimals int) string {
	formatted := FormatMoney(symbol, amount, decimals)
	if amount > 0 && FormatNumber(amount, decimals) != FormatNumber(0, decimals) {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	formatted := FormatNumber(value, 2)
	if value > 0 && formatted != "0.00" {
		return "+" + formatted + "%"
	}
	return formatted + "%"
}

// FormatCompact formats a number in compact form (K/M/B).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e9:
		return FormatNumber(amount/1e9, 2) + "B"
	case abs >= 1e6:
		return FormatNumber(amount/1e6, 2) + "M"
	case abs >= 1e4:
		return FormatNumber(amount/1e3, 1) + "K"
	default:
		return FormatNumber(amount, 2)
	}
}
