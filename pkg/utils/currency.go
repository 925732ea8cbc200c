package utils

import "strings"

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"JPY": "¥",
	"GBP": "£",
	"INR": "₹",
	"AUD": "A$",
	"CAD": "C$",
}

// Currencies lists the supported currency codes in display order.
var Currencies = []string{"USD", "EUR", "JPY", "GBP", "INR", "AUD", "CAD"}

// CurrencySymbol returns the display symbol for an ISO currency code.
// Unknown codes fall back to "$".
func CurrencySymbol(code string) string {
	if sym, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return sym
	}
	return "$"
}

// KnownCurrency reports whether code is a supported currency.
func KnownCurrency(code string) bool {
	_, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// CurrencyForSymbol maps a display symbol back to its currency code.
func CurrencyForSymbol(symbol string) (string, bool) {
	symbol = strings.TrimSpace(symbol)
	for _, code := range Currencies {
		if currencySymbols[code] == symbol {
			return code, true
		}
	}
	return "", false
}
