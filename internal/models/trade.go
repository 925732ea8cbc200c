package models

import (
	"time"
)

// Direction represents the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// ResultType is the outcome selector used by manual P&L entry.
type ResultType string

const (
	ResultProfit ResultType = "Profit"
	ResultLoss   ResultType = "Loss"
)

// UnknownStrategy is the grouping key for trades logged without a strategy.
const UnknownStrategy = "Unknown"

// Trade represents a completed round-trip logged in the journal.
type Trade struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Date        string    `json:"date"` // YYYY-MM-DD, close date
	EntryPrice  float64   `json:"entryPrice"`
	ExitPrice   float64   `json:"exitPrice"`
	Quantity    float64   `json:"quantity,omitempty"`
	PnL         float64   `json:"pnl"`
	PnLOverride bool      `json:"pnlOverride,omitempty"`
	Direction   Direction `json:"type"`
	Currency    string    `json:"currency,omitempty"`
	Strategy    string    `json:"strategy"`
	Style       string    `json:"style,omitempty"`
	MentalState string    `json:"mentalState,omitempty"`
	Note        string    `json:"note,omitempty"`
	Screenshot  string    `json:"screenshot,omitempty"`
	IsFavorite  bool      `json:"isFavorite"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StrategyKey returns the strategy used for grouping.
func (t Trade) StrategyKey() string {
	if t.Strategy == "" {
		return UnknownStrategy
	}
	return t.Strategy
}

// CivilDate parses the trade's close date.
func (t Trade) CivilDate() (Date, bool) {
	return ParseDate(t.Date)
}

// IsWin reports whether the trade closed with a profit.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// IsLoss reports whether the trade closed with a loss.
func (t Trade) IsLoss() bool {
	return t.PnL < 0
}
