package journal

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

// TradeInput is a trade as typed by the user. Numbers are kept as strings so
// the P&L is derived from exactly what was entered.
type TradeInput struct {
	Symbol      string `json:"symbol"`
	Date        string `json:"date"` // YYYY-MM-DD, defaults to today
	EntryPrice  string `json:"entryPrice"`
	ExitPrice   string `json:"exitPrice"`
	Quantity    string `json:"quantity"` // defaults to 1
	Direction   string `json:"type"`     // Long or Short, defaults to Long
	PnLAmount   string `json:"pnlAmount"`
	ResultType  string `json:"resultType"` // Profit or Loss; makes PnLAmount an absolute value
	Currency    string `json:"currency"`
	Strategy    string `json:"strategy"`
	Style       string `json:"style"`
	MentalState string `json:"mentalState"`
	Note        string `json:"note"`
	Screenshot  string `json:"screenshot"`
	IsFavorite  bool   `json:"isFavorite"`
}

// NewTrade builds a validated trade from user input. The P&L is derived from
// the prices unless a manual amount is given.
func NewTrade(in TradeInput, now time.Time) (models.Trade, error) {
	t := models.Trade{
		Symbol:      strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		Strategy:    strings.TrimSpace(in.Strategy),
		Style:       strings.TrimSpace(in.Style),
		MentalState: strings.TrimSpace(in.MentalState),
		Note:        strings.TrimSpace(in.Note),
		Screenshot:  in.Screenshot,
		IsFavorite:  in.IsFavorite,
		CreatedAt:   now.UTC(),
	}
	if t.Strategy == "" {
		t.Strategy = models.UnknownStrategy
	}

	if strings.TrimSpace(in.Date) == "" {
		t.Date = models.DateOf(now).String()
	} else {
		d, ok := models.ParseDate(strings.TrimSpace(in.Date))
		if !ok {
			return models.Trade{}, fmt.Errorf("date %q: %w", in.Date, apperrors.ErrInvalidDate)
		}
		t.Date = d.String()
	}

	dir, err := ParseDirection(in.Direction)
	if err != nil {
		return models.Trade{}, err
	}
	t.Direction = dir

	entry, err := parseAmount("entryPrice", in.EntryPrice, decimal.Zero)
	if err != nil {
		return models.Trade{}, err
	}
	exit, err := parseAmount("exitPrice", in.ExitPrice, decimal.Zero)
	if err != nil {
		return models.Trade{}, err
	}
	qty, err := parseAmount("quantity", in.Quantity, decimal.NewFromInt(1))
	if err != nil {
		return models.Trade{}, err
	}
	if !qty.IsPositive() {
		return models.Trade{}, apperrors.NewValidationError("quantity", in.Quantity, "must be positive")
	}
	t.EntryPrice = entry.InexactFloat64()
	t.ExitPrice = exit.InexactFloat64()
	t.Quantity = qty.InexactFloat64()

	switch {
	case strings.TrimSpace(in.PnLAmount) != "":
		pnl, err := manualPnL(in.PnLAmount, in.ResultType)
		if err != nil {
			return models.Trade{}, err
		}
		t.PnL = pnl.InexactFloat64()
		t.PnLOverride = true
	case pricesGiven(in) && (entry.IsPositive() || exit.IsPositive()):
		t.PnL = DerivePnL(dir, entry, exit, qty).InexactFloat64()
	default:
		return models.Trade{}, apperrors.NewValidationError("pnl", "", "entry and exit prices or a P&L amount are required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.Trade{}, fmt.Errorf("failed to generate trade id: %w", err)
	}
	t.ID = id.String()

	if err := Validate(t); err != nil {
		return models.Trade{}, err
	}
	return t, nil
}

// pricesGiven reports whether both prices were entered. Either may be zero,
// as for an option that expired worthless.
func pricesGiven(in TradeInput) bool {
	return strings.TrimSpace(in.EntryPrice) != "" && strings.TrimSpace(in.ExitPrice) != ""
}

// DerivePnL returns (exit-entry)*qty for long trades and (entry-exit)*qty for
// short trades.
func DerivePnL(dir models.Direction, entry, exit, qty decimal.Decimal) decimal.Decimal {
	diff := exit.Sub(entry)
	if dir == models.DirectionShort {
		diff = diff.Neg()
	}
	return diff.Mul(qty)
}

func manualPnL(amount, resultType string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError("pnlAmount", amount, "not a number")
	}

	switch strings.ToLower(strings.TrimSpace(resultType)) {
	case "":
		return v, nil
	case strings.ToLower(string(models.ResultProfit)):
		return v.Abs(), nil
	case strings.ToLower(string(models.ResultLoss)):
		return v.Abs().Neg(), nil
	default:
		return decimal.Zero, apperrors.NewValidationError("resultType", resultType, "must be Profit or Loss")
	}
}

// parseAmount parses a non-negative decimal, returning def for blank input.
func parseAmount(field, s string, def decimal.Decimal) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.NewValidationError(field, s, "not a number")
	}
	if v.IsNegative() {
		return decimal.Zero, apperrors.NewValidationError(field, s, "must not be negative")
	}
	return v, nil
}

// ParseDirection accepts Long or Short in any case. Blank means Long.
func ParseDirection(s string) (models.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long", "buy":
		return models.DirectionLong, nil
	case "short", "sell":
		return models.DirectionShort, nil
	default:
		return "", apperrors.NewValidationError("type", s, "must be Long or Short")
	}
}

// Validate checks a trade before it enters the store.
func Validate(t models.Trade) error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: empty id", apperrors.ErrInvalidTrade)
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidTrade, apperrors.NewValidationError("symbol", t.Symbol, "required"))
	}
	if _, ok := models.ParseDate(t.Date); !ok {
		return fmt.Errorf("%w: date %q: %w", apperrors.ErrInvalidTrade, t.Date, apperrors.ErrInvalidDate)
	}
	if t.Direction != models.DirectionLong && t.Direction != models.DirectionShort {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidTrade, apperrors.NewValidationError("type", t.Direction, "must be Long or Short"))
	}
	for field, v := range map[string]float64{"entryPrice": t.EntryPrice, "exitPrice": t.ExitPrice, "quantity": t.Quantity} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %w", apperrors.ErrInvalidTrade, apperrors.NewValidationError(field, v, "must be a non-negative number"))
		}
	}
	if math.IsNaN(t.PnL) || math.IsInf(t.PnL, 0) {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidTrade, apperrors.NewValidationError("pnl", t.PnL, "must be finite"))
	}
	if t.Currency != "" && !utils.KnownCurrency(t.Currency) {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidTrade, apperrors.NewValidationError("currency", t.Currency, "unsupported currency"))
	}

	if !t.PnLOverride && t.EntryPrice > 0 && t.ExitPrice > 0 {
		move := t.ExitPrice - t.EntryPrice
		if t.Direction == models.DirectionShort {
			move = -move
		}
		if (move > 0 && t.PnL < 0) || (move < 0 && t.PnL > 0) {
			return fmt.Errorf("%w: %w", apperrors.ErrInvalidTrade,
				apperrors.NewValidationError("pnl", t.PnL, fmt.Sprintf("sign disagrees with a %s trade from %g to %g", t.Direction, t.EntryPrice, t.ExitPrice)))
		}
	}
	return nil
}

// InputFor turns a stored trade back into editable input. A manual P&L is
// carried as a signed amount so that rebuilding the trade keeps it.
func InputFor(t models.Trade) TradeInput {
	in := TradeInput{
		Symbol:      t.Symbol,
		Date:        t.Date,
		Direction:   string(t.Direction),
		Currency:    t.Currency,
		Strategy:    t.Strategy,
		Style:       t.Style,
		MentalState: t.MentalState,
		Note:        t.Note,
		Screenshot:  t.Screenshot,
		IsFavorite:  t.IsFavorite,
	}
	if t.EntryPrice > 0 || (!t.PnLOverride && t.ExitPrice > 0) {
		in.EntryPrice = decimal.NewFromFloat(t.EntryPrice).String()
	}
	if t.ExitPrice > 0 || (!t.PnLOverride && t.EntryPrice > 0) {
		in.ExitPrice = decimal.NewFromFloat(t.ExitPrice).String()
	}
	if t.Quantity > 0 {
		in.Quantity = decimal.NewFromFloat(t.Quantity).String()
	}
	if t.PnLOverride {
		in.PnLAmount = decimal.NewFromFloat(t.PnL).String()
	}
	return in
}
