package analytics

import (
	"time"

	"trading-journal/internal/models"
)

// Filter returns the trades that fall inside timeframe relative to now and
// match strategy. Both conditions must hold. The strategy "All" disables
// strategy filtering; any other selector must equal the trade's strategy
// exactly, so "" selects trades recorded without one. Dates are compared as civil dates, with
// now contributing its own calendar date. Trades whose date cannot be parsed
// are excluded from every date-bounded timeframe.
func Filter(trades []models.Trade, timeframe models.Timeframe, strategy string, now time.Time) []models.Trade {
	out, _ := filter(trades, timeframe, strategy, now)
	return out
}

// filter also reports the ids of trades dropped for a malformed date.
func filter(trades []models.Trade, timeframe models.Timeframe, strategy string, now time.Time) ([]models.Trade, []string) {
	window := windowFor(timeframe, models.DateOf(now))

	out := make([]models.Trade, 0, len(trades))
	var malformed []string
	for _, t := range trades {
		if !matchesStrategy(t, strategy) {
			continue
		}
		if window.bounded {
			d, ok := t.CivilDate()
			if !ok {
				malformed = append(malformed, t.ID)
				continue
			}
			if !window.contains(d) {
				continue
			}
		}
		out = append(out, t)
	}
	return out, malformed
}

func matchesStrategy(t models.Trade, strategy string) bool {
	return strategy == models.AllStrategies || t.Strategy == strategy
}

// dateWindow is a closed lower bound with an optional exact-day match.
type dateWindow struct {
	bounded bool
	exact   bool
	from    models.Date
}

func (w dateWindow) contains(d models.Date) bool {
	if w.exact {
		return d == w.from
	}
	return !d.Before(w.from)
}

func windowFor(timeframe models.Timeframe, today models.Date) dateWindow {
	switch timeframe {
	case models.TimeframeDaily:
		return dateWindow{bounded: true, exact: true, from: today}
	case models.TimeframeWeekly:
		// Weeks start on Sunday.
		return dateWindow{bounded: true, from: today.AddDays(-int(today.Weekday()))}
	case models.TimeframeMonthly:
		return dateWindow{bounded: true, from: models.Date{Year: today.Year, Month: today.Month, Day: 1}}
	case models.TimeframeYearly:
		return dateWindow{bounded: true, from: models.Date{Year: today.Year, Month: time.January, Day: 1}}
	default:
		return dateWindow{}
	}
}
