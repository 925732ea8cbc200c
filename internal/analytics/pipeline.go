package analytics

import (
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/models"
)

// Query selects which trades the statistics are computed over.
type Query struct {
	Timeframe      models.Timeframe
	Strategy       string
	Now            time.Time
	InitialBalance float64
	WeekScheme     models.WeekScheme
	TopN           int // 0 means DefaultTopN
	RecentLimit    int // 0 means DefaultRecentLimit
	MonthlyWindow  int // 0 keeps every month
}

// Compute runs the full statistics pipeline. The dashboard summary covers
// every trade; all other figures cover the trades selected by q.
func Compute(all []models.Trade, q Query) models.PerformanceStats {
	stats, _ := compute(all, q)
	return stats
}

func compute(all []models.Trade, q Query) (models.PerformanceStats, []string) {
	if q.Timeframe == "" {
		q.Timeframe = models.TimeframeAll
	}
	if q.Strategy == "" {
		q.Strategy = models.AllStrategies
	}

	filtered, malformed := filter(all, q.Timeframe, q.Strategy, q.Now)
	SortCanonical(filtered)

	return models.PerformanceStats{
		Timeframe:      q.Timeframe,
		Strategy:       q.Strategy,
		InitialBalance: q.InitialBalance,
		TotalTrades:    len(all),
		FilteredTrades: len(filtered),
		Aggregates:     Aggregate(filtered, q.WeekScheme),
		Risk:           computeRiskStats(filtered, q.InitialBalance, q.TopN),
		Monthly:        MonthlyPerformance(filtered, q.InitialBalance, q.MonthlyWindow),
		Dashboard:      Dashboard(all, q.RecentLimit),
		Trades:         filtered,
	}, malformed
}

// Engine runs the pipeline and reports trades with malformed dates.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates an Engine that logs to logger.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "analytics").Logger()}
}

// Compute is Compute with malformed-date reporting.
func (e *Engine) Compute(all []models.Trade, q Query) models.PerformanceStats {
	stats, malformed := compute(all, q)

	if len(malformed) > 0 {
		e.logger.Warn().
			Strs("trade_ids", malformed).
			Str("timeframe", string(stats.Timeframe)).
			Msg("Trades with malformed dates excluded from timeframe")
	}
	if n := stats.Aggregates.Skipped; n > 0 {
		e.logger.Debug().
			Int("count", n).
			Msg("Trades with malformed dates left out of period buckets")
	}

	e.logger.Debug().
		Str("timeframe", string(stats.Timeframe)).
		Str("strategy", stats.Strategy).
		Int("total", stats.TotalTrades).
		Int("filtered", stats.FilteredTrades).
		Msg("Computed performance stats")

	return stats
}
