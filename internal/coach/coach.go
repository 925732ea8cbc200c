// Package coach answers questions about the user's trading from their
// computed statistics.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/llm"
	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

const systemPrompt = `You are a trading performance coach reviewing a trader's journal.
Answer using only the statistics provided. Be specific and brief: point to the
numbers that support each observation and finish with one concrete action.
Do not give financial advice about specific instruments.`

// ToolCompleter is a model that can call tools while answering.
type ToolCompleter interface {
	CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []openai.Tool, executor llm.ToolExecutor) (*llm.ChainOfThought, error)
}

// Journal is the read side of the journal the coach may query.
type Journal interface {
	Stats(q analytics.Query) models.PerformanceStats
	Query(timeframe models.Timeframe, strategy string) analytics.Query
	Recent(limit int) []models.Trade
	Strategies() []string
	Currency() string
}

// Coach answers trading questions.
type Coach struct {
	client llm.Completer
	logger zerolog.Logger
}

// New creates a coach.
func New(client llm.Completer, logger zerolog.Logger) *Coach {
	return &Coach{
		client: client,
		logger: logger.With().Str("component", "coach").Logger(),
	}
}

// Ask answers question with a summary of stats as context. Money in the
// prompt is shown in currency.
func (c *Coach) Ask(ctx context.Context, question string, stats models.PerformanceStats, currency string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperrors.NewValidationError("question", question, "empty question")
	}

	prompt := Summarize(stats, currency) + "\nQuestion: " + question
	answer, err := c.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("coach request failed: %w", err)
	}

	c.logger.Debug().Int("prompt_len", len(prompt)).Msg("Coach answered")
	return strings.TrimSpace(answer), nil
}

// Investigate lets the model pull statistics for any timeframe or strategy
// through tools before answering. It needs a client that supports tools.
func (c *Coach) Investigate(ctx context.Context, question string, j Journal) (*llm.ChainOfThought, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewValidationError("question", question, "empty question")
	}
	tc, ok := c.client.(ToolCompleter)
	if !ok {
		return nil, fmt.Errorf("coach client does not support tools")
	}

	overview := Summarize(j.Stats(j.Query(models.TimeframeAll, models.AllStrategies)), j.Currency())
	cot, err := tc.CompleteWithTools(ctx, systemPrompt, overview+"\nQuestion: "+question, ToolDefinitions(), NewToolExecutor(j))
	if err != nil {
		return nil, fmt.Errorf("coach request failed: %w", err)
	}

	c.logger.Debug().Int("tool_calls", len(cot.ToolCalls)).Msg("Coach investigated")
	return cot, nil
}

// Summarize renders the statistics as a compact plain-text block.
func Summarize(stats models.PerformanceStats, currency string) string {
	sym := utils.CurrencySymbol(currency)
	money := func(v float64) string { return utils.FormatSignedMoney(sym, v, 2) }
	r := stats.Risk

	var b strings.Builder
	fmt.Fprintf(&b, "Timeframe: %s, strategy: %s, trades: %d of %d\n", stats.Timeframe, stats.Strategy, stats.FilteredTrades, stats.TotalTrades)
	fmt.Fprintf(&b, "Net P&L: %s (gross profit %s, gross loss %s)\n", money(r.TotalPnL), money(r.GrossProfit), money(-r.GrossLoss))
	fmt.Fprintf(&b, "Win rate: %s%%, wins %d, losses %d\n", utils.FormatNumber(r.WinRate, 1), r.Wins, r.Losses)
	avgLoss := "n/a (no losses)"
	if r.Losses > 0 {
		avgLoss = money(-r.AvgLoss)
	}
	fmt.Fprintf(&b, "Average win %s, average loss %s, risk-reward %.2f, expectancy %s, average P&L %s per trade\n",
		money(r.AvgProfit), avgLoss, r.RiskReward, money(r.Expectancy), money(r.ExpectancyPerTrade))
	fmt.Fprintf(&b, "Profit factor %.2f, Sharpe %.2f, max drawdown %s (%s)\n",
		r.ProfitFactor, r.Sharpe, money(-r.MaxDrawdown.Amount), utils.FormatNumber(r.MaxDrawdown.Percent, 2)+"%")

	if groups := analytics.SortStrategiesByPnL(stats.Aggregates.StrategyProfit); len(groups) > 0 {
		parts := make([]string, 0, len(groups))
		for _, g := range groups {
			parts = append(parts, fmt.Sprintf("%s %s (%d trades, %d wins)", g.Name, money(g.PnL), g.Trades, g.Wins))
		}
		fmt.Fprintf(&b, "By strategy: %s\n", strings.Join(parts, "; "))
	}

	if n := len(stats.Monthly); n > 0 {
		from := max(0, n-3)
		parts := make([]string, 0, n-from)
		for _, m := range stats.Monthly[from:] {
			parts = append(parts, fmt.Sprintf("%s %s (ROI %s)", m.Month, money(m.PnL), utils.FormatPercent(m.ROI)))
		}
		fmt.Fprintf(&b, "Recent months: %s\n", strings.Join(parts, "; "))
	}
	return b.String()
}

// ToolDefinitions returns the tools the coach exposes to the model.
func ToolDefinitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_stats",
				Description: "Performance statistics for a timeframe and strategy: win rate, P&L, drawdown, profit factor, per-strategy results.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"timeframe": {"type": "string", "enum": ["daily", "weekly", "monthly", "yearly", "all"]},
						"strategy": {"type": "string", "description": "Strategy name, or All"}
					}
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_recent_trades",
				Description: "The most recent trades, newest first, with symbol, date, P&L, strategy, style, mental state and note.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"limit": {"type": "integer", "description": "Number of trades (default 10, max 50)"}
					}
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "list_strategies",
				Description: "The strategies used in the journal.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
	}
}
