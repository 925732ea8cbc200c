package coach

import (
	"context"
	"encoding/json"
	"fmt"

	"trading-journal/internal/models"
)

const (
	defaultTradeLimit = 10
	maxTradeLimit     = 50
)

// ToolExecutor runs coach tool calls against a journal.
type ToolExecutor struct {
	journal Journal
}

// NewToolExecutor creates a tool executor over j.
func NewToolExecutor(j Journal) *ToolExecutor {
	return &ToolExecutor{journal: j}
}

// ExecuteTool executes a tool call and returns the result as JSON.
func (te *ToolExecutor) ExecuteTool(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	params := map[string]interface{}{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("failed to parse tool arguments: %w", err)
		}
	}

	switch toolName {
	case "get_stats":
		return te.executeGetStats(params)
	case "get_recent_trades":
		return te.executeGetRecentTrades(params)
	case "list_strategies":
		return toJSON(te.journal.Strategies())
	default:
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}
}

// statsView is the part of the statistics worth sending to the model.
type statsView struct {
	Timeframe      models.Timeframe            `json:"timeframe"`
	Strategy       string                      `json:"strategy"`
	Trades         int                         `json:"trades"`
	Risk           models.RiskStats            `json:"risk"`
	Strategies     []models.StrategyPnL        `json:"strategies"`
	Symbols        []models.SymbolPnL          `json:"symbols"`
	Monthly        []models.MonthlyPerformance `json:"monthly"`
	InitialBalance float64                     `json:"initialBalance"`
}

func (te *ToolExecutor) executeGetStats(params map[string]interface{}) (string, error) {
	tf, err := models.ParseTimeframe(getStringParam(params, "timeframe", string(models.TimeframeAll)))
	if err != nil {
		return "", err
	}
	strategy := getStringParam(params, "strategy", models.AllStrategies)

	stats := te.journal.Stats(te.journal.Query(tf, strategy))
	risk := stats.Risk
	risk.TopTrades, risk.BottomTrades = trimTrades(risk.TopTrades), trimTrades(risk.BottomTrades)

	return toJSON(statsView{
		Timeframe:      stats.Timeframe,
		Strategy:       stats.Strategy,
		Trades:         stats.FilteredTrades,
		Risk:           risk,
		Strategies:     stats.Aggregates.StrategyProfit,
		Symbols:        stats.Aggregates.SymbolProfit,
		Monthly:        stats.Monthly,
		InitialBalance: stats.InitialBalance,
	})
}

func (te *ToolExecutor) executeGetRecentTrades(params map[string]interface{}) (string, error) {
	limit := getIntParam(params, "limit", defaultTradeLimit)
	if limit <= 0 {
		limit = defaultTradeLimit
	}
	limit = min(limit, maxTradeLimit)
	return toJSON(trimTrades(te.journal.Recent(limit)))
}

// trimTrades drops screenshots, which can be large data URLs.
func trimTrades(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	for i, t := range trades {
		t.Screenshot = ""
		out[i] = t
	}
	return out
}

func toJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(b), nil
}

// Helper to get string param with default
func getStringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// Helper to get int param with default
func getIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return defaultVal
}
