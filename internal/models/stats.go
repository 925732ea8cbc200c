package models

// PnLBucket is the summed P&L of one period key (month, week or year).
type PnLBucket struct {
	Key string  `json:"key"`
	PnL float64 `json:"pnl"`
}

// StrategyPnL is the P&L of one strategy.
type StrategyPnL struct {
	Name   string  `json:"name"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
}

// SymbolPnL is the P&L of one instrument.
type SymbolPnL struct {
	Symbol string  `json:"symbol"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
}

// Candle is one step of the per-trade equity curve. Index is 1-based.
type Candle struct {
	Index  int     `json:"index"`
	ID     string  `json:"id"`
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	PnL    float64 `json:"pnl"`
}

// Aggregates is the output of the aggregation engine.
type Aggregates struct {
	StrategyProfit []StrategyPnL `json:"strategyProfitData"`
	SymbolProfit   []SymbolPnL   `json:"symbolProfitData"`
	Monthly        []PnLBucket   `json:"monthlyPnlData"`
	Weekly         []PnLBucket   `json:"weeklyPnlData"`
	Yearly         []PnLBucket   `json:"yearlyPnlData"`
	Candles        []Candle      `json:"perTradeCandles"`
	TotalProfit    float64       `json:"totalProfit"`
	TotalLoss      float64       `json:"totalLoss"`
	Skipped        int           `json:"skipped"` // trades with malformed dates left out of period buckets
}

// Drawdown is the deepest peak-to-trough decline of the equity curve.
type Drawdown struct {
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percentage"`
}

// RiskStats is the output of the risk statistics engine.
type RiskStats struct {
	TotalTrades        int      `json:"totalTrades"`
	Wins               int      `json:"wins"`
	Losses             int      `json:"losses"`
	WinRate            float64  `json:"winRate"`
	TotalPnL           float64  `json:"totalPnl"`
	GrossProfit        float64  `json:"grossProfit"`
	GrossLoss          float64  `json:"grossLoss"`
	AvgProfit          float64  `json:"avgProfit"`
	AvgLoss            float64  `json:"avgLoss"`
	RiskReward         float64  `json:"riskReward"`
	AverageRR          float64  `json:"averageRR"`
	Expectancy         float64  `json:"expectancy"`
	ExpectancyPerTrade float64  `json:"expectancyPerTrade"`
	Sharpe             float64  `json:"sharpe"`
	MaxDrawdown        Drawdown `json:"maxDrawdown"`
	ProfitFactor       float64  `json:"profitFactor"`
	LargestWin         float64  `json:"largestWin"`
	LargestLoss        float64  `json:"largestLoss"`
	TopTrades          []Trade  `json:"topTrades"`
	BottomTrades       []Trade  `json:"bottomTrades"`
}

// MonthlyPerformance is one row of the monthly ROI table.
type MonthlyPerformance struct {
	Month   string  `json:"month"`
	PnL     float64 `json:"pnl"`
	ROI     float64 `json:"roi"`
	Balance float64 `json:"balance"`
}

// Heatmap holds the per-day P&L of one calendar month.
type Heatmap struct {
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	DaysInMonth  int             `json:"daysInMonth"`
	FirstWeekday int             `json:"firstWeekday"` // 0 = Sunday
	Days         map[int]float64 `json:"days"`
}

// DashboardSummary is computed over the unfiltered trade collection.
type DashboardSummary struct {
	TotalTrades  int     `json:"totalTrades"`
	TotalPnL     float64 `json:"totalPnl"`
	WinRate      float64 `json:"winRate"`
	GrossProfit  float64 `json:"grossProfit"`
	GrossLoss    float64 `json:"grossLoss"`
	Favorites    int     `json:"favorites"`
	RecentTrades []Trade `json:"recentTrades"`
}

// PerformanceStats bundles every derived statistic for one filter selection.
type PerformanceStats struct {
	Timeframe      Timeframe            `json:"timeframe"`
	Strategy       string               `json:"strategy"`
	InitialBalance float64              `json:"initialBalance"`
	TotalTrades    int                  `json:"totalTrades"`
	FilteredTrades int                  `json:"filteredTrades"`
	Aggregates     Aggregates           `json:"aggregates"`
	Risk           RiskStats            `json:"risk"`
	Monthly        []MonthlyPerformance `json:"monthlyPerformance"`
	Dashboard      DashboardSummary     `json:"dashboard"`
	Trades         []Trade              `json:"-"`
}
