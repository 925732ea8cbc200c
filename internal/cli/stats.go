package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

// addStatsCommands adds the statistics commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newDashboardCmd(app))
	rootCmd.AddCommand(newEquityCmd(app))
	rootCmd.AddCommand(newMonthlyCmd(app))
	rootCmd.AddCommand(newHeatmapCmd(app))
	rootCmd.AddCommand(newCalcCmd(app))
}

// queryFlags selects the timeframe and strategy of a statistics command.
type queryFlags struct {
	timeframe string
	strategy  string
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.timeframe, "timeframe", "p", "", "daily, weekly, monthly, yearly or all (default from config)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "strategy to include, or All (default from config)")
}

func (f *queryFlags) resolve(app *App) (models.Timeframe, string, error) {
	tf := app.Config.DefaultTimeframe()
	if f.timeframe != "" {
		parsed, err := models.ParseTimeframe(f.timeframe)
		if err != nil {
			return "", "", apperrors.NewValidationError("timeframe", f.timeframe, err.Error())
		}
		tf = parsed
	}
	strategy := f.strategy
	if strategy == "" {
		strategy = app.Config.Journal.DefaultStrategy
	}
	return tf, strategy, nil
}

func newStatsCmd(app *App) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Performance statistics",
		Long: `Show win rate, P&L, risk-reward, expectancy, profit factor, Sharpe ratio
and maximum drawdown for the selected timeframe and strategy, with P&L broken
down by strategy and symbol.`,
		Example: `  journal stats
  journal stats -p monthly
  journal stats -p yearly --strategy Breakout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, strategy, err := qf.resolve(app)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}

			stats := svc.Stats(svc.Query(tf, strategy))
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(stats)
			}
			printStats(output, stats)
			return nil
		},
	}
	qf.bind(cmd)
	return cmd
}

func printStats(output *Output, stats models.PerformanceStats) {
	r := stats.Risk
	output.Bold("Performance · %s · %s", stats.Timeframe, stats.Strategy)
	output.Dim("%d of %d trades", stats.FilteredTrades, stats.TotalTrades)
	output.Println()

	if stats.FilteredTrades == 0 {
		output.Info("No trades in this selection.")
		return
	}

	avgLoss := "-"
	if r.Losses > 0 {
		avgLoss = output.Money(r.AvgLoss)
	}
	output.KeyValues("", [][2]string{
		{"Net P&L", output.PnL(r.TotalPnL)},
		{"Win rate", fmt.Sprintf("%s%% (%d W / %d L)", utils.FormatNumber(r.WinRate, 1), r.Wins, r.Losses)},
		{"Gross profit", output.Money(r.GrossProfit)},
		{"Gross loss", output.Money(r.GrossLoss)},
		{"Average win", output.Money(r.AvgProfit)},
		{"Average loss", avgLoss},
		{"Risk-reward", FormatRiskReward(r.RiskReward)},
		{"Expectancy", output.PnL(r.Expectancy)},
		{"Average P&L", output.PnL(r.ExpectancyPerTrade) + " per trade"},
		{"Profit factor", utils.FormatNumber(r.ProfitFactor, 2)},
		{"Sharpe ratio", utils.FormatNumber(r.Sharpe, 2)},
		{"Max drawdown", fmt.Sprintf("%s (%s%%)", output.Money(r.MaxDrawdown.Amount), utils.FormatNumber(r.MaxDrawdown.Percent, 2))},
		{"Largest win", output.PnL(r.LargestWin)},
		{"Largest loss", output.PnL(r.LargestLoss)},
	})

	if groups := analytics.SortStrategiesByPnL(stats.Aggregates.StrategyProfit); len(groups) > 0 {
		output.Println()
		output.Bold("By strategy")
		table := NewTable(output, "Strategy", "Trades", "Win %", "P&L")
		for _, g := range groups {
			table.AddRow(g.Name, strconv.Itoa(g.Trades), winPct(g.Wins, g.Trades), output.PnL(g.PnL))
		}
		table.Render()
	}

	if len(stats.Aggregates.SymbolProfit) > 0 {
		output.Println()
		output.Bold("By symbol")
		table := NewTable(output, "Symbol", "Trades", "Win %", "P&L")
		for _, s := range stats.Aggregates.SymbolProfit {
			table.AddRow(s.Symbol, strconv.Itoa(s.Trades), winPct(s.Wins, s.Trades), output.PnL(s.PnL))
		}
		table.Render()
	}

	if len(r.TopTrades) > 0 {
		output.Println()
		output.Bold("Best trades")
		printTradeTable(output, r.TopTrades)
		output.Bold("Worst trades")
		printTradeTable(output, r.BottomTrades)
	}

	if stats.Aggregates.Skipped > 0 {
		output.Warning("⚠️ %d trades with unreadable dates were left out of period totals", stats.Aggregates.Skipped)
	}
}

func winPct(wins, trades int) string {
	if trades == 0 {
		return "0.0"
	}
	return utils.FormatNumber(float64(wins)/float64(trades)*100, 1)
}

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Journal overview with the most recent trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}

			ds := svc.Stats(svc.Query(models.TimeframeAll, models.AllStrategies)).Dashboard
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(ds)
			}

			output.KeyValues("Dashboard", [][2]string{
				{"Total P&L", output.PnL(ds.TotalPnL)},
				{"Trades", strconv.Itoa(ds.TotalTrades)},
				{"Win rate", utils.FormatNumber(ds.WinRate, 1) + "%"},
				{"Gross profit", output.Money(ds.GrossProfit)},
				{"Gross loss", output.Money(ds.GrossLoss)},
				{"Favorites", strconv.Itoa(ds.Favorites)},
			})
			if len(ds.RecentTrades) > 0 {
				output.Println()
				output.Bold("Recent trades")
				printTradeTable(output, ds.RecentTrades)
			}
			return nil
		},
	}
}

func newEquityCmd(app *App) *cobra.Command {
	var (
		qf            queryFlags
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "equity",
		Short: "Plot the equity curve",
		Long:  "Plot the account balance after each trade, starting from the initial balance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, strategy, err := qf.resolve(app)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}

			stats := svc.Stats(svc.Query(tf, strategy))
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(stats.Aggregates.Candles)
			}

			output.Printf("%s", EquityCurveASCII(stats.Aggregates.Candles, stats.InitialBalance, width, height))
			if n := len(stats.Aggregates.Candles); n > 0 {
				final := stats.InitialBalance + stats.Aggregates.Candles[n-1].Close
				output.Printf("Start %s  End %s  Max drawdown %s\n",
					output.Money(stats.InitialBalance), output.Money(final), output.Money(stats.Risk.MaxDrawdown.Amount))
			}
			return nil
		},
	}
	qf.bind(cmd)
	cmd.Flags().IntVar(&width, "width", 60, "chart width")
	cmd.Flags().IntVar(&height, "height", 12, "chart height")
	return cmd
}

func newMonthlyCmd(app *App) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Monthly P&L and ROI",
		Long:  "Show each month's P&L, its return on the balance at the start of the month, and the running balance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("months") {
				months = app.Config.Analytics.MonthlyWindow
			}

			rows := analytics.MonthlyPerformance(svc.Trades(), svc.InitialBalance(), months)
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(rows)
			}
			if len(rows) == 0 {
				output.Info("No trades yet.")
				return nil
			}

			table := NewTable(output, "Month", "P&L", "ROI", "Balance")
			for _, m := range rows {
				table.AddRow(m.Month, output.PnL(m.PnL), output.Percent(m.ROI), output.Money(m.Balance))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", 0, "show only the last N months (0 = all)")
	return cmd
}

func newHeatmapCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "heatmap",
		Short: "Daily P&L calendar for the current month",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}

			hm := svc.Heatmap()
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(hm)
			}
			output.Printf("%s", HeatmapGrid(hm, func(pnl float64, s string) string {
				return output.signColor(pnl, s)
			}))
			return nil
		},
	}
}

func newCalcCmd(app *App) *cobra.Command {
	var in analytics.RiskRewardInput
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Position size and risk-reward calculator",
		Long: `Size a position so that hitting the stop loses exactly the risk amount,
and show the reward profile at the target.`,
		Example: `  journal calc --entry 100 --stop 95 --target 115 --risk 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd).WithCurrency(app.Config.Journal.Currency)
			if !cmd.Flags().Changed("balance") {
				in.AccountBalance = app.Config.Journal.InitialBalance
			}

			res := analytics.CalculateRiskReward(in)
			if output.IsJSON() {
				return output.JSON(res)
			}

			output.KeyValues("Risk-Reward", [][2]string{
				{"Risk per unit", utils.FormatNumber(res.Risk, 4)},
				{"Reward per unit", utils.FormatNumber(res.Reward, 4)},
				{"Ratio", FormatRiskReward(res.Ratio)},
				{"Position size", utils.FormatNumber(res.PositionSize, 4)},
				{"Notional value", output.Money(res.NotionalValue)},
				{"Potential profit", output.PnL(res.PotentialProfit)},
				{"Potential loss", output.PnL(-res.PotentialLoss)},
				{"Account risk", utils.FormatNumber(res.AccountRiskPercent, 2) + "%"},
			})
			output.Printf("  %s\n", riskBar(output, res.RiskBarWidth, res.RewardBarWidth, 40))
			return nil
		},
	}
	cmd.Flags().Float64Var(&in.Entry, "entry", 0, "entry price")
	cmd.Flags().Float64Var(&in.StopLoss, "stop", 0, "stop-loss price")
	cmd.Flags().Float64Var(&in.Target, "target", 0, "target price")
	cmd.Flags().Float64Var(&in.RiskAmount, "risk", 0, "amount to risk")
	cmd.Flags().Float64Var(&in.AccountBalance, "balance", 0, "account balance (default the initial balance)")
	return cmd
}

// riskBar draws the risk and reward shares of a width-character bar.
func riskBar(output *Output, riskPct, rewardPct float64, width int) string {
	risk := int(riskPct/100*float64(width) + 0.5)
	risk = min(max(risk, 0), width)
	return output.Red(strings.Repeat("█", risk)) + output.Green(strings.Repeat("█", width-risk)) +
		fmt.Sprintf(" %s%% / %s%%", utils.FormatNumber(riskPct, 0), utils.FormatNumber(rewardPct, 0))
}
