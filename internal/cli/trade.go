package cli

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/journal"
	"trading-journal/internal/models"
)

// addTradeCommands adds trade management commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"t"},
		Short:   "Record and manage trades",
		Long:    "Add, list, edit, delete and favorite the trades in your journal.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeEditCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeFavoriteCmd(app))

	rootCmd.AddCommand(cmd)
}

// tradeFlags maps command-line flags onto a TradeInput.
type tradeFlags struct {
	symbol, date, entry, exit, qty, direction string
	pnl, result, currency, strategy, style    string
	mental, note                              string
	favorite                                  bool
}

func (f *tradeFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.symbol, "symbol", "s", "", "instrument symbol")
	fl.StringVarP(&f.date, "date", "d", "", "close date YYYY-MM-DD (default today)")
	fl.StringVar(&f.entry, "entry", "", "entry price")
	fl.StringVar(&f.exit, "exit", "", "exit price")
	fl.StringVarP(&f.qty, "qty", "q", "", "quantity (default 1)")
	fl.StringVarP(&f.direction, "type", "t", "", "Long or Short (default Long)")
	fl.StringVar(&f.pnl, "pnl", "", "P&L amount, overrides the price-derived P&L")
	fl.StringVar(&f.result, "result", "", "Profit or Loss; makes --pnl an absolute amount")
	fl.StringVar(&f.currency, "currency", "", "currency code (default the journal currency)")
	fl.StringVar(&f.strategy, "strategy", "", "strategy name")
	fl.StringVar(&f.style, "style", "", "trading style, e.g. Scalp or Swing")
	fl.StringVar(&f.mental, "mental", "", "mental state")
	fl.StringVarP(&f.note, "note", "n", "", "free-form note")
	fl.BoolVar(&f.favorite, "favorite", false, "mark as favorite")
}

// apply copies the flags the user set onto in.
func (f *tradeFlags) apply(cmd *cobra.Command, in *journal.TradeInput) {
	changed := cmd.Flags().Changed
	set := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	set("symbol", &in.Symbol, f.symbol)
	set("date", &in.Date, f.date)
	set("entry", &in.EntryPrice, f.entry)
	set("exit", &in.ExitPrice, f.exit)
	set("qty", &in.Quantity, f.qty)
	set("type", &in.Direction, f.direction)
	set("pnl", &in.PnLAmount, f.pnl)
	set("result", &in.ResultType, f.result)
	set("currency", &in.Currency, f.currency)
	set("strategy", &in.Strategy, f.strategy)
	set("style", &in.Style, f.style)
	set("mental", &in.MentalState, f.mental)
	set("note", &in.Note, f.note)
	if changed("favorite") {
		in.IsFavorite = f.favorite
	}

	// New prices replace a manual P&L unless one is given too.
	if (changed("entry") || changed("exit") || changed("qty") || changed("type")) && !changed("pnl") {
		in.PnLAmount = ""
		in.ResultType = ""
	}
}

func newTradeAddCmd(app *App) *cobra.Command {
	var f tradeFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a trade",
		Long:  "Record a closed trade. The P&L is derived from the prices unless --pnl is given.",
		Example: `  journal trade add -s AAPL --entry 182.5 --exit 189 -q 10 --strategy Breakout
  journal trade add -s BTCUSDT -t Short --entry 64000 --exit 65000 -q 0.1
  journal trade add -s EURUSD --pnl 120 --result Loss --note "chased the news"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}

			var in journal.TradeInput
			f.apply(cmd, &in)
			t, err := svc.CreateTrade(ctx, in)
			return reportTradeChange(NewOutput(cmd).WithCurrency(svc.Currency()), t, err, "Added")
		},
	}
	f.bind(cmd)
	return cmd
}

func newTradeEditCmd(app *App) *cobra.Command {
	var f tradeFlags
	cmd := &cobra.Command{
		Use:     "edit <id>",
		Short:   "Edit a trade",
		Long:    "Change fields of a recorded trade. Only the flags you pass are changed.",
		Example: `  journal trade edit 9f1c2ab4 --exit 191.2 --note "trailed the stop"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			old, err := findTrade(svc, args[0])
			if err != nil {
				return err
			}

			in := journal.InputFor(old)
			f.apply(cmd, &in)
			t, err := journal.NewTrade(in, old.CreatedAt)
			if err != nil {
				return err
			}
			t.ID = old.ID

			err = svc.UpdateTrade(ctx, t)
			return reportTradeChange(NewOutput(cmd).WithCurrency(svc.Currency()), t, err, "Updated")
		},
	}
	f.bind(cmd)
	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	var (
		limit     int
		favorites bool
		strategy  string
		symbol    string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades, newest first",
		Example: `  journal trade list
  journal trade list --limit 10 --strategy Breakout
  journal trade list --favorites`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}

			trades := svc.Recent(0)
			filtered := trades[:0:0]
			for _, t := range trades {
				if favorites && !t.IsFavorite {
					continue
				}
				if strategy != "" && strategy != models.AllStrategies && t.Strategy != strategy {
					continue
				}
				if symbol != "" && !strings.EqualFold(t.Symbol, symbol) {
					continue
				}
				filtered = append(filtered, t)
				if limit > 0 && len(filtered) == limit {
					break
				}
			}

			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(filtered)
			}
			if len(filtered) == 0 {
				output.Info("No trades found.")
				return nil
			}
			printTradeTable(output, filtered)
			output.Dim("%d of %d trades", len(filtered), len(trades))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "show at most this many trades")
	cmd.Flags().BoolVarP(&favorites, "favorites", "f", false, "only favorite trades")
	cmd.Flags().StringVar(&strategy, "strategy", "", "only trades of this strategy")
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "only trades of this symbol")
	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			t, err := findTrade(svc, args[0])
			if err != nil {
				return err
			}

			output := NewOutput(cmd).WithCurrency(t.Currency)
			if output.IsJSON() {
				return output.JSON(t)
			}
			printTrade(output, t)
			return nil
		},
	}
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a trade",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			t, err := findTrade(svc, args[0])
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			if err := svc.DeleteTrade(ctx, t.ID); err != nil && !warnPersistence(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": t.ID, "deleted": true})
			}
			output.Success("✓ Deleted %s %s (%s)", t.Symbol, t.Date, shortID(t.ID))
			return nil
		},
	}
}

func newTradeFavoriteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "favorite <id>",
		Aliases: []string{"fav"},
		Short:   "Toggle a trade's favorite flag",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			t, err := findTrade(svc, args[0])
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			fav, err := svc.ToggleFavorite(ctx, t.ID)
			if err != nil && !warnPersistence(output, err) {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": t.ID, "isFavorite": fav})
			}
			if fav {
				output.Success("★ %s %s marked as favorite", t.Symbol, t.Date)
			} else {
				output.Success("☆ %s %s removed from favorites", t.Symbol, t.Date)
			}
			return nil
		},
	}
}

// findTrade resolves a full id, or a unique id prefix or suffix such as
// the short id shown by trade list.
func findTrade(svc *journal.Service, id string) (models.Trade, error) {
	if t, err := svc.Trade(id); err == nil {
		return t, nil
	}
	var match []models.Trade
	for _, t := range svc.Trades() {
		if strings.HasPrefix(t.ID, id) || strings.HasSuffix(t.ID, id) {
			match = append(match, t)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return models.Trade{}, apperrors.Wrapf(apperrors.ErrTradeNotFound, "trade %s", id)
	default:
		return models.Trade{}, apperrors.NewValidationError("id", id, "matches "+strconv.Itoa(len(match))+" trades")
	}
}

// warnPersistence prints write-back failures and reports whether err was one.
func warnPersistence(output *Output, err error) bool {
	var pe *apperrors.PersistenceError
	if !errors.As(err, &pe) {
		return false
	}
	output.Warning("⚠️ Saved in memory only: %v", pe.Err)
	return true
}

func reportTradeChange(output *Output, t models.Trade, err error, verb string) error {
	if err != nil && !warnPersistence(output, err) {
		return err
	}
	if output.IsJSON() {
		return output.JSON(t)
	}
	output.Success("✓ %s %s %s %s", verb, t.Symbol, t.Date, output.PnL(t.PnL))
	output.Dim("  id %s", t.ID)
	return nil
}

func printTradeTable(output *Output, trades []models.Trade) {
	table := NewTable(output, "ID", "Date", "Symbol", "Type", "Strategy", "P&L", "")
	for _, t := range trades {
		table.AddRow(
			shortID(t.ID),
			t.Date,
			t.Symbol,
			string(t.Direction),
			TruncateString(t.StrategyKey(), 16),
			output.WithCurrency(currencyOr(t.Currency, output.currency)).PnL(t.PnL),
			favoriteMark(t.IsFavorite),
		)
	}
	table.Render()
}

func printTrade(output *Output, t models.Trade) {
	pairs := [][2]string{
		{"ID", t.ID},
		{"Date", t.Date},
		{"Direction", string(t.Direction)},
	}
	if t.EntryPrice > 0 || t.ExitPrice > 0 {
		pairs = append(pairs,
			[2]string{"Entry", strconv.FormatFloat(t.EntryPrice, 'f', -1, 64)},
			[2]string{"Exit", strconv.FormatFloat(t.ExitPrice, 'f', -1, 64)},
			[2]string{"Quantity", strconv.FormatFloat(t.Quantity, 'f', -1, 64)},
		)
	}
	pnl := output.PnL(t.PnL)
	if t.PnLOverride {
		pnl += output.DimText(" (manual)")
	}
	pairs = append(pairs,
		[2]string{"P&L", pnl},
		[2]string{"Strategy", t.StrategyKey()},
	)
	for _, kv := range [][2]string{{"Style", t.Style}, {"Mental state", t.MentalState}, {"Note", t.Note}} {
		if kv[1] != "" {
			pairs = append(pairs, kv)
		}
	}
	if t.Screenshot != "" {
		pairs = append(pairs, [2]string{"Screenshot", "attached"})
	}
	output.KeyValues(strings.TrimSpace(t.Symbol+" "+favoriteMark(t.IsFavorite)), pairs)
}

// shortID keeps the random tail of a time-ordered id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func currencyOr(code, def string) string {
	if code == "" {
		return def
	}
	return code
}
