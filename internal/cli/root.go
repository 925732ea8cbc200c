// Package cli provides the command-line interface for the trading journal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trading-journal/internal/coach"
	"trading-journal/internal/config"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/extract"
	"trading-journal/internal/journal"
	"trading-journal/internal/llm"
	"trading-journal/internal/logging"
	"trading-journal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies. The journal and the AI clients
// are created on first use so that config and version commands work without
// a database or an API key.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	journal   *journal.Service
	llm       *llm.OpenAIClient
	extractor extract.Extractor
	coach     *coach.Coach
}

// Execute runs the CLI with the process arguments. With a nil cfg the
// configuration is loaded from --config before any command runs.
func Execute(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	app := &App{Config: cfg, Logger: logger}
	return execute(ctx, app, newRootCmd(app))
}

// execute runs cmd and closes the journal even when the command fails;
// cobra skips post-run hooks after an error.
func execute(ctx context.Context, app *App, cmd *cobra.Command) (err error) {
	defer func() {
		err = errors.Join(err, app.Close())
	}()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trading journal with performance statistics",
		Long: `A trading journal that records closed trades and turns them into
performance statistics: win rate, P&L by strategy and symbol, drawdown,
profit factor, Sharpe ratio, monthly ROI and a daily heatmap.

Trades can be typed in or read from broker screenshots, and an AI coach
answers questions about your results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				dir, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor || !app.Config.UI.ColorEnabled {
				color.NoColor = true
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trading-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newSettingsCmd(app))
	rootCmd.AddCommand(newSyncCmd(app))
	addTradeCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addAICommands(rootCmd, app)
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

// Journal opens the local mirror and loads the journal on first use.
func (a *App) Journal(ctx context.Context) (*journal.Service, error) {
	if a.journal != nil {
		return a.journal, nil
	}

	db, err := store.NewSQLiteStore(a.Config.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	svc := journal.NewService(db, journal.Options{
		InitialBalance: a.Config.Journal.InitialBalance,
		Currency:       a.Config.Journal.Currency,
		WeekScheme:     a.Config.WeekScheme(),
		TopN:           a.Config.Analytics.TopN,
		RecentLimit:    a.Config.Journal.RecentLimit,
		MonthlyWindow:  a.Config.Analytics.MonthlyWindow,
		Logger:         a.Logger,
	})
	if err := svc.Load(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	a.journal = svc
	a.Logger.Debug().Str("db", a.Config.Storage.DBPath).Msg("Journal loaded")
	return svc, nil
}

func (a *App) client() (*llm.OpenAIClient, error) {
	if a.llm != nil {
		return a.llm, nil
	}
	if !a.Config.HasOpenAIKey() {
		return nil, fmt.Errorf("%w: OpenAI API key not configured: set OPENAI_API_KEY or add it to %s/credentials.toml", apperrors.ErrCredentialMissing, a.Config.Dir)
	}
	a.llm = llm.NewOpenAIClient(a.Config.Credentials.OpenAI.APIKey, a.Config.AI.Model, a.Config.AI.VisionModel, a.Logger)
	a.Logger.Debug().Str("model", a.Config.AI.Model).Msg("OpenAI client initialized")
	return a.llm, nil
}

// Extractor returns the screenshot extractor.
func (a *App) Extractor() (extract.Extractor, error) {
	if a.extractor != nil {
		return a.extractor, nil
	}
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	a.extractor = extract.NewOpenAIExtractor(c, a.Config.AI.MaxRetries, a.Logger)
	return a.extractor, nil
}

// Coach returns the AI coach.
func (a *App) Coach() (*coach.Coach, error) {
	if a.coach != nil {
		return a.coach, nil
	}
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	a.coach = coach.New(c, a.Logger)
	return a.coach, nil
}

// Close releases the journal database.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	err := a.journal.Close()
	a.journal = nil
	return err
}

func cmdContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Trading Journal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}
