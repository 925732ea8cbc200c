package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/config"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/store"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the configuration files.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				redacted := *app.Config
				redacted.Credentials = config.Credentials{}
				return output.JSON(redacted)
			}
			showConfig(output, app)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, app *App) {
	cfg := app.Config
	output.KeyValues("Journal", [][2]string{
		{"Initial balance", output.WithCurrency(cfg.Journal.Currency).Money(cfg.Journal.InitialBalance)},
		{"Currency", cfg.Journal.Currency},
		{"Default timeframe", cfg.Journal.DefaultTimeframe},
		{"Default strategy", cfg.Journal.DefaultStrategy},
		{"Recent trades", strconv.Itoa(cfg.Journal.RecentLimit)},
	})
	output.Println()
	output.KeyValues("Analytics", [][2]string{
		{"Week numbering", string(cfg.WeekScheme())},
		{"Top/bottom trades", strconv.Itoa(cfg.Analytics.TopN)},
		{"Monthly window", strconv.Itoa(cfg.Analytics.MonthlyWindow)},
	})
	output.Println()
	output.KeyValues("Storage", [][2]string{{"Database", cfg.Storage.DBPath}})
	output.Println()
	output.KeyValues("Server", [][2]string{
		{"Port", strconv.Itoa(cfg.Server.Port)},
		{"Dev mode", strconv.FormatBool(cfg.Server.DevMode)},
	})
	output.Println()

	key := output.Red("not configured")
	if cfg.HasOpenAIKey() {
		key = output.Green("configured")
	}
	output.KeyValues("AI", [][2]string{
		{"Model", cfg.AI.Model},
		{"Vision model", cfg.AI.VisionModel},
		{"Max retries", strconv.Itoa(cfg.AI.MaxRetries)},
		{"OpenAI key", key},
	})
}

// newSettingsCmd manages the settings stored with the journal, which take
// precedence over the config file defaults.
func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change journal settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"initialBalance": svc.InitialBalance(),
					"currency":       svc.Currency(),
				})
			}
			output.KeyValues("Settings", [][2]string{
				{"Initial balance", output.Money(svc.InitialBalance())},
				{"Currency", svc.Currency()},
			})
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "balance <amount>",
		Short:   "Set the initial account balance",
		Example: "  journal settings balance 25000",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return apperrors.NewValidationError("balance", args[0], "not a number")
			}
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			output := NewOutput(cmd).WithCurrency(svc.Currency())
			if err := svc.SetInitialBalance(ctx, v); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]float64{"initialBalance": v})
			}
			output.Success("✓ Initial balance set to %s", output.Money(v))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "currency <code>",
		Short:   "Set the display currency (USD, EUR, JPY, GBP, INR, AUD, CAD)",
		Example: "  journal settings currency EUR",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			if err := svc.SetCurrency(ctx, args[0]); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"currency": svc.Currency()})
			}
			output.Success("✓ Currency set to %s", svc.Currency())
			return nil
		},
	})

	return cmd
}

func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Local mirror status",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show when the journal was last synced",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd, 30*time.Second)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			statuses := svc.SyncStatus()
			health, hasRemote := svc.RemoteHealth()
			output := NewOutput(cmd)
			if output.IsJSON() {
				out := map[string]interface{}{"local": statuses}
				if hasRemote {
					out["remote"] = health
				}
				return output.JSON(out)
			}
			output.Bold("Sync Status")
			for _, s := range statuses {
				output.Printf("  %s\n", store.FormatSyncStatus(s))
			}
			if len(statuses) == 0 {
				output.Dim("  Not syncing (no remote store)")
			}
			if hasRemote {
				output.Printf("  Remote store: %s (%d calls, %.0f%% failed)\n", health.State, health.Calls, health.FailureRate())
			} else {
				output.Dim("  Remote store: not configured")
			}
			output.Println()
			output.Dim("Database: %s", app.Config.Storage.DBPath)
			return nil
		},
	})
	return cmd
}
