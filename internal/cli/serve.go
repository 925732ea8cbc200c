package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trading-journal/internal/api"
	"trading-journal/internal/coach"
	"trading-journal/internal/extract"
)

func newServeCmd(app *App) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal API on localhost",
		Long: `Start the HTTP API used by the web dashboard. Screenshot extraction and the
coach are enabled when an OpenAI API key is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = app.Config.Server.Port
			}

			var (
				extractor extract.Extractor
				c         *coach.Coach
			)
			if app.Config.HasOpenAIKey() {
				if extractor, err = app.Extractor(); err != nil {
					return err
				}
				if c, err = app.Coach(); err != nil {
					return err
				}
			} else {
				app.Logger.Warn().Msg("OpenAI API key not configured, extraction and coach disabled")
			}

			server := api.New(api.Config{
				Port:      port,
				Log:       app.Logger,
				Journal:   svc,
				Extractor: extractor,
				Coach:     c,
				DevMode:   app.Config.Server.DevMode,
			})

			output := NewOutput(cmd)
			output.Success("✓ Journal API listening on http://127.0.0.1:%d", port)
			output.Dim("Press Ctrl+C to stop")

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			output.Println()
			output.Info("Server stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (default from config)")
	return cmd
}
