package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/extract"
	"trading-journal/internal/journal"
	"trading-journal/internal/models"
)

// addAICommands adds the screenshot extraction and coaching commands.
func addAICommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExtractCmd(app))
	rootCmd.AddCommand(newCoachCmd(app))
}

func newExtractCmd(app *App) *cobra.Command {
	var (
		f    tradeFlags
		save bool
	)
	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Read a trade from a broker screenshot",
		Long: `Send a screenshot of a closed position to the vision model and show the
trade it read. Flags override what was read; --save records the trade.`,
		Example: `  journal extract ~/Desktop/position.png
  journal extract fill.jpg --strategy Breakout --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, mimeType, err := readImageFile(args[0])
			if err != nil {
				return err
			}
			extractor, err := app.Extractor()
			if err != nil {
				return err
			}

			ctx, cancel := cmdContext(cmd, 2*time.Minute)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			output := NewOutput(cmd).WithCurrency(svc.Currency())

			if !output.IsJSON() {
				output.Info("Reading %s...", args[0])
			}
			ext, err := extractor.Extract(ctx, image, mimeType)
			if err != nil {
				return err
			}

			draft := extract.MergeDraft(journal.TradeInput{
				Date:     models.DateOf(time.Now()).String(),
				Currency: svc.Currency(),
			}, ext)
			f.apply(cmd, &draft)

			if !save {
				if output.IsJSON() {
					return output.JSON(map[string]interface{}{"extraction": ext, "draft": draft})
				}
				printDraft(output, draft)
				output.Println()
				output.Dim("Run again with --save to record it.")
				return nil
			}

			t, err := svc.CreateTrade(ctx, draft)
			return reportTradeChange(output, t, err, "Added")
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "record the extracted trade")
	return cmd
}

func readImageFile(path string) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading screenshot: %w", err)
	}
	if info.Size() > extract.MaxImageSize {
		return nil, "", apperrors.NewValidationError("image", path, "larger than 10 MB")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading screenshot: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", apperrors.NewValidationError("image", path, "not an image ("+mimeType+")")
	}
	return data, mimeType, nil
}

func printDraft(output *Output, in journal.TradeInput) {
	pnl := in.PnLAmount
	if pnl != "" && in.ResultType != "" {
		pnl += " (" + in.ResultType + ")"
	}
	output.KeyValues("Extracted trade", [][2]string{
		{"Symbol", in.Symbol},
		{"Date", in.Date},
		{"Direction", in.Direction},
		{"Entry", in.EntryPrice},
		{"Exit", in.ExitPrice},
		{"Quantity", in.Quantity},
		{"P&L", pnl},
		{"Currency", in.Currency},
		{"Strategy", in.Strategy},
		{"Note", in.Note},
	})
}

func newCoachCmd(app *App) *cobra.Command {
	var (
		qf          queryFlags
		investigate bool
	)
	cmd := &cobra.Command{
		Use:   "coach <question>",
		Short: "Ask the AI coach about your results",
		Long: `Ask a question about your trading. The coach sees the statistics for the
selected timeframe and strategy. With --investigate it may also look up other
timeframes, strategies and recent trades before answering.`,
		Example: `  journal coach "Why am I losing money on Fridays?"
  journal coach -p monthly "How did this month go?"
  journal coach --investigate "Which strategy should I drop?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			tf, strategy, err := qf.resolve(app)
			if err != nil {
				return err
			}

			ctx, cancel := cmdContext(cmd, 3*time.Minute)
			defer cancel()
			svc, err := app.Journal(ctx)
			if err != nil {
				return err
			}
			c, err := app.Coach()
			if err != nil {
				return err
			}
			output := NewOutput(cmd)

			if investigate {
				cot, err := c.Investigate(ctx, question, svc)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(cot)
				}
				for _, call := range cot.ToolCalls {
					output.Dim("→ %s %s", call.ToolName, call.Arguments)
				}
				if len(cot.ToolCalls) > 0 {
					output.Println()
				}
				output.Println(cot.Response)
				return nil
			}

			answer, err := c.Ask(ctx, question, svc.Stats(svc.Query(tf, strategy)), svc.Currency())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"answer": answer})
			}
			output.Println(answer)
			return nil
		},
	}
	qf.bind(cmd)
	cmd.Flags().BoolVar(&investigate, "investigate", false, "let the coach query the journal with tools")
	return cmd
}
