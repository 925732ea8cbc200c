package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"trading-journal/pkg/utils"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer   io.Writer
	jsonMode bool
	currency string

	green, red, yellow, cyan, bold, dim *color.Color
}

// NewOutput creates a new Output instance. Colors follow color.NoColor,
// which is set for non-terminals and by --no-color.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	o := &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
		currency: utils.DefaultCurrency,
		green:    color.New(color.FgGreen),
		red:      color.New(color.FgRed),
		yellow:   color.New(color.FgYellow),
		cyan:     color.New(color.FgCyan),
		bold:     color.New(color.Bold),
		dim:      color.New(color.Faint),
	}
	if jsonMode {
		for _, c := range []*color.Color{o.green, o.red, o.yellow, o.cyan, o.bold, o.dim} {
			c.DisableColor()
		}
	}
	return o
}

// WithCurrency returns a copy of o that formats money in code.
func (o *Output) WithCurrency(code string) *Output {
	c := *o
	c.currency = code
	return &c
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.line(o.green, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.line(o.red, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.line(o.yellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.line(o.cyan, format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.line(o.bold, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.line(o.dim, format, args...)
}

func (o *Output) line(c *color.Color, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, c.Sprintf(format, args...))
}

// Green returns green colored text.
func (o *Output) Green(text string) string { return o.green.Sprint(text) }

// Red returns red colored text.
func (o *Output) Red(text string) string { return o.red.Sprint(text) }

// Yellow returns yellow colored text.
func (o *Output) Yellow(text string) string { return o.yellow.Sprint(text) }

// DimText returns dimmed text.
func (o *Output) DimText(text string) string { return o.dim.Sprint(text) }

// Money formats an amount in the output currency.
func (o *Output) Money(amount float64) string {
	return utils.FormatMoney(utils.CurrencySymbol(o.currency), amount, 2)
}

// PnL formats a signed amount, green for gains and red for losses.
func (o *Output) PnL(pnl float64) string {
	formatted := utils.FormatSignedMoney(utils.CurrencySymbol(o.currency), pnl, 2)
	return o.signColor(pnl, formatted)
}

// Percent formats a signed percentage with P&L colors.
func (o *Output) Percent(pct float64) string {
	return o.signColor(pct, utils.FormatPercent(pct))
}

func (o *Output) signColor(v float64, s string) string {
	switch {
	case v > 0:
		return o.Green(s)
	case v < 0:
		return o.Red(s)
	default:
		return s
	}
}

// Table collects rows and renders them with tablewriter.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a new table.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{headers: headers, output: output}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}
	table := tablewriter.NewWriter(t.output.writer)
	table.Header(toAny(t.headers)...)
	for _, row := range t.rows {
		_ = table.Append(toAny(row)...)
	}
	_ = table.Render()
}

func toAny(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// KeyValues prints aligned "label: value" lines under a bold title.
func (o *Output) KeyValues(title string, pairs [][2]string) {
	if title != "" {
		o.Bold(title)
	}
	width := 0
	for _, p := range pairs {
		width = max(width, len(p[0]))
	}
	for _, p := range pairs {
		o.Printf("  %s%s  %s\n", p[0]+":", strings.Repeat(" ", width-len(p[0])), p[1])
	}
}
