package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trading Journal Configuration

[journal]
# Starting account balance used for drawdown and monthly ROI
initial_balance = 10000.0
# Display currency: USD, EUR, JPY, GBP, INR, AUD, CAD
currency = "USD"
# Default stats timeframe: daily, weekly, monthly, yearly, all
default_timeframe = "all"
# Default strategy filter ("All" disables filtering)
default_strategy = "All"
# Number of recent trades on the dashboard
recent_limit = 5

[analytics]
# Weekly bucket numbering: "sunday" (Sunday-start weeks from Jan 1) or "iso"
week_numbering = "sunday"
# Number of best and worst trades to rank
top_n = 5
# Months shown in the monthly ROI table (0 = all)
monthly_window = 0

[storage]
# Local mirror database (defaults to journal.db in this directory)
db_path = ""

[server]
# Port for "journal serve"
port = 8787
# Allow any origin and log every request
dev_mode = false

[ai]
# Model for the coach
model = "gpt-4o-mini"
# Model for screenshot extraction
vision_model = "gpt-4o"
# Retries for extraction requests
max_retries = 3

[logging]
level = "info"
console = true
file = true
# Defaults to logs/journal.log in this directory
file_path = ""
max_size = 20
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format for tables
date_format = "02 Jan 2006"
`

const credentialsTemplate = `# Trading Journal Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}
