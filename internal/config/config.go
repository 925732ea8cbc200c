// Package config provides configuration management for the trading journal.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

// AppName is used for the config directory and database file names.
const AppName = "trading-journal"

// Config holds all application configuration.
type Config struct {
	Journal     JournalConfig   `mapstructure:"journal"`
	Analytics   AnalyticsConfig `mapstructure:"analytics"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Server      ServerConfig    `mapstructure:"server"`
	AI          AIConfig        `mapstructure:"ai"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	UI          UIConfig        `mapstructure:"ui"`
	Credentials Credentials     `mapstructure:"-"` // Loaded separately
	Dir         string          `mapstructure:"-"`
}

// JournalConfig holds the journal defaults.
type JournalConfig struct {
	InitialBalance   float64 `mapstructure:"initial_balance"`
	Currency         string  `mapstructure:"currency"`
	DefaultTimeframe string  `mapstructure:"default_timeframe"`
	DefaultStrategy  string  `mapstructure:"default_strategy"`
	RecentLimit      int     `mapstructure:"recent_limit"`
}

// AnalyticsConfig holds statistics options.
type AnalyticsConfig struct {
	WeekNumbering string `mapstructure:"week_numbering"` // "sunday" or "iso"
	TopN          int    `mapstructure:"top_n"`
	MonthlyWindow int    `mapstructure:"monthly_window"`
}

// StorageConfig holds local mirror settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ServerConfig holds the local HTTP API settings.
type ServerConfig struct {
	Port    int  `mapstructure:"port"`
	DevMode bool `mapstructure:"dev_mode"`
}

// AIConfig holds OpenAI model settings.
type AIConfig struct {
	Model       string `mapstructure:"model"`
	VisionModel string `mapstructure:"vision_model"`
	MaxRetries  int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", AppName)
	}
	return filepath.Join(home, ".config", AppName)
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files
// are created from templates and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// .env values never override variables already set in the environment
	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// Apply environment variable overrides
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = filepath.Join(configDir, "journal.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "journal.log")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in defaults rooted at configDir.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{Dir: configDir}
	_ = v.Unmarshal(cfg)
	cfg.Storage.DBPath = filepath.Join(configDir, "journal.db")
	cfg.Logging.FilePath = filepath.Join(configDir, "logs", "journal.log")
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("journal.initial_balance", 10000.0)
	v.SetDefault("journal.currency", utils.DefaultCurrency)
	v.SetDefault("journal.default_timeframe", string(models.TimeframeAll))
	v.SetDefault("journal.default_strategy", models.AllStrategies)
	v.SetDefault("journal.recent_limit", 5)
	v.SetDefault("analytics.week_numbering", string(models.WeekSchemeSunday))
	v.SetDefault("analytics.top_n", 5)
	v.SetDefault("analytics.monthly_window", 0)
	v.SetDefault("storage.db_path", "")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.vision_model", "gpt-4o")
	v.SetDefault("ai.max_retries", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size", 20)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02 Jan 2006")
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Config file not found, create template and fall back to defaults
		if err := createTemplate(configDir, "config.toml", configTemplate, 0644); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Use restricted permissions for credentials file
		return createTemplate(configDir, "credentials.toml", credentialsTemplate, 0600)
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("JOURNAL_INITIAL_BALANCE"); v != "" {
		balance, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid JOURNAL_INITIAL_BALANCE %q: %w", v, err)
		}
		cfg.Journal.InitialBalance = balance
	}
	if v := os.Getenv("JOURNAL_CURRENCY"); v != "" {
		cfg.Journal.Currency = v
	}
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Journal.InitialBalance <= 0 {
		return fmt.Errorf("%w: initial_balance must be positive, got %v", apperrors.ErrConfigInvalid, c.Journal.InitialBalance)
	}
	if !utils.KnownCurrency(c.Journal.Currency) {
		return fmt.Errorf("%w: unsupported currency %q", apperrors.ErrConfigInvalid, c.Journal.Currency)
	}
	if _, err := models.ParseTimeframe(c.Journal.DefaultTimeframe); err != nil {
		return fmt.Errorf("%w: default_timeframe: %v", apperrors.ErrConfigInvalid, err)
	}
	if c.Journal.RecentLimit < 0 {
		return fmt.Errorf("%w: recent_limit must be non-negative", apperrors.ErrConfigInvalid)
	}
	if _, err := models.ParseWeekScheme(c.Analytics.WeekNumbering); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}
	if c.Analytics.TopN < 0 || c.Analytics.MonthlyWindow < 0 {
		return fmt.Errorf("%w: top_n and monthly_window must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port must be between 1 and 65535, got %d", apperrors.ErrConfigInvalid, c.Server.Port)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be non-negative", apperrors.ErrConfigInvalid)
	}
	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: unknown log level %q", apperrors.ErrConfigInvalid, c.Logging.Level)
	}
	return nil
}

// LogConfig converts the [logging] section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// WeekScheme returns the configured week numbering scheme.
func (c *Config) WeekScheme() models.WeekScheme {
	scheme, err := models.ParseWeekScheme(c.Analytics.WeekNumbering)
	if err != nil {
		return models.WeekSchemeSunday
	}
	return scheme
}

// DefaultTimeframe returns the configured default timeframe.
func (c *Config) DefaultTimeframe() models.Timeframe {
	tf, err := models.ParseTimeframe(c.Journal.DefaultTimeframe)
	if err != nil {
		return models.TimeframeAll
	}
	return tf
}

// HasOpenAIKey reports whether an OpenAI key is configured.
func (c *Config) HasOpenAIKey() bool {
	return c.Credentials.OpenAI.APIKey != ""
}
