// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trading-journal/internal/models"
)

// DataStore defines the interface for the local device mirror.
type DataStore interface {
	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ReplaceTrades(ctx context.Context, trades []models.Trade) error
	DeleteTrade(ctx context.Context, id string) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	GetTrades(ctx context.Context) ([]models.Trade, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// RemoteStore is the remote document store that holds the user's trades.
// The journal works without one; when configured it is the source of truth
// on load and receives every mutation.
type RemoteStore interface {
	ListTrades(ctx context.Context) ([]models.Trade, error)
	PutTrade(ctx context.Context, trade models.Trade) error
	DeleteTrade(ctx context.Context, id string) error
}

// Setting keys persisted in the settings table.
const (
	SettingInitialBalance = "initial_balance"
	SettingCurrency       = "currency"
)
