package store

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"trading-journal/internal/models"
)

// SyncDataType represents the type of data being synced.
type SyncDataType string

// SyncTypeTrades tracks the trade collection. Settings are local-only and
// never synced.
const SyncTypeTrades SyncDataType = "trades"

// SyncStatus represents the current sync status.
type SyncStatus struct {
	DataType     SyncDataType `json:"dataType"`
	LastSync     time.Time    `json:"lastSync"`
	IsStale      bool         `json:"isStale"`
	StaleMinutes int          `json:"staleMinutes"`
}

// DataFreshness represents the freshness of the local mirror.
type DataFreshness struct {
	DataType    SyncDataType
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// SyncConfig holds configuration for the sync manager.
type SyncConfig struct {
	// StaleThresholds defines how old data can be before it's considered stale (in minutes)
	StaleThresholds map[SyncDataType]int
}

// DefaultSyncConfig returns default sync configuration.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		StaleThresholds: map[SyncDataType]int{
			SyncTypeTrades: 60, // 1 hour
		},
	}
}

// SyncManager tracks when the local mirror last matched the remote store.
type SyncManager struct {
	store  DataStore
	config *SyncConfig
	now    func() time.Time
}

// NewSyncManager creates a new sync manager.
func NewSyncManager(store DataStore, config *SyncConfig) *SyncManager {
	if config == nil {
		config = DefaultSyncConfig()
	}
	return &SyncManager{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// GetDataFreshness returns the freshness of a data type.
func (sm *SyncManager) GetDataFreshness(dataType SyncDataType) *DataFreshness {
	lastSync := sm.store.GetLastSync(string(dataType))
	threshold := time.Duration(sm.config.StaleThresholds[dataType]) * time.Minute

	freshness := &DataFreshness{
		DataType:    dataType,
		LastUpdated: lastSync,
	}
	if lastSync.IsZero() {
		return freshness
	}

	freshness.Age = sm.now().Sub(lastSync)
	freshness.IsFresh = threshold <= 0 || freshness.Age <= threshold
	return freshness
}

// IsDataStale reports whether a data type has never synced or is older than
// its threshold.
func (sm *SyncManager) IsDataStale(dataType SyncDataType) bool {
	return !sm.GetDataFreshness(dataType).IsFresh
}

// MarkSynced records a successful sync.
func (sm *SyncManager) MarkSynced(dataType SyncDataType) error {
	if err := sm.store.SetLastSync(string(dataType), sm.now()); err != nil {
		return fmt.Errorf("failed to mark %s synced: %w", dataType, err)
	}
	return nil
}

// GetSyncStatus returns the sync status of a data type.
func (sm *SyncManager) GetSyncStatus(dataType SyncDataType) *SyncStatus {
	freshness := sm.GetDataFreshness(dataType)
	return &SyncStatus{
		DataType:     dataType,
		LastSync:     freshness.LastUpdated,
		IsStale:      !freshness.IsFresh,
		StaleMinutes: int(freshness.Age.Minutes()),
	}
}

// GetAllSyncStatus returns the status of every tracked data type.
func (sm *SyncManager) GetAllSyncStatus() []*SyncStatus {
	types := make([]SyncDataType, 0, len(sm.config.StaleThresholds))
	for dt := range sm.config.StaleThresholds {
		types = append(types, dt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	statuses := make([]*SyncStatus, 0, len(types))
	for _, dt := range types {
		statuses = append(statuses, sm.GetSyncStatus(dt))
	}
	return statuses
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(freshness *DataFreshness) string {
	if freshness.LastUpdated.IsZero() {
		return "Never synced"
	}

	age := freshness.Age
	var ageStr string

	switch {
	case age < time.Minute:
		ageStr = "just now"
	case age < time.Hour:
		ageStr = fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		ageStr = fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		ageStr = fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}

	if freshness.IsFresh {
		return fmt.Sprintf("Updated %s", ageStr)
	}
	return fmt.Sprintf("⚠️ Stale data - Updated %s", ageStr)
}

// FormatSyncStatus returns a human-readable sync status string.
func FormatSyncStatus(status *SyncStatus) string {
	if status.LastSync.IsZero() {
		return fmt.Sprintf("%s: Never synced", status.DataType)
	}

	timeStr := status.LastSync.Local().Format("2006-01-02 15:04:05")
	if status.IsStale {
		return fmt.Sprintf("%s: ⚠️ Stale (last sync: %s, %d min ago)", status.DataType, timeStr, status.StaleMinutes)
	}
	return fmt.Sprintf("%s: ✓ Fresh (last sync: %s)", status.DataType, timeStr)
}

// TradeReconciliation compares the local mirror with the remote store.
type TradeReconciliation struct {
	LocalOnly  []models.Trade  // never reached the remote, e.g. written while offline
	RemoteOnly []models.Trade  // created on another device
	Conflicts  []TradeConflict // same id, different content
	Matched    int
}

// TradeConflict represents a conflict between local and remote data.
type TradeConflict struct {
	Local       models.Trade
	Remote      models.Trade
	Differences []string
}

// ReconcileTrades matches local and remote trades by id.
func ReconcileTrades(local, remote []models.Trade) *TradeReconciliation {
	result := &TradeReconciliation{}

	remoteByID := make(map[string]models.Trade, len(remote))
	for _, t := range remote {
		remoteByID[t.ID] = t
	}
	localIDs := make(map[string]bool, len(local))

	for _, lt := range local {
		localIDs[lt.ID] = true
		rt, ok := remoteByID[lt.ID]
		if !ok {
			result.LocalOnly = append(result.LocalOnly, lt)
			continue
		}
		if diffs := findConflicts(lt, rt); len(diffs) > 0 {
			result.Conflicts = append(result.Conflicts, TradeConflict{Local: lt, Remote: rt, Differences: diffs})
			continue
		}
		result.Matched++
	}

	for _, rt := range remote {
		if !localIDs[rt.ID] {
			result.RemoteOnly = append(result.RemoteOnly, rt)
		}
	}

	return result
}

func findConflicts(local, remote models.Trade) []string {
	var diffs []string
	if local.Symbol != remote.Symbol {
		diffs = append(diffs, fmt.Sprintf("symbol: local=%s, remote=%s", local.Symbol, remote.Symbol))
	}
	if local.Date != remote.Date {
		diffs = append(diffs, fmt.Sprintf("date: local=%s, remote=%s", local.Date, remote.Date))
	}
	if local.PnL != remote.PnL {
		diffs = append(diffs, fmt.Sprintf("pnl: local=%.2f, remote=%.2f", local.PnL, remote.PnL))
	}
	if local.IsFavorite != remote.IsFavorite {
		diffs = append(diffs, fmt.Sprintf("favorite: local=%t, remote=%t", local.IsFavorite, remote.IsFavorite))
	}
	if len(diffs) == 0 && !reflect.DeepEqual(stripTime(local), stripTime(remote)) {
		diffs = append(diffs, "details differ")
	}
	return diffs
}

// stripTime drops CreatedAt, whose precision differs between stores.
func stripTime(t models.Trade) models.Trade {
	t.CreatedAt = time.Time{}
	return t
}
