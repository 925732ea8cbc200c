// Package journal owns the user's trade collection: the canonical in-memory
// TradeStore and the Service that persists mutations and serves statistics.
package journal

import (
	"fmt"
	"sync"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
)

// TradeStore holds trades in canonical order (date, then id). It is safe for
// concurrent use.
type TradeStore struct {
	mu      sync.RWMutex
	trades  []models.Trade
	ids     map[string]struct{}
	version uint64
}

// NewTradeStore creates an empty store.
func NewTradeStore() *TradeStore {
	return &TradeStore{ids: make(map[string]struct{})}
}

// Add validates t and inserts it in canonical position.
func (s *TradeStore) Add(t models.Trade) error {
	if err := Validate(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[t.ID]; ok {
		return fmt.Errorf("trade %s: %w", t.ID, apperrors.ErrDuplicateTrade)
	}
	s.ids[t.ID] = struct{}{}
	s.trades = append(s.trades, t)
	analytics.SortCanonical(s.trades)
	s.version++
	return nil
}

// Remove deletes the trade with the given id.
func (s *TradeStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("trade %s: %w", id, apperrors.ErrTradeNotFound)
	}
	s.trades = append(s.trades[:i], s.trades[i+1:]...)
	delete(s.ids, id)
	s.version++
	return nil
}

// Update replaces the trade with t's id.
func (s *TradeStore) Update(t models.Trade) error {
	if err := Validate(t); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(t.ID)
	if i < 0 {
		return fmt.Errorf("trade %s: %w", t.ID, apperrors.ErrTradeNotFound)
	}
	s.trades[i] = t
	analytics.SortCanonical(s.trades)
	s.version++
	return nil
}

// ToggleFavorite flips the favorite flag and returns the updated trade.
func (s *TradeStore) ToggleFavorite(id string) (models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Trade{}, fmt.Errorf("trade %s: %w", id, apperrors.ErrTradeNotFound)
	}
	s.trades[i].IsFavorite = !s.trades[i].IsFavorite
	s.version++
	return s.trades[i], nil
}

// Replace loads a snapshot. When ids repeat the last occurrence wins.
// Loaded trades are not validated: stored data is taken as it is and
// malformed dates are handled by the analytics.
func (s *TradeStore) Replace(trades []models.Trade) {
	pos := make(map[string]int, len(trades))
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if i, ok := pos[t.ID]; ok {
			out[i] = t
			continue
		}
		pos[t.ID] = len(out)
		out = append(out, t)
	}
	analytics.SortCanonical(out)

	ids := make(map[string]struct{}, len(out))
	for _, t := range out {
		ids[t.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = out
	s.ids = ids
	s.version++
}

// Get returns the trade with the given id.
func (s *TradeStore) Get(id string) (models.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Trade{}, false
	}
	return s.trades[i], true
}

// Snapshot returns a copy of every trade in canonical order.
func (s *TradeStore) Snapshot() []models.Trade {
	trades, _ := s.SnapshotVersion()
	return trades
}

// SnapshotVersion returns a snapshot together with the version it reflects.
func (s *TradeStore) SnapshotVersion() ([]models.Trade, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trade, len(s.trades))
	copy(out, s.trades)
	return out, s.version
}

// Recent returns up to limit trades, newest first.
func (s *TradeStore) Recent(limit int) []models.Trade {
	return analytics.Recent(s.Snapshot(), limit)
}

// Favorites returns the favorite trades in canonical order.
func (s *TradeStore) Favorites() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Trade
	for _, t := range s.trades {
		if t.IsFavorite {
			out = append(out, t)
		}
	}
	return out
}

// Strategies returns the distinct strategy keys in first-seen order.
func (s *TradeStore) Strategies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	seen := make(map[string]bool)
	for _, t := range s.trades {
		key := t.StrategyKey()
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// Len returns the number of trades.
func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trades)
}

// Version returns a counter that changes on every mutation.
func (s *TradeStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *TradeStore) indexOf(id string) int {
	if _, ok := s.ids[id]; !ok {
		return -1
	}
	for i := range s.trades {
		if s.trades[i].ID == id {
			return i
		}
	}
	return -1
}
