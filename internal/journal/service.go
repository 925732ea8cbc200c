package journal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/performance"
	"trading-journal/internal/resilience"
	"trading-journal/internal/store"
	"trading-journal/pkg/utils"
)

// Options configures a Service.
type Options struct {
	// Remote is the remote document store. Nil keeps the journal local.
	Remote store.RemoteStore
	// RemoteBreaker guards Remote; zero values take resilience defaults.
	RemoteBreaker resilience.Config
	// InitialBalance and Currency are used until settings are loaded.
	InitialBalance float64
	Currency       string
	WeekScheme     models.WeekScheme
	TopN           int
	RecentLimit    int
	MonthlyWindow  int
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Service applies mutations optimistically to the in-memory store and then
// writes them to the local mirror and the remote store. Write failures are
// returned as *errors.PersistenceError and never roll the mutation back.
type Service struct {
	trades *TradeStore
	local  store.DataStore
	remote *guardedRemote
	sync   *store.SyncManager
	cache  *performance.StatsCache
	logger zerolog.Logger
	now    func() time.Time

	weekScheme  models.WeekScheme
	topN        int
	recentLimit int
	monthly     int

	mu             sync.RWMutex
	initialBalance float64
	currency       string
}

// NewService creates a journal service. local may be nil for an in-memory
// journal.
func NewService(local store.DataStore, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = 10000
	}
	if !utils.KnownCurrency(opts.Currency) {
		opts.Currency = utils.DefaultCurrency
	}

	logger := opts.Logger.With().Str("component", "journal").Logger()
	s := &Service{
		trades:         NewTradeStore(),
		local:          local,
		cache:          performance.NewStatsCache(analytics.NewEngine(opts.Logger), 0),
		logger:         logger,
		now:            opts.Now,
		weekScheme:     opts.WeekScheme,
		topN:           opts.TopN,
		recentLimit:    opts.RecentLimit,
		monthly:        opts.MonthlyWindow,
		initialBalance: opts.InitialBalance,
		currency:       strings.ToUpper(opts.Currency),
	}
	if opts.Remote != nil {
		s.remote = newGuardedRemote(opts.Remote, opts.RemoteBreaker, logger)
		if local != nil {
			s.sync = store.NewSyncManager(local, nil)
		}
	}
	return s
}

// pushRetry retries pushing local-only trades on load. An open breaker ends
// the attempts at once.
var pushRetry = utils.RetryConfig{
	MaxAttempts:   3,
	InitialDelay:  200 * time.Millisecond,
	MaxDelay:      2 * time.Second,
	BackoffFactor: 2,
	Retryable: func(err error) bool {
		return !errors.Is(err, resilience.ErrOpen)
	},
}

// Load fills the store from the local mirror, then from the remote store when
// one is configured. The remote snapshot wins; trades that only exist locally
// are pushed to the remote. Remote failures keep the local snapshot.
func (s *Service) Load(ctx context.Context) error {
	var local []models.Trade
	if s.local != nil {
		var err error
		local, err = s.local.GetTrades(ctx)
		if err != nil {
			return fmt.Errorf("failed to load local trades: %w", err)
		}
		s.loadSettings(ctx)
	}
	s.trades.Replace(local)
	s.logger.Info().Int("trades", len(local)).Msg("Loaded local journal")

	if s.remote == nil {
		return nil
	}

	remote, err := s.remote.ListTrades(ctx)
	if err != nil {
		ev := s.logger.Warn().Err(err)
		if s.sync != nil && s.sync.IsDataStale(store.SyncTypeTrades) {
			ev = ev.Bool("stale", true).Str("freshness", store.FormatFreshness(s.sync.GetDataFreshness(store.SyncTypeTrades)))
		}
		ev.Msg("Remote store unavailable, using local journal")
		return nil
	}

	rec := store.ReconcileTrades(local, remote)
	merged := make([]models.Trade, 0, len(remote)+len(rec.LocalOnly))
	merged = append(merged, remote...)
	merged = append(merged, rec.LocalOnly...)
	s.trades.Replace(merged)

	for _, t := range rec.LocalOnly {
		if err := utils.Retry(ctx, pushRetry, func() error { return s.remote.PutTrade(ctx, t) }); err != nil {
			logger := logging.WithTradeID(s.logger, t.ID)
			logger.Warn().Err(err).Msg("Failed to push local trade to remote")
		}
	}
	if s.local != nil {
		if err := s.local.ReplaceTrades(ctx, s.trades.Snapshot()); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to mirror remote trades locally")
		} else if err := s.sync.MarkSynced(store.SyncTypeTrades); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to record sync time")
		}
	}

	s.logger.Info().
		Int("remote", len(remote)).
		Int("pushed", len(rec.LocalOnly)).
		Int("pulled", len(rec.RemoteOnly)).
		Int("conflicts", len(rec.Conflicts)).
		Msg("Synced journal with remote store")
	return nil
}

func (s *Service) loadSettings(ctx context.Context) {
	if v, err := s.local.GetSetting(ctx, store.SettingInitialBalance); err == nil {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
			s.mu.Lock()
			s.initialBalance = f
			s.mu.Unlock()
		} else {
			s.logger.Warn().Str("value", v).Msg("Ignoring stored initial balance")
		}
	}
	if v, err := s.local.GetSetting(ctx, store.SettingCurrency); err == nil && utils.KnownCurrency(v) {
		s.mu.Lock()
		s.currency = strings.ToUpper(v)
		s.mu.Unlock()
	}
}

// CreateTrade builds a trade from input and adds it.
func (s *Service) CreateTrade(ctx context.Context, in TradeInput) (models.Trade, error) {
	if strings.TrimSpace(in.Currency) == "" {
		in.Currency = s.Currency()
	}
	t, err := NewTrade(in, s.now())
	if err != nil {
		return models.Trade{}, err
	}
	return t, s.AddTrade(ctx, t)
}

// AddTrade adds t to the journal.
func (s *Service) AddTrade(ctx context.Context, t models.Trade) error {
	if t.Currency == "" {
		t.Currency = s.Currency()
	}
	if err := s.trades.Add(t); err != nil {
		return err
	}
	logging.LogTrade(s.logger, "add", t.ID, t.Symbol, t.PnL)
	return s.persist(ctx, "add", t)
}

// UpdateTrade replaces the stored trade with the same id.
func (s *Service) UpdateTrade(ctx context.Context, t models.Trade) error {
	if err := s.trades.Update(t); err != nil {
		return err
	}
	logging.LogTrade(s.logger, "update", t.ID, t.Symbol, t.PnL)
	return s.persist(ctx, "update", t)
}

// DeleteTrade removes the trade with the given id.
func (s *Service) DeleteTrade(ctx context.Context, id string) error {
	t, ok := s.trades.Get(id)
	if err := s.trades.Remove(id); err != nil {
		return err
	}
	if ok {
		logging.LogTrade(s.logger, "delete", id, t.Symbol, t.PnL)
	}

	var errs []error
	if s.local != nil {
		if err := s.local.DeleteTrade(ctx, id); err != nil && !errors.Is(err, apperrors.ErrTradeNotFound) {
			errs = append(errs, err)
		}
	}
	if s.remote != nil {
		if err := s.remote.DeleteTrade(ctx, id); err != nil {
			errs = append(errs, errors.Join(apperrors.ErrRemoteUnavailable, err))
		}
	}
	return s.persistenceError("delete", id, errs)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	t, err := s.trades.ToggleFavorite(id)
	if err != nil {
		return false, err
	}
	return t.IsFavorite, s.persist(ctx, "favorite", t)
}

func (s *Service) persist(ctx context.Context, op string, t models.Trade) error {
	var errs []error
	if s.local != nil {
		if err := s.local.SaveTrade(ctx, &t); err != nil {
			errs = append(errs, err)
		}
	}
	if s.remote != nil {
		if err := s.remote.PutTrade(ctx, t); err != nil {
			errs = append(errs, errors.Join(apperrors.ErrRemoteUnavailable, err))
		}
	}
	return s.persistenceError(op, t.ID, errs)
}

func (s *Service) persistenceError(op, id string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	err := apperrors.NewPersistenceError(op, id, errors.Join(errs...))
	logger := logging.WithOperation(logging.WithTradeID(s.logger, id), op)
	logger.Warn().Err(err).Msg("Trade change kept in memory but not persisted")
	return err
}

// Trade returns the trade with the given id.
func (s *Service) Trade(id string) (models.Trade, error) {
	t, ok := s.trades.Get(id)
	if !ok {
		return models.Trade{}, fmt.Errorf("trade %s: %w", id, apperrors.ErrTradeNotFound)
	}
	return t, nil
}

// Trades returns every trade in canonical order.
func (s *Service) Trades() []models.Trade { return s.trades.Snapshot() }

// Recent returns up to limit trades, newest first.
func (s *Service) Recent(limit int) []models.Trade { return s.trades.Recent(limit) }

// Favorites returns the favorite trades.
func (s *Service) Favorites() []models.Trade { return s.trades.Favorites() }

// Strategies returns the strategy selector options, starting with "All".
func (s *Service) Strategies() []string {
	return analytics.AvailableStrategies(s.trades.Snapshot())
}

// Query returns a stats query with the service defaults filled in.
func (s *Service) Query(timeframe models.Timeframe, strategy string) analytics.Query {
	return analytics.Query{
		Timeframe:      timeframe,
		Strategy:       strategy,
		Now:            s.now(),
		InitialBalance: s.InitialBalance(),
		WeekScheme:     s.weekScheme,
		TopN:           s.topN,
		RecentLimit:    s.recentLimit,
		MonthlyWindow:  s.monthly,
	}
}

// Stats computes performance statistics for q. Zero fields of q take the
// service defaults. Results are memoized per trade version.
func (s *Service) Stats(q analytics.Query) models.PerformanceStats {
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	if q.InitialBalance == 0 {
		q.InitialBalance = s.InitialBalance()
	}
	if q.WeekScheme == "" {
		q.WeekScheme = s.weekScheme
	}
	if q.TopN == 0 {
		q.TopN = s.topN
	}
	if q.RecentLimit == 0 {
		q.RecentLimit = s.recentLimit
	}

	start := time.Now()
	stats := s.cache.Stats(s.trades, q)
	logging.LogStats(s.logger, string(stats.Timeframe), stats.Strategy, stats.FilteredTrades, time.Since(start))
	return stats
}

// Heatmap returns the daily P&L heatmap for the current month.
func (s *Service) Heatmap() models.Heatmap {
	return analytics.DailyHeatmap(s.trades.Snapshot(), s.now())
}

// SyncStatus reports how fresh the local mirror is.
func (s *Service) SyncStatus() []*store.SyncStatus {
	if s.sync == nil {
		return nil
	}
	return s.sync.GetAllSyncStatus()
}

// RemoteHealth returns the remote store's circuit breaker counters. It
// reports false when the journal has no remote store.
func (s *Service) RemoteHealth() (resilience.Stats, bool) {
	if s.remote == nil {
		return resilience.Stats{}, false
	}
	return s.remote.breaker.Stats(), true
}

// InitialBalance returns the starting balance used by the statistics.
func (s *Service) InitialBalance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialBalance
}

// SetInitialBalance changes and persists the starting balance.
func (s *Service) SetInitialBalance(ctx context.Context, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return apperrors.NewValidationError("initialBalance", v, "must be a positive number")
	}
	s.mu.Lock()
	s.initialBalance = v
	s.mu.Unlock()

	return s.saveSetting(ctx, store.SettingInitialBalance, strconv.FormatFloat(v, 'f', -1, 64))
}

// Currency returns the display currency code.
func (s *Service) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// SetCurrency changes and persists the display currency.
func (s *Service) SetCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !utils.KnownCurrency(code) {
		return apperrors.NewValidationError("currency", code, "unsupported currency")
	}
	s.mu.Lock()
	s.currency = code
	s.mu.Unlock()

	return s.saveSetting(ctx, store.SettingCurrency, code)
}

func (s *Service) saveSetting(ctx context.Context, key, value string) error {
	if s.local == nil {
		return nil
	}
	if err := s.local.SetSetting(ctx, key, value); err != nil {
		return apperrors.NewPersistenceError("setting", key, err)
	}
	return nil
}

// Close releases the local mirror.
func (s *Service) Close() error {
	cs := s.cache.CacheStats()
	s.logger.Debug().
		Uint64("hits", cs.Hits).
		Uint64("misses", cs.Misses).
		Int("entries", cs.Entries).
		Msg("Stats cache")
	if s.local == nil {
		return nil
	}
	return s.local.Close()
}
