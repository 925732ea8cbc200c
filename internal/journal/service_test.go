package journal

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/analytics"
	apperrors "trading-journal/internal/errors"
	"trading-journal/internal/models"
	"trading-journal/internal/resilience"
	"trading-journal/internal/store"
)

// fakeRemote is an in-memory RemoteStore that can be switched offline.
type fakeRemote struct {
	mu       sync.Mutex
	trades   map[string]models.Trade
	offline  bool
	failPuts int
	puts     int
	attempts int
}

func newFakeRemote(trades ...models.Trade) *fakeRemote {
	r := &fakeRemote{trades: make(map[string]models.Trade)}
	for _, t := range trades {
		r.trades[t.ID] = t
	}
	return r
}

var errOffline = errors.New("network unreachable")

func (r *fakeRemote) ListTrades(ctx context.Context) ([]models.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return nil, errOffline
	}
	out := make([]models.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeRemote) PutTrade(ctx context.Context, t models.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	if r.offline {
		return errOffline
	}
	if r.failPuts > 0 {
		r.failPuts--
		return errOffline
	}
	r.puts++
	r.trades[t.ID] = t
	return nil
}

func (r *fakeRemote) DeleteTrade(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return errOffline
	}
	delete(r.trades, id)
	return nil
}

func (r *fakeRemote) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.trades[id]
	return ok
}

func newTestDB(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(local store.DataStore, remote store.RemoteStore) *Service {
	return NewService(local, Options{
		Remote: remote,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixedNow },
	})
}

func TestService_AddPersistsLocallyAndRemotely(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	remote := newFakeRemote()
	svc := newTestService(db, remote)
	require.NoError(t, svc.Load(ctx))

	tr, err := svc.CreateTrade(ctx, TradeInput{Symbol: "aapl", EntryPrice: "100", ExitPrice: "104", Quantity: "5", Strategy: "Breakout"})
	require.NoError(t, err)
	assert.Equal(t, "USD", tr.Currency)

	stored, err := db.GetTrade(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, stored.PnL)
	assert.True(t, remote.has(tr.ID))

	fav, err := svc.ToggleFavorite(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, fav)
	stored, _ = db.GetTrade(ctx, tr.ID)
	assert.True(t, stored.IsFavorite)

	require.NoError(t, svc.DeleteTrade(ctx, tr.ID))
	assert.Empty(t, svc.Trades())
	assert.False(t, remote.has(tr.ID))
	_, err = db.GetTrade(ctx, tr.ID)
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestService_OfflineMutationIsKept(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.offline = true
	svc := newTestService(newTestDB(t), remote)
	require.NoError(t, svc.Load(ctx), "remote failure on load is not fatal")

	err := svc.AddTrade(ctx, testTrade("offline-1", "2025-03-01", 15))

	var perr *apperrors.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "add", perr.Operation)
	assert.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)
	assert.Len(t, svc.Trades(), 1, "the in-memory mutation is not rolled back")

	// Back online: the locally mirrored trade is pushed on the next load.
	remote.mu.Lock()
	remote.offline = false
	remote.mu.Unlock()
	require.NoError(t, svc.Load(ctx))
	assert.True(t, remote.has("offline-1"))
}

func TestService_LoadRemoteWins(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	stale := testTrade("shared", "2025-01-01", 10)
	require.NoError(t, db.SaveTrade(ctx, &stale))

	fresh := stale
	fresh.PnL = 25
	other := testTrade("other-device", "2025-01-02", -5)
	svc := newTestService(db, newFakeRemote(fresh, other))

	require.NoError(t, svc.Load(ctx))

	trades := svc.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, 25.0, trades[0].PnL)
	assert.Equal(t, "other-device", trades[1].ID)

	mirrored, err := db.GetTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, mirrored, 2)

	statuses := svc.SyncStatus()
	require.NotEmpty(t, statuses)
	var tradesStatus *store.SyncStatus
	for _, s := range statuses {
		if s.DataType == store.SyncTypeTrades {
			tradesStatus = s
		}
	}
	require.NotNil(t, tradesStatus)
	assert.False(t, tradesStatus.LastSync.IsZero())
}

func TestService_LoadOfflineReportsStaleMirror(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	local := testTrade("local", "2025-01-01", 10)
	require.NoError(t, db.SaveTrade(ctx, &local))

	remote := newFakeRemote()
	remote.offline = true
	var logs bytes.Buffer
	svc := NewService(db, Options{Remote: remote, Logger: zerolog.New(&logs), Now: func() time.Time { return fixedNow }})

	require.NoError(t, svc.Load(ctx))
	assert.Len(t, svc.Trades(), 1)
	assert.Contains(t, logs.String(), `"stale":true`)
	assert.Contains(t, logs.String(), "Never synced")

	statuses := svc.SyncStatus()
	require.Len(t, statuses, 1)
	assert.Equal(t, store.SyncTypeTrades, statuses[0].DataType)

	assert.Nil(t, newTestService(db, nil).SyncStatus(), "no remote, nothing to sync")
}

func TestService_LoadRetriesLocalPush(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	local := testTrade("local-only", "2025-01-01", 10)
	require.NoError(t, db.SaveTrade(ctx, &local))

	remote := newFakeRemote()
	remote.failPuts = 1
	svc := newTestService(db, remote)

	require.NoError(t, svc.Load(ctx))
	assert.True(t, remote.has("local-only"))
	assert.Equal(t, 2, remote.attempts)
	assert.Equal(t, 1, remote.puts)
}

func TestService_StatsMemoizedAndFresh(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil, nil)
	require.NoError(t, svc.Load(ctx))

	for _, tr := range []models.Trade{
		testTrade("a", "2025-03-10", 100),
		testTrade("b", "2025-03-11", -50),
		testTrade("c", "2025-03-12", 200),
		testTrade("d", "2025-03-13", -25),
	} {
		require.NoError(t, svc.AddTrade(ctx, tr))
	}

	stats := svc.Stats(svc.Query(models.TimeframeAll, models.AllStrategies))
	assert.Equal(t, 4, stats.FilteredTrades)
	assert.InDelta(t, 4.0, stats.Risk.ProfitFactor, 1e-9)
	assert.Equal(t, stats, svc.Stats(svc.Query(models.TimeframeAll, models.AllStrategies)))

	require.NoError(t, svc.AddTrade(ctx, testTrade("e", "2025-03-14", 75)))
	after := svc.Stats(analytics.Query{})
	assert.Equal(t, 5, after.FilteredTrades, "a mutation is visible immediately")
	assert.Equal(t, 300.0, after.Risk.TotalPnL)

	daily := svc.Stats(svc.Query(models.TimeframeDaily, models.AllStrategies))
	assert.Equal(t, 1, daily.FilteredTrades)
}

func TestService_Settings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := newTestService(db, nil)
	require.NoError(t, svc.Load(ctx))

	assert.Equal(t, 10000.0, svc.InitialBalance())
	assert.Equal(t, "USD", svc.Currency())

	assert.ErrorIs(t, svc.SetInitialBalance(ctx, 0), apperrors.ErrInputValidation)
	assert.ErrorIs(t, svc.SetCurrency(ctx, "XYZ"), apperrors.ErrInputValidation)

	require.NoError(t, svc.SetInitialBalance(ctx, 2500))
	require.NoError(t, svc.SetCurrency(ctx, "eur"))

	reloaded := newTestService(db, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 2500.0, reloaded.InitialBalance())
	assert.Equal(t, "EUR", reloaded.Currency())
	assert.Equal(t, 2500.0, reloaded.Stats(analytics.Query{}).InitialBalance)
}

func TestService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil, nil)

	assert.ErrorIs(t, svc.DeleteTrade(ctx, "nope"), apperrors.ErrTradeNotFound)
	_, err := svc.ToggleFavorite(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
	_, err = svc.Trade("nope")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestService_Strategies(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(nil, nil)

	scalp := testTrade("s", "2025-01-02", 1)
	scalp.Strategy = "Scalp"
	unknown := testTrade("u", "2025-01-03", 1)
	unknown.Strategy = ""
	require.NoError(t, svc.AddTrade(ctx, testTrade("b", "2025-01-01", 1)))
	require.NoError(t, svc.AddTrade(ctx, scalp))
	require.NoError(t, svc.AddTrade(ctx, unknown))

	assert.Equal(t, []string{"All", "Breakout", "Scalp"}, svc.Strategies())
}

func TestService_RemoteBreakerFailsFast(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.offline = true
	svc := NewService(nil, Options{
		Remote:        remote,
		RemoteBreaker: resilience.Config{FailureThreshold: 2, Cooldown: time.Hour},
		Logger:        zerolog.Nop(),
		Now:           func() time.Time { return fixedNow },
	})

	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		err := svc.AddTrade(ctx, testTrade(id, "2025-03-01", 5))
		assert.ErrorIs(t, err, apperrors.ErrRemoteUnavailable)
	}
	assert.Equal(t, 2, remote.attempts, "the open circuit stops calling the remote store")
	assert.Len(t, svc.Trades(), 4)

	err := svc.DeleteTrade(ctx, "t1")
	assert.ErrorIs(t, err, resilience.ErrOpen)

	health, ok := svc.RemoteHealth()
	require.True(t, ok)
	assert.Equal(t, resilience.StateOpen, health.State)
	assert.Equal(t, int64(3), health.Rejected)

	_, ok = newTestService(nil, nil).RemoteHealth()
	assert.False(t, ok)
}
