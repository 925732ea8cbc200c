package journal

import (
	"context"

	"github.com/rs/zerolog"

	"trading-journal/internal/models"
	"trading-journal/internal/resilience"
	"trading-journal/internal/store"
)

// guardedRemote routes every remote call through a circuit breaker. While the
// breaker is open calls fail with resilience.ErrOpen without reaching the
// remote store.
type guardedRemote struct {
	remote  store.RemoteStore
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

func newGuardedRemote(remote store.RemoteStore, config resilience.Config, logger zerolog.Logger) *guardedRemote {
	return &guardedRemote{
		remote:  remote,
		breaker: resilience.New("remote-store", config),
		logger:  logger,
	}
}

func (g *guardedRemote) ListTrades(ctx context.Context) ([]models.Trade, error) {
	return resilience.Call(ctx, g.breaker, g.remote.ListTrades)
}

func (g *guardedRemote) PutTrade(ctx context.Context, t models.Trade) error {
	return g.do(ctx, func(ctx context.Context) error { return g.remote.PutTrade(ctx, t) })
}

func (g *guardedRemote) DeleteTrade(ctx context.Context, id string) error {
	return g.do(ctx, func(ctx context.Context) error { return g.remote.DeleteTrade(ctx, id) })
}

func (g *guardedRemote) do(ctx context.Context, fn func(context.Context) error) error {
	before := g.breaker.State()
	err := g.breaker.Do(ctx, fn)
	if after := g.breaker.State(); after != before {
		g.logger.Warn().Str("from", string(before)).Str("to", string(after)).Msg("Remote store circuit changed state")
	}
	return err
}
