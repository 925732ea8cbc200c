package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*Breaker, *clock) {
	c := &clock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	b := New("remote", Config{FailureThreshold: threshold, SuccessThreshold: 1, Cooldown: time.Minute})
	b.now = c.now
	return b, c
}

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(3)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(ctx, fail), errDown)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	s := b.Stats()
	assert.Equal(t, int64(3), s.Calls)
	assert.Equal(t, int64(3), s.Failed)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, 100.0, s.FailureRate())
	assert.Equal(t, errDown.Error(), s.LastFailure)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBreaker(2)

	_ = b.Do(ctx, fail)
	require.NoError(t, b.Do(ctx, succeed))
	_ = b.Do(ctx, fail)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenTrialCall(t *testing.T) {
	ctx := context.Background()
	b, c := newTestBreaker(1)

	_ = b.Do(ctx, fail)
	require.Equal(t, StateOpen, b.State())

	c.advance(time.Minute)
	assert.ErrorIs(t, b.Do(ctx, fail), errDown, "trial call allowed after cooldown")
	assert.Equal(t, StateOpen, b.State(), "failed trial call reopens")
	assert.ErrorIs(t, b.Do(ctx, succeed), ErrOpen)

	c.advance(time.Minute)
	require.NoError(t, b.Do(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_CancelledContextIsNotAFailure(t *testing.T) {
	b, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
}

func TestCall(t *testing.T) {
	b, _ := newTestBreaker(1)

	n, err := Call(context.Background(), b, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

// For any sequence of outcomes, the breaker is open exactly when the last
// threshold outcomes since it last closed were all failures, and no call is
// made while it is open.
func TestProperty_BreakerOpensOnConsecutiveFailures(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property: state follows the consecutive-failure count
	properties.Property("breaker opens on the threshold-th consecutive failure", prop.ForAll(
		func(outcomes []bool, threshold int) bool {
			b, _ := newTestBreaker(threshold)
			streak := 0
			for _, ok := range outcomes {
				open := b.State() == StateOpen
				called := false
				err := b.Do(context.Background(), func(context.Context) error {
					called = true
					if ok {
						return nil
					}
					return errDown
				})
				if open {
					// The clock never advances, so an open breaker stays open.
					if called || !errors.Is(err, ErrOpen) {
						return false
					}
					continue
				}
				if ok {
					streak = 0
				} else {
					streak++
				}
				if (b.State() == StateOpen) != (streak >= threshold) {
					t.Logf("streak %d threshold %d state %s", streak, threshold, b.State())
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
