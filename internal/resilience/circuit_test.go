package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webshop-works/checkout/internal/resilience"
)

var errUpstream = errors.New("upstream down")

func failing(context.Context) error { return errUpstream }
func passing(context.Context) error { return nil }

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	b := resilience.NewBreaker(resilience.Options{
		Target:       "test-open",
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenFor:      time.Minute,
	})
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, failing), errUpstream)
	require.ErrorIs(t, b.Do(ctx, failing), errUpstream)
	require.Equal(t, resilience.Open, b.CurrentState())

	// Open breaker short-circuits without calling fn.
	called := false
	err := b.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}

func TestBreakerRecoversViaHalfOpen(t *testing.T) {
	b := resilience.NewBreaker(resilience.Options{
		Target:       "test-recover",
		MinRequests:  1,
		FailureRatio: 0.5,
		OpenFor:      10 * time.Millisecond,
	})
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, failing), errUpstream)
	require.Equal(t, resilience.Open, b.CurrentState())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Do(ctx, passing))
	require.Equal(t, resilience.Closed, b.CurrentState())
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := resilience.NewBreaker(resilience.Options{
		Target:       "test-probe",
		MinRequests:  1,
		FailureRatio: 0.5,
		OpenFor:      10 * time.Millisecond,
	})
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, failing), errUpstream)
	time.Sleep(20 * time.Millisecond)
	require.ErrorIs(t, b.Do(ctx, failing), errUpstream)
	require.Equal(t, resilience.Open, b.CurrentState())
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	b := resilience.NewBreaker(resilience.Options{
		Target:       "test-closed",
		MinRequests:  4,
		FailureRatio: 0.9,
		OpenFor:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Do(ctx, passing))
	}
	require.ErrorIs(t, b.Do(ctx, failing), errUpstream)
	require.Equal(t, resilience.Closed, b.CurrentState())
}
