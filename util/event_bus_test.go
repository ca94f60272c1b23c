package util_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

func TestEventBus(t *testing.T) {
	t.Run("delivers to every subscriber and drains", func(t *testing.T) {
		bus := util.NewEventBus()
		var calls int32
		for i := 0; i < 3; i++ {
			bus.Subscribe(util.EventDecisionRecorded, func(ctx context.Context, e util.Event) error {
				assert.Equal(t, "payload", e.Payload)
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}

		bus.Publish(context.Background(), util.EventDecisionRecorded, "payload")

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, bus.Drain(ctx))
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("handlers survive request cancellation", func(t *testing.T) {
		bus := util.NewEventBus()
		var sawCancel atomic.Bool
		bus.Subscribe("x", func(ctx context.Context, e util.Event) error {
			sawCancel.Store(ctx.Err() != nil)
			return errors.New("ignored")
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		bus.Publish(ctx, "x", nil)

		require.NoError(t, bus.Drain(context.Background()))
		assert.False(t, sawCancel.Load())
	})

	t.Run("publish without subscribers is a no-op", func(t *testing.T) {
		bus := util.NewEventBus()
		bus.Publish(context.Background(), "nobody", 1)
		assert.NoError(t, bus.Drain(context.Background()))
	})

	t.Run("drain honours its context", func(t *testing.T) {
		bus := util.NewEventBus()
		release := make(chan struct{})
		bus.Subscribe("slow", func(ctx context.Context, e util.Event) error {
			<-release
			return nil
		})
		bus.Publish(context.Background(), "slow", nil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, bus.Drain(ctx), context.DeadlineExceeded)
		close(release)
	})
}
