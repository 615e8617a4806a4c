package channels_test

import (
	"context"
	"testing"
	"time"

	"github.com/alkime/jackmixer/pkg/channels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	t.Run("subscribe validation", func(t *testing.T) {
		b := channels.NewBroadcaster[int]()

		err := b.Subscribe(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be nil")

		err = b.SubscribeWithTimeout(nil, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be nil")

		for _, timeout := range []time.Duration{0, -time.Second} {
			err = b.SubscribeWithTimeout(make(chan int, 1), timeout)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be positive")
		}
	})

	t.Run("run requires subscribers and runs once", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		b := channels.NewBroadcaster[int]()
		_, err := b.Run(ctx)
		require.ErrorContains(t, err, "no subscribers")

		require.NoError(t, b.Subscribe(make(chan int, 1)))
		_, err = b.Run(ctx)
		require.NoError(t, err)

		_, err = b.Run(ctx)
		require.ErrorContains(t, err, "already started")
	})

	t.Run("every subscriber sees every message", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[string]()
		subs := []chan string{make(chan string, 10), make(chan string, 10)}
		for _, sub := range subs {
			require.NoError(t, b.Subscribe(sub))
		}

		input, err := b.Run(ctx)
		require.NoError(t, err)

		input <- "added"
		input <- "gain"
		input <- "removed"

		cancel()
		b.Wait()

		for _, sub := range subs {
			close(sub)
			assert.Equal(t, []string{"added", "gain", "removed"}, channels.ReceiveAll(sub, 10*time.Millisecond, 0))
		}
	})

	t.Run("full subscriber drops without stalling others", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		full := make(chan int, 1)
		full <- 99
		ready := make(chan int, 10)
		slow := make(chan int, 1)

		require.NoError(t, b.Subscribe(full))
		require.NoError(t, b.Subscribe(ready))
		require.NoError(t, b.SubscribeWithTimeout(slow, time.Millisecond))

		input, err := b.Run(ctx)
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			input <- i
		}

		cancel()
		b.Wait()

		stats := b.Stats()
		require.Len(t, stats, 3)
		assert.Equal(t, 5, stats[0].Dropped)
		assert.Equal(t, 0, stats[1].Dropped)
		assert.Equal(t, 4, stats[2].Dropped)
		assert.False(t, stats[0].Inactive)

		close(ready)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, channels.ReceiveAll(ready, 10*time.Millisecond, 0))
		assert.Equal(t, 1, <-slow)
	})

	t.Run("closed subscriber becomes inactive", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		closed := make(chan int, 10)
		require.NoError(t, b.Subscribe(closed))
		close(closed)

		input, err := b.Run(ctx)
		require.NoError(t, err)

		input <- 1
		input <- 2

		cancel()
		b.Wait()

		stats := b.Stats()
		require.Len(t, stats, 1)
		assert.Equal(t, 2, stats[0].Dropped)
		assert.True(t, stats[0].Inactive)
	})

	t.Run("late writes after cancel do not panic", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		b := channels.NewBroadcaster[int]()
		require.NoError(t, b.Subscribe(make(chan int, 1)))

		input, err := b.Run(ctx)
		require.NoError(t, err)

		cancel()
		b.Wait()

		assert.ErrorIs(t, channels.SendNonBlock(input, 1), channels.ErrChannelClosed)
	})
}

func TestReceiveAll(t *testing.T) {
	t.Parallel()

	ch := make(chan int, 5)
	for i := range 5 {
		ch <- i
	}

	assert.Equal(t, []int{0, 1, 2}, channels.ReceiveAll(ch, 10*time.Millisecond, 3))
	assert.Equal(t, []int{3, 4}, channels.ReceiveAll(ch, 10*time.Millisecond, 0))
	assert.Empty(t, channels.ReceiveAll(ch, time.Millisecond, 0))
}
