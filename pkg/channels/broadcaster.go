package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type subscriber[T any] struct {
	ch       chan<- T
	timeout  *time.Duration // nil means non-blocking
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	if s.timeout != nil {
		err = SendWithTimeout(s.ch, msg, *s.timeout)
	} else {
		err = SendNonBlock(s.ch, msg)
	}

	if err != nil {
		s.dropped.Add(1)
		// a closed subscriber never comes back
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster copies every message written to its input channel to all
// subscriber channels.
//
// Subscribers either receive non-blocking (messages are dropped when the
// channel is full) or with a send timeout. Cancelling the context passed to
// Run closes the input; messages already queued are still delivered.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	wg          sync.WaitGroup
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe adds a non-blocking subscriber. Must be called before Run.
func (b *Broadcaster[T]) Subscribe(ch chan<- T) error {
	if ch == nil {
		return fmt.Errorf("subscriber channel cannot be nil")
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch})

	return nil
}

// SubscribeWithTimeout adds a subscriber that waits up to timeout per
// message. Must be called before Run.
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return fmt.Errorf("subscriber channel cannot be nil")
	}

	if timeout <= 0 {
		return fmt.Errorf("subscriber timeout must be positive, got %s", timeout)
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch, timeout: &timeout})

	return nil
}

// Run starts broadcasting and returns the input channel. The channel is
// owned by the Broadcaster and closed when ctx is cancelled; writers should
// use SendNonBlock or SendWithTimeout so a late write does not panic.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if len(b.subscribers) == 0 {
		return nil, fmt.Errorf("no subscribers available")
	}

	if !b.started.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("broadcaster already started")
	}

	b.input = make(chan T, len(b.subscribers)*8)

	b.wg.Go(func() {
		for msg := range b.input {
			for _, sub := range b.subscribers {
				sub.send(msg)
			}
		}
	})

	go func() {
		<-ctx.Done()
		close(b.input)
	}()

	return b.input, nil
}

// Wait blocks until the input is closed and drained.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

func (b *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
