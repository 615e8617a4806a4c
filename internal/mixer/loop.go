package mixer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alkime/jackmixer/pkg/channels"
)

// DefaultQueueDepth is the command queue capacity used when none is set.
const DefaultQueueDepth = 64

// Submitter hands a command to the control loop and waits for its
// response.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) (Response, error)
}

type reply struct {
	resp Response
	err  error
}

type request struct {
	cmd   Command
	reply chan reply
}

// Loop serializes every registry mutation. Producers call Submit from any
// goroutine; Run applies commands one at a time, in arrival order, on the
// goroutine that calls it.
type Loop struct {
	registry *Registry
	logger   *slog.Logger

	requests chan request
	done     chan struct{}
	events   chan<- Event
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithQueueDepth sets the command queue capacity.
func WithQueueDepth(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.requests = make(chan request, n)
		}
	}
}

// WithEvents publishes an Event after every successful mutation. Sends
// never block; events are dropped when ch is full.
func WithEvents(ch chan<- Event) LoopOption {
	return func(l *Loop) {
		l.events = ch
	}
}

// NewLoop creates a loop that owns registry.
func NewLoop(registry *Registry, logger *slog.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		registry: registry,
		logger:   logger.With("component", "loop"),
		requests: make(chan request, DefaultQueueDepth),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Done is closed once Run has returned and every strip is destroyed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Pending is the number of queued commands not yet picked up.
func (l *Loop) Pending() int {
	return len(l.requests)
}

// Submit queues cmd and blocks until the loop replies, ctx is cancelled,
// or the loop terminates. After termination it fails with ErrInternal.
func (l *Loop) Submit(ctx context.Context, cmd Command) (Response, error) {
	req := request{cmd: cmd, reply: make(chan reply, 1)}

	select {
	case l.requests <- req:
	case <-l.done:
		return Response{}, fmt.Errorf("%w: control loop has stopped", ErrInternal)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.resp, r.err
	case <-l.done:
		// the loop may have replied just before exiting
		select {
		case r := <-req.reply:
			return r.resp, r.err
		default:
			return Response{}, fmt.Errorf("%w: control loop stopped before replying", ErrInternal)
		}
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Run processes commands until ctx is cancelled, then destroys every strip
// in creation order and closes Done. Commands still queued at that point
// fail with ErrInternal.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("control loop started", "strips", l.registry.Len())

	for {
		select {
		case <-ctx.Done():
			return l.shutdown()
		case req := <-l.requests:
			resp, err := l.apply(req.cmd)
			req.reply <- reply{resp: resp, err: err}
		}
	}
}

// Apply runs cmd directly. It is meant for seeding the registry before Run
// starts; once Run is running, use Submit.
func (l *Loop) Apply(cmd Command) (Response, error) {
	return l.apply(cmd)
}

func (l *Loop) apply(cmd Command) (Response, error) {
	resp, ev, err := l.registry.Apply(cmd)
	if err != nil {
		l.logger.Debug("command failed", "command", fmt.Sprintf("%T", cmd), "error", err)

		return resp, err
	}

	if ev != nil && l.events != nil {
		if perr := channels.SendNonBlock(l.events, *ev); perr != nil {
			l.logger.Debug("event dropped", "kind", ev.Kind, "strip", ev.Strip, "error", perr)
		}
	}

	return resp, nil
}

func (l *Loop) shutdown() error {
	defer close(l.done)

	err := l.registry.DestroyAll()

	// fail anything that raced the shutdown
	for {
		select {
		case req := <-l.requests:
			req.reply <- reply{err: fmt.Errorf("%w: control loop is shutting down", ErrInternal)}
		default:
			if err != nil {
				l.logger.Error("control loop stopped with errors", "error", err)
			} else {
				l.logger.Info("control loop stopped")
			}

			return err
		}
	}
}
