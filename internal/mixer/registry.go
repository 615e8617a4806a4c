package mixer

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/alkime/jackmixer/internal/engine"
	"github.com/alkime/jackmixer/pkg/collections"
)

// EventKind names a registry change.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventRemoved  EventKind = "removed"
	EventGain     EventKind = "gain"
	EventChannels EventKind = "channels"
)

// Event describes a completed mutation.
type Event struct {
	Kind       EventKind
	Strip      string
	GainFactor float32
	Channels   int
}

// RegistryConfig holds the settings every strip is created with.
type RegistryConfig struct {
	// ClientPrefix is prepended to strip names to form engine client names
	// ("<prefix>/<strip>").
	ClientPrefix string
	Policy       ChannelPolicy
}

// Registry maps strip names to strips. It is not safe for concurrent use;
// the control loop owns it.
type Registry struct {
	eng    engine.Engine
	conf   RegistryConfig
	logger *slog.Logger

	strips map[string]*Strip
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry(eng engine.Engine, conf RegistryConfig, logger *slog.Logger) *Registry {
	return &Registry{
		eng:    eng,
		conf:   conf,
		logger: logger,
		strips: make(map[string]*Strip),
	}
}

// Len returns the number of strips.
func (r *Registry) Len() int {
	return len(r.strips)
}

// Get returns the named strip.
func (r *Registry) Get(name string) (*Strip, error) {
	s, ok := r.strips[name]
	if !ok {
		return nil, &UnknownStripError{Name: name}
	}

	return s, nil
}

// Apply executes one command to completion.
func (r *Registry) Apply(cmd Command) (Response, *Event, error) {
	switch c := cmd.(type) {
	case AddStrip:
		s, err := r.Add(c.Name)
		if err != nil {
			return Response{}, nil, err
		}

		return Response{}, &Event{Kind: EventAdded, Strip: c.Name, GainFactor: s.GainFactor(), Channels: s.Channels()}, nil

	case RemoveStrip:
		if err := r.Remove(c.Name); err != nil {
			return Response{}, nil, err
		}

		return Response{}, &Event{Kind: EventRemoved, Strip: c.Name}, nil

	case SetGainFactor:
		s, err := r.Get(c.Name)
		if err != nil {
			return Response{}, nil, err
		}

		if err := s.SetGainFactor(c.Factor); err != nil {
			return Response{}, nil, err
		}

		return Response{}, &Event{Kind: EventGain, Strip: c.Name, GainFactor: c.Factor, Channels: s.Channels()}, nil

	case SetChannels:
		s, err := r.Get(c.Name)
		if err != nil {
			return Response{}, nil, err
		}

		before := s.Channels()
		if err := s.SetChannels(c.Count); err != nil {
			return Response{}, nil, err
		}

		if before == c.Count {
			return Response{}, nil, nil
		}

		return Response{}, &Event{Kind: EventChannels, Strip: c.Name, GainFactor: s.GainFactor(), Channels: c.Count}, nil

	case GetState:
		return Response{State: r.State()}, nil, nil

	default:
		return Response{}, nil, fmt.Errorf("%w: unsupported command %T", ErrInternal, cmd)
	}
}

// Add creates a strip.
func (r *Registry) Add(name string) (*Strip, error) {
	if _, ok := r.strips[name]; ok {
		return nil, &AlreadyExistsError{Name: name}
	}

	s, err := NewStrip(r.eng, r.clientName(name), name, r.conf.Policy)
	if err != nil {
		return nil, err
	}

	r.strips[name] = s
	r.order = append(r.order, name)

	r.logger.Info("strip added", "strip", name, "channels", s.Channels())

	return s, nil
}

// Remove destroys a strip and frees its name. The name is freed even when
// the engine reports errors while releasing ports; those errors are
// returned.
func (r *Registry) Remove(name string) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}

	derr := s.Destroy()

	delete(r.strips, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })

	if derr != nil {
		r.logger.Warn("strip removed with errors", "strip", name, "error", derr)

		return derr
	}

	r.logger.Info("strip removed", "strip", name)

	return nil
}

// State returns one summary line per strip, in creation order.
func (r *Registry) State() []string {
	return collections.Apply(r.order, func(name string) string {
		return r.strips[name].Summary()
	})
}

// DestroyAll destroys every strip in creation order and empties the
// registry.
func (r *Registry) DestroyAll() error {
	var errs []error

	for _, name := range r.order {
		if err := r.strips[name].Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy strip %s: %w", name, err))
		}
	}

	clear(r.strips)
	r.order = nil

	return errors.Join(errs...)
}

func (r *Registry) clientName(name string) string {
	if r.conf.ClientPrefix == "" {
		return name
	}

	return r.conf.ClientPrefix + "/" + name
}
