package ipc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Service is the object exported at ObjectPath. godbus calls each method on
// its own goroutine; arguments are validated here, then the command is
// handed to the control loop and the call blocks until the loop replies.
type Service struct {
	ctx    context.Context
	mixer  mixer.Submitter
	names  Names
	logger *slog.Logger
}

// NewService creates a service forwarding to m. ctx bounds every forwarded
// command; once it is cancelled calls fail instead of waiting.
func NewService(ctx context.Context, m mixer.Submitter, names Names, logger *slog.Logger) *Service {
	return &Service{
		ctx:    ctx,
		mixer:  m,
		names:  names,
		logger: logger.With("component", "dbus"),
	}
}

// InstanceRunning answers the single-instance probe.
func (s *Service) InstanceRunning() *dbus.Error {
	return nil
}

// SetGainFactor sets a strip gain given as an integer percent.
func (s *Service) SetGainFactor(name string, percent int32) *dbus.Error {
	if err := checkName(name); err != nil {
		return err
	}

	factor, err := mixer.GainFromPercent(int(percent))
	if err != nil {
		return s.names.toDBusError(err)
	}

	_, derr := s.submit(mixer.SetGainFactor{Name: name, Factor: factor})

	return derr
}

// AddStrip creates a strip.
func (s *Service) AddStrip(name string) *dbus.Error {
	if err := checkName(name); err != nil {
		return err
	}

	_, derr := s.submit(mixer.AddStrip{Name: name})

	return derr
}

// RemoveStrip destroys a strip.
func (s *Service) RemoveStrip(name string) *dbus.Error {
	if err := checkName(name); err != nil {
		return err
	}

	_, derr := s.submit(mixer.RemoveStrip{Name: name})

	return derr
}

// SetChannels resizes a strip.
func (s *Service) SetChannels(name string, count int32) *dbus.Error {
	if err := checkName(name); err != nil {
		return err
	}

	if count < 0 {
		return dbus.NewError(errInvalidArgs, []interface{}{
			fmt.Sprintf("channel count must not be negative, got %d", count),
		})
	}

	_, derr := s.submit(mixer.SetChannels{Name: name, Count: int(count)})

	return derr
}

// GetState returns one line per strip.
func (s *Service) GetState() ([]string, *dbus.Error) {
	resp, derr := s.submit(mixer.GetState{})
	if derr != nil {
		return nil, derr
	}

	if resp.State == nil {
		// godbus cannot tell a nil slice from a missing reply value
		return []string{}, nil
	}

	return resp.State, nil
}

func (s *Service) submit(cmd mixer.Command) (mixer.Response, *dbus.Error) {
	resp, err := s.mixer.Submit(s.ctx, cmd)
	if err != nil {
		s.logger.Debug("call failed", "command", fmt.Sprintf("%T", cmd), "error", err)

		return resp, s.names.toDBusError(err)
	}

	return resp, nil
}

func checkName(name string) *dbus.Error {
	if name == "" {
		return dbus.NewError(errInvalidArgs, []interface{}{"strip name cannot be empty"})
	}

	return nil
}

// introspection describes the service, including the StripChanged signal
// which reflection cannot discover.
func (s *Service) introspection() introspect.Introspectable {
	return introspect.NewIntrospectable(&introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    s.names.Interface(),
				Methods: introspect.Methods(s),
				Signals: []introspect.Signal{
					{
						Name: SignalStripChanged,
						Args: []introspect.Arg{
							{Name: "kind", Type: "s"},
							{Name: "strip", Type: "s"},
						},
					},
				},
			},
		},
	})
}
