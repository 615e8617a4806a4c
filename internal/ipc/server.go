package ipc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/godbus/dbus/v5"
)

// Server owns the well-known bus name and the exported Service.
type Server struct {
	conn    *dbus.Conn
	names   Names
	service *Service
	logger  *slog.Logger
}

// Listen connects to the session bus, claims the bus name without queueing
// and exports the service. Losing the name race returns ErrNameTaken.
func Listen(ctx context.Context, names Names, m mixer.Submitter, logger *slog.Logger) (*Server, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	srv, err := serve(ctx, conn, names, m, logger)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	return srv, nil
}

func serve(ctx context.Context, conn *dbus.Conn, names Names, m mixer.Submitter, logger *slog.Logger) (*Server, error) {
	svc := NewService(ctx, m, names, logger)

	if err := conn.Export(svc, ObjectPath, names.Interface()); err != nil {
		return nil, fmt.Errorf("export service: %w", err)
	}

	if err := conn.Export(svc.introspection(), ObjectPath, introspectableInterface); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	// Claim the name last: as soon as we own it, calls start arriving.
	reply, err := conn.RequestName(names.busName(), dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name %s: %w", names.busName(), err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, names.busName())
	}

	logger.Info("dbus service exported", "name", names.busName(), "path", ObjectPath)

	return &Server{
		conn:    conn,
		names:   names,
		service: svc,
		logger:  logger.With("component", "dbus"),
	}, nil
}

// Serve emits a StripChanged signal for every event until ctx is cancelled
// or events is closed, then releases the name and closes the connection.
func (s *Server) Serve(ctx context.Context, events <-chan mixer.Event) error {
	defer s.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				<-ctx.Done()

				return nil
			}

			err := s.conn.Emit(ObjectPath, s.names.Member(SignalStripChanged), string(ev.Kind), ev.Strip)
			if err != nil {
				s.logger.Warn("emit signal failed", "kind", ev.Kind, "strip", ev.Strip, "error", err)
			}
		}
	}
}

func (s *Server) close() {
	if _, err := s.conn.ReleaseName(s.names.busName()); err != nil {
		s.logger.Debug("release name failed", "error", err)
	}

	if err := s.conn.Close(); err != nil {
		s.logger.Debug("close bus connection failed", "error", err)
	}

	s.logger.Info("dbus service stopped")
}
