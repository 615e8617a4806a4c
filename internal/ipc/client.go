package ipc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/godbus/dbus/v5"
)

// Client talks to a running owner. It implements mixer.Submitter so remote
// and local callers look the same.
type Client struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	names   Names
	timeout time.Duration
}

// Dial connects to the session bus. It does not check whether an owner is
// running; use InstanceRunning for that.
func Dial(ctx context.Context, names Names, timeout time.Duration) (*Client, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Client{
		conn:    conn,
		obj:     conn.Object(names.busName(), ObjectPath),
		names:   names,
		timeout: timeout,
	}, nil
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// InstanceRunning returns nil when an owner answered the probe.
func (c *Client) InstanceRunning(ctx context.Context) error {
	return c.call(ctx, MethodInstanceRunning).Err
}

// Submit performs cmd as one remote call.
func (c *Client) Submit(ctx context.Context, cmd mixer.Command) (mixer.Response, error) {
	var call *dbus.Call

	switch cmd := cmd.(type) {
	case mixer.SetGainFactor:
		call = c.call(ctx, MethodSetGainFactor, cmd.Name, mixer.PercentFromGain(cmd.Factor))
	case mixer.AddStrip:
		call = c.call(ctx, MethodAddStrip, cmd.Name)
	case mixer.RemoveStrip:
		call = c.call(ctx, MethodRemoveStrip, cmd.Name)
	case mixer.SetChannels:
		call = c.call(ctx, MethodSetChannels, cmd.Name, int32(cmd.Count))
	case mixer.GetState:
		var lines []string
		if err := c.call(ctx, MethodGetState).Store(&lines); err != nil {
			return mixer.Response{}, c.names.fromDBusError(err)
		}

		return mixer.Response{State: lines}, nil
	default:
		return mixer.Response{}, fmt.Errorf("%w: unsupported command %T", mixer.ErrInternal, cmd)
	}

	if call.Err != nil {
		return mixer.Response{}, c.names.fromDBusError(call.Err)
	}

	return mixer.Response{}, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.obj.CallWithContext(ctx, c.names.Member(method), 0, args...)
}

// Instance is a running owner as seen from a second invocation. *Client
// implements it.
type Instance interface {
	mixer.Submitter
	InstanceRunning(ctx context.Context) error
}

// Forward is the single-instance handshake over the session bus. It dials
// names and hands the connection to Handshake. A missing bus counts as "no
// owner".
func Forward(ctx context.Context, names Names, timeout time.Duration, cmd mixer.Command, out io.Writer, logger *slog.Logger) (forwarded bool, err error) {
	client, err := Dial(ctx, names, timeout)
	if err != nil {
		logger.Debug("no session bus, starting as owner", "error", err)

		return false, nil
	}
	defer client.Close()

	return Handshake(ctx, client, cmd, out, logger)
}

// Handshake probes inst and, if an owner answers, sends cmd to it and
// prints any state lines to out. forwarded is false when no owner answered
// and the caller should become the owner.
func Handshake(ctx context.Context, inst Instance, cmd mixer.Command, out io.Writer, logger *slog.Logger) (forwarded bool, err error) {
	if err := inst.InstanceRunning(ctx); err != nil {
		logger.Debug("no running instance", "error", err)

		return false, nil
	}

	logger.Debug("forwarding to running instance", "command", fmt.Sprintf("%T", cmd))

	resp, err := inst.Submit(ctx, cmd)
	if err != nil {
		return true, err
	}

	for _, line := range resp.State {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return true, fmt.Errorf("write state: %w", err)
		}
	}

	return true, nil
}
