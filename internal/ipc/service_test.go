package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMixer struct {
	mu   sync.Mutex
	cmds []mixer.Command
	resp mixer.Response
	err  error
}

func (f *fakeMixer) Submit(_ context.Context, cmd mixer.Command) (mixer.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cmds = append(f.cmds, cmd)

	return f.resp, f.err
}

func (f *fakeMixer) commands() []mixer.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cmds
}

func newTestService(m mixer.Submitter) *Service {
	return NewService(context.Background(), m, Names{}, slog.New(slog.DiscardHandler))
}

func TestServiceForwardsCommands(t *testing.T) {
	t.Parallel()

	fake := &fakeMixer{}
	svc := newTestService(fake)

	require.Nil(t, svc.InstanceRunning())
	require.Nil(t, svc.SetGainFactor("music", 50))
	require.Nil(t, svc.AddStrip("voice"))
	require.Nil(t, svc.SetChannels("voice", 0))
	require.Nil(t, svc.RemoveStrip("voice"))

	assert.Equal(t, []mixer.Command{
		mixer.SetGainFactor{Name: "music", Factor: 0.5},
		mixer.AddStrip{Name: "voice"},
		mixer.SetChannels{Name: "voice", Count: 0},
		mixer.RemoveStrip{Name: "voice"},
	}, fake.commands())
}

func TestServiceGetState(t *testing.T) {
	t.Parallel()

	fake := &fakeMixer{resp: mixer.Response{State: []string{"music: channels: 2 gain-factor: 1"}}}
	lines, derr := newTestService(fake).GetState()
	require.Nil(t, derr)
	assert.Equal(t, []string{"music: channels: 2 gain-factor: 1"}, lines)

	lines, derr = newTestService(&fakeMixer{}).GetState()
	require.Nil(t, derr)
	assert.NotNil(t, lines)
	assert.Empty(t, lines)
}

func TestServiceRejectsBadArguments(t *testing.T) {
	t.Parallel()

	fake := &fakeMixer{}
	svc := newTestService(fake)

	tests := []struct {
		name string
		call func() *dbus.Error
	}{
		{name: "gain below range", call: func() *dbus.Error { return svc.SetGainFactor("music", -1) }},
		{name: "gain above range", call: func() *dbus.Error { return svc.SetGainFactor("music", 201) }},
		{name: "negative channels", call: func() *dbus.Error { return svc.SetChannels("music", -2) }},
		{name: "empty add", call: func() *dbus.Error { return svc.AddStrip("") }},
		{name: "empty remove", call: func() *dbus.Error { return svc.RemoveStrip("") }},
		{name: "empty gain", call: func() *dbus.Error { return svc.SetGainFactor("", 100) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derr := tt.call()
			require.NotNil(t, derr)
			assert.Equal(t, "org.freedesktop.DBus.Error.InvalidArgs", derr.Name)
		})
	}

	assert.Empty(t, fake.commands(), "invalid calls must not reach the loop")
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	names := Names{}

	tests := []struct {
		err      error
		wantName string
	}{
		{err: &mixer.UnknownStripError{Name: "music"}, wantName: "com.jackAutoconnect.jackAutoconnect.Error.UnknownStrip"},
		{err: fmt.Errorf("wrapped: %w", &mixer.AlreadyExistsError{Name: "music"}), wantName: "com.jackAutoconnect.jackAutoconnect.Error.AlreadyExists"},
		{err: fmt.Errorf("%w: too many", mixer.ErrInvalidArgument), wantName: "org.freedesktop.DBus.Error.InvalidArgs"},
		{err: fmt.Errorf("%w: port table full", mixer.ErrPortOperation), wantName: "com.jackAutoconnect.jackAutoconnect.Error.PortOperationFailed"},
		{err: fmt.Errorf("%w: loop gone", mixer.ErrInternal), wantName: "org.freedesktop.DBus.Error.Failed"},
		{err: context.Canceled, wantName: "org.freedesktop.DBus.Error.Failed"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			derr := names.toDBusError(tt.err)
			require.NotNil(t, derr)
			assert.Equal(t, tt.wantName, derr.Name)
			assert.Equal(t, tt.err.Error(), derr.Error())
		})
	}

	assert.Nil(t, names.toDBusError(nil))
}

func TestErrorRoundTrip(t *testing.T) {
	t.Parallel()

	names := Names{Bus: "org.example.Mixer"}

	back := names.fromDBusError(*names.toDBusError(&mixer.UnknownStripError{Name: "music"}))
	var unknown *mixer.UnknownStripError
	require.ErrorAs(t, back, &unknown)
	assert.Equal(t, "music", unknown.Name)

	back = names.fromDBusError(names.toDBusError(&mixer.AlreadyExistsError{Name: "voice"}))
	var exists *mixer.AlreadyExistsError
	require.ErrorAs(t, back, &exists)
	assert.Equal(t, "voice", exists.Name)

	back = names.fromDBusError(names.toDBusError(fmt.Errorf("%w: bad gain", mixer.ErrInvalidArgument)))
	require.ErrorIs(t, back, mixer.ErrInvalidArgument)
	assert.Equal(t, "invalid argument: bad gain", back.Error())

	back = names.fromDBusError(names.toDBusError(fmt.Errorf("%w: full", mixer.ErrPortOperation)))
	require.ErrorIs(t, back, mixer.ErrPortOperation)

	plain := errors.New("no reply")
	assert.Same(t, plain, names.fromDBusError(plain))
}

func TestServiceSubmitFailure(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeMixer{err: &mixer.UnknownStripError{Name: "drums"}})

	derr := svc.SetGainFactor("drums", 10)
	require.NotNil(t, derr)
	assert.Equal(t, "com.jackAutoconnect.jackAutoconnect.Error.UnknownStrip", derr.Name)
	assert.Equal(t, "unknown strip: drums", derr.Error())
}

func TestIntrospection(t *testing.T) {
	t.Parallel()

	xml, derr := newTestService(&fakeMixer{}).introspection().Introspect()
	require.Nil(t, derr)

	for _, want := range []string{
		`<interface name="com.jackAutoconnect.jackAutoconnect">`,
		`<method name="InstanceRunning">`,
		`<method name="SetGainFactor">`,
		`<method name="SetChannels">`,
		`<method name="GetState">`,
		`<signal name="StripChanged">`,
		`<interface name="org.freedesktop.DBus.Introspectable">`,
	} {
		assert.Contains(t, string(xml), want)
	}

	assert.NotContains(t, string(xml), "introspection")
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultBusName, Names{}.Interface())
	assert.Equal(t, "org.example.Mixer.GetState", Names{Bus: "org.example.Mixer"}.Member(MethodGetState))
}
