package ipc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInstance is an owner that may or may not answer the probe.
type fakeInstance struct {
	fakeMixer
	probeErr error
	probes   int
}

func (f *fakeInstance) InstanceRunning(context.Context) error {
	f.probes++

	return f.probeErr
}

func TestHandshake(t *testing.T) {
	t.Parallel()

	state := mixer.Response{State: []string{
		"music: channels: 2 gain-factor: 1",
		"voice: channels: 1 gain-factor: 0.5",
	}}
	boom := errors.New("remote failed")

	tests := []struct {
		name          string
		inst          *fakeInstance
		cmd           mixer.Command
		wantForwarded bool
		wantErr       error
		wantCmds      []mixer.Command
		wantOut       string
	}{
		{
			name:          "no owner",
			inst:          &fakeInstance{probeErr: errors.New("service unknown")},
			cmd:           mixer.AddStrip{Name: "music"},
			wantForwarded: false,
		},
		{
			name:          "state is printed line by line",
			inst:          &fakeInstance{fakeMixer: fakeMixer{resp: state}},
			cmd:           mixer.GetState{},
			wantForwarded: true,
			wantCmds:      []mixer.Command{mixer.GetState{}},
			wantOut:       "music: channels: 2 gain-factor: 1\nvoice: channels: 1 gain-factor: 0.5\n",
		},
		{
			name:          "action is forwarded once",
			inst:          &fakeInstance{},
			cmd:           mixer.SetGainFactor{Name: "music", Factor: 0.5},
			wantForwarded: true,
			wantCmds:      []mixer.Command{mixer.SetGainFactor{Name: "music", Factor: 0.5}},
		},
		{
			name:          "remote error is returned",
			inst:          &fakeInstance{fakeMixer: fakeMixer{err: boom}},
			cmd:           mixer.RemoveStrip{Name: "music"},
			wantForwarded: true,
			wantErr:       boom,
			wantCmds:      []mixer.Command{mixer.RemoveStrip{Name: "music"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			forwarded, err := Handshake(context.Background(), tt.inst, tt.cmd, &out, slog.New(slog.DiscardHandler))

			assert.Equal(t, tt.wantForwarded, forwarded)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, 1, tt.inst.probes)
			assert.Equal(t, tt.wantCmds, tt.inst.commands())
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

type recordedCall struct {
	method string
	args   []interface{}
}

// fakeObject answers calls with fixed replies. Unused BusObject methods
// are left to the nil embedded interface.
type fakeObject struct {
	dbus.BusObject

	calls []recordedCall
	body  []interface{}
	err   error
}

func (o *fakeObject) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	o.calls = append(o.calls, recordedCall{method: method, args: args})

	return &dbus.Call{Method: method, Args: args, Body: o.body, Err: o.err}
}

func TestClientSubmitEncodesArguments(t *testing.T) {
	t.Parallel()

	names := Names{Bus: "com.example.Mixer"}

	tests := []struct {
		cmd  mixer.Command
		want recordedCall
	}{
		{mixer.SetGainFactor{Name: "music", Factor: 0.5}, recordedCall{"com.example.Mixer.SetGainFactor", []interface{}{"music", int32(50)}}},
		{mixer.SetGainFactor{Name: "music", Factor: 2}, recordedCall{"com.example.Mixer.SetGainFactor", []interface{}{"music", int32(200)}}},
		{mixer.SetGainFactor{Name: "music", Factor: 0}, recordedCall{"com.example.Mixer.SetGainFactor", []interface{}{"music", int32(0)}}},
		{mixer.AddStrip{Name: "voice"}, recordedCall{"com.example.Mixer.AddStrip", []interface{}{"voice"}}},
		{mixer.RemoveStrip{Name: "voice"}, recordedCall{"com.example.Mixer.RemoveStrip", []interface{}{"voice"}}},
		{mixer.SetChannels{Name: "voice", Count: 6}, recordedCall{"com.example.Mixer.SetChannels", []interface{}{"voice", int32(6)}}},
	}

	for _, tt := range tests {
		obj := &fakeObject{}
		client := &Client{obj: obj, names: names, timeout: DefaultCallTimeout}

		_, err := client.Submit(context.Background(), tt.cmd)
		require.NoError(t, err)
		assert.Equal(t, []recordedCall{tt.want}, obj.calls)
	}
}

func TestClientSubmitGetState(t *testing.T) {
	t.Parallel()

	lines := []string{"music: channels: 2 gain-factor: 1"}
	client := &Client{obj: &fakeObject{body: []interface{}{lines}}, timeout: DefaultCallTimeout}

	resp, err := client.Submit(context.Background(), mixer.GetState{})
	require.NoError(t, err)
	assert.Equal(t, lines, resp.State)
}

func TestClientSubmitMapsErrors(t *testing.T) {
	t.Parallel()

	names := Names{}
	reply := names.toDBusError(&mixer.UnknownStripError{Name: "ghost"})
	client := &Client{obj: &fakeObject{err: reply}, names: names, timeout: DefaultCallTimeout}

	_, err := client.Submit(context.Background(), mixer.RemoveStrip{Name: "ghost"})

	var unknown *mixer.UnknownStripError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
}
