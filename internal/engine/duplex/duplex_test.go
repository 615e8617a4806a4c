package duplex

import (
	"io"
	"log/slog"
	"testing"
	"unsafe"

	"github.com/alkime/jackmixer/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halver writes half of its input to its output.
type halver struct {
	in, out engine.Port
}

func (h halver) Process(nframes uint32) engine.Control {
	in := h.in.Buffer(nframes)
	out := h.out.Buffer(nframes)
	for i := range out {
		out[i] = in[i] / 2
	}

	return engine.Continue
}

func f32Bytes(samples ...float32) []byte {
	b := make([]byte, len(samples)*4)
	copy(asFloat32(b), samples)

	return b
}

func newTestDevice(t *testing.T, channels, maxFrames int) (*device, *engine.Soft) {
	t.Helper()

	graph := engine.NewSoft(engine.SoftOptions{MaxFrames: maxFrames})
	conf := &Config{Backend: "null", SampleRate: 48_000, Channels: channels, PeriodFrames: 4}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, ok := New(conf, graph, logger).(*device)
	require.True(t, ok)

	return d, graph
}

func TestProcess_DeinterleavesAndInterleaves(t *testing.T) {
	t.Parallel()

	d, graph := newTestDevice(t, 2, 16)

	c, err := graph.Open("mixer/music")
	require.NoError(t, err)

	var ports []engine.Port
	for _, name := range []string{"in-1", "in-2"} {
		p, err := c.RegisterPort(name, engine.Input)
		require.NoError(t, err)
		ports = append(ports, p)
	}
	for _, name := range []string{"out-1", "out-2"} {
		p, err := c.RegisterPort(name, engine.Output)
		require.NoError(t, err)
		ports = append(ports, p)
	}

	require.NoError(t, c.SetProcessHandler(multi{
		halver{in: ports[0], out: ports[2]},
		halver{in: ports[1], out: ports[3]},
	}))
	require.NoError(t, c.Activate())

	// L/R interleaved, 3 frames
	in := f32Bytes(2, 20, 4, 40, 6, 60)
	out := make([]byte, len(in))

	d.process(out, in, 3)

	assert.Equal(t, []float32{1, 10, 2, 20, 3, 30}, asFloat32(out))
}

func TestProcess_OversizedBlockIsSilent(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t, 1, 2)

	out := f32Bytes(5, 5, 5, 5)
	d.process(out, f32Bytes(1, 1, 1, 1), 4)

	assert.Equal(t, []float32{0, 0, 0, 0}, asFloat32(out))
}

func TestProcess_NoInputFeedsSilence(t *testing.T) {
	t.Parallel()

	d, _ := newTestDevice(t, 1, 8)

	out := f32Bytes(5, 5)
	d.process(out, nil, 2)

	assert.Equal(t, []float32{0, 0}, asFloat32(out))
}

func TestBackends(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "auto", "jack", "alsa", "pulseaudio", "null"} {
		_, err := Backends(name)
		require.NoError(t, err, name)
	}

	_, err := Backends("coreaudio-please")
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestAsFloat32_SharesMemory(t *testing.T) {
	t.Parallel()

	b := make([]byte, 8)
	f := asFloat32(b)
	require.Len(t, f, 2)

	f[1] = 1.5
	assert.Equal(t, float32(1.5), *(*float32)(unsafe.Pointer(&b[4])))
	assert.Nil(t, asFloat32(nil))
}

// multi runs several handlers as one.
type multi []engine.ProcessHandler

func (m multi) Process(nframes uint32) engine.Control {
	for _, h := range m {
		h.Process(nframes)
	}

	return engine.Continue
}
