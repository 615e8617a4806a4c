// Package duplex drives an engine.Soft graph from a malgo duplex device, so
// the mixer's ports are fed by a real audio backend (JACK, ALSA, PulseAudio).
package duplex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/alkime/jackmixer/internal/engine"
	"github.com/alkime/jackmixer/pkg/collections"
	"github.com/gen2brain/malgo"
)

var ErrUnknownBackend = errors.New("unknown audio backend")

// Config selects the backend and the stream shape.
type Config struct {
	// Backend is one of auto, jack, alsa, pulseaudio, null.
	Backend      string
	SampleRate   int
	Channels     int
	PeriodFrames int
}

type Device interface {
	// EnumerateDevices lists capture and playback devices of the configured
	// backend.
	EnumerateDevices(ctx context.Context) ([]Info, error)

	// Open initializes the duplex device. The graph is not driven until
	// Start is called.
	Open(ctx context.Context) error

	// Start starts the device; a started device is a no-op.
	Start(ctx context.Context) error
	// Stop stops the device. If it was never opened this is a no-op.
	Stop(ctx context.Context) error

	IsStarted() bool

	// Dealloc frees the device and its context.
	Dealloc(ctx context.Context)
}

type device struct {
	conf  *Config
	graph *engine.Soft
	log   *slog.Logger

	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device

	// scratch, one slice per channel, sized to graph.MaxFrames()
	capture  [][]float32
	playback [][]float32
}

// New returns a Device that runs graph.Cycle once per device period.
func New(conf *Config, graph *engine.Soft, logger *slog.Logger) Device {
	d := &device{conf: conf, graph: graph, log: logger}

	channels := max(conf.Channels, 1)
	d.capture = make([][]float32, channels)
	d.playback = make([][]float32, channels)

	for ch := range channels {
		d.capture[ch] = make([]float32, graph.MaxFrames())
		d.playback[ch] = make([]float32, graph.MaxFrames())
	}

	return d
}

func (d *device) EnumerateDevices(ctx context.Context) ([]Info, error) {
	backends, err := Backends(d.conf.Backend)
	if err != nil {
		return nil, err
	}

	devCtx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	playbackDevices, err := devCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to get playback devices: %w", err)
	}

	infos := collections.Apply(captureDevices, infoFor("capture"))

	return append(infos, collections.Apply(playbackDevices, infoFor("playback"))...), nil
}

func (d *device) Open(ctx context.Context) error {
	if d.mgDevice != nil {
		return nil
	}

	backends, err := Backends(d.conf.Backend)
	if err != nil {
		return err
	}

	mgCtx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(msg string) {
		d.log.Debug("malgo audio device log", "msg", msg)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Duplex)
	devCnf.Capture.Format = malgo.FormatF32
	devCnf.Capture.Channels = uint32(len(d.capture))
	devCnf.Playback.Format = malgo.FormatF32
	devCnf.Playback.Channels = uint32(len(d.playback))
	devCnf.SampleRate = uint32(d.conf.SampleRate)
	devCnf.PeriodSizeInFrames = uint32(d.conf.PeriodFrames)

	callBacks := malgo.DeviceCallbacks{
		Data: d.process,
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callBacks)
	if err != nil {
		uninitializeContext(mgCtx)

		return fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice

	d.log.Info("audio device opened",
		"backend", d.conf.Backend,
		"sampleRate", d.conf.SampleRate,
		"channels", len(d.capture),
		"periodFrames", d.conf.PeriodFrames,
	)

	return nil
}

func (d *device) Start(ctx context.Context) error {
	if d.mgDevice == nil {
		return fmt.Errorf("device nil. have you Open()ed it?")
	}

	if d.mgDevice.IsStarted() {
		// noop
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

func (d *device) Stop(ctx context.Context) error {
	if d.mgDevice == nil {
		// noop
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

func (d *device) IsStarted() bool {
	if d.mgDevice == nil {
		return false
	}

	return d.mgDevice.IsStarted()
}

func (d *device) Dealloc(ctx context.Context) {
	if d.mgDevice == nil {
		return
	}

	d.mgDevice.Uninit()
	uninitializeContext(d.mgCtx)
	d.mgDevice = nil
	d.mgCtx = nil
}

// process is the device data callback. It runs on the backend's audio
// thread and must not allocate.
func (d *device) process(out, in []byte, framecount uint32) {
	outF := asFloat32(out)
	inF := asFloat32(in)
	n := int(framecount)
	channels := len(d.capture)

	if n > len(d.capture[0]) || len(outF) < n*channels {
		clear(outF)

		return
	}

	for ch := range channels {
		dst := d.capture[ch]
		if len(inF) < n*channels {
			clear(dst[:n])

			continue
		}

		for i := range n {
			dst[i] = inF[i*channels+ch]
		}
	}

	d.graph.Cycle(d.capture, d.playback, framecount)

	for ch := range channels {
		src := d.playback[ch]
		for i := range n {
			outF[i*channels+ch] = src[i]
		}
	}
}

// Backends maps a backend name to malgo's backend list. A nil list lets
// miniaudio pick.
func Backends(name string) ([]malgo.Backend, error) {
	switch name {
	case "", "auto":
		return nil, nil
	case "jack":
		return []malgo.Backend{malgo.BackendJack}, nil
	case "alsa":
		return []malgo.Backend{malgo.BackendAlsa}, nil
	case "pulseaudio":
		return []malgo.Backend{malgo.BackendPulseaudio}, nil
	case "null":
		return []malgo.Backend{malgo.BackendNull}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

type Info struct {
	Kind        string
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

func infoFor(kind string) func(malgo.DeviceInfo) Info {
	return func(mdi malgo.DeviceInfo) Info {
		formats := make([]string, len(mdi.Formats))
		for i, mf := range mdi.Formats {
			formats[i] = fmt.Sprintf("(SampleSizeBytes: %d, Channels: %d, SampleRate: %d)",
				malgo.SampleSizeInBytes(mf.Format),
				mf.Channels, mf.SampleRate)
		}

		return Info{
			Kind:        kind,
			Name:        mdi.Name(),
			IsDefault:   mdi.IsDefault != 0,
			FormatCount: int(mdi.FormatCount),
			Formats:     formats,
		}
	}
}

// asFloat32 reinterprets native-endian f32 sample bytes in place.
func asFloat32(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/4)
}

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	deviceCtx.Free()
}
