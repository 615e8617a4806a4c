// Package midi maps MIDI control changes onto strip gains.
package midi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/alkime/jackmixer/pkg/channels"
	gm "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const (
	queueDepth = 256
	burstIdle  = 5 * time.Millisecond
)

// ErrNoInput is returned when no input port matches the configured prefix.
var ErrNoInput = errors.New("no matching MIDI input")

// Bindings maps controller numbers to strip names.
type Bindings map[uint8]string

// PercentFromValue scales a 7-bit controller value onto 0..200 percent.
func PercentFromValue(v uint8) int {
	return int(math.Round(float64(min(v, 127)) * mixer.MaxGainPercent / 127))
}

type change struct {
	strip   string
	percent int
}

// Controller turns control changes into SetGainFactor commands. Handle runs
// on the driver's thread and never blocks; Run submits on its own
// goroutine.
type Controller struct {
	mixer    mixer.Submitter
	bindings Bindings
	logger   *slog.Logger
	changes  chan change
}

func NewController(m mixer.Submitter, bindings Bindings, logger *slog.Logger) *Controller {
	return &Controller{
		mixer:    m,
		bindings: bindings,
		logger:   logger.With("component", "midi"),
		changes:  make(chan change, queueDepth),
	}
}

// Handle is the gomidi listener callback.
func (c *Controller) Handle(msg gm.Message, _ int32) {
	var ch, cc, value uint8
	if !msg.GetControlChange(&ch, &cc, &value) {
		return
	}

	strip, ok := c.bindings[cc]
	if !ok {
		return
	}

	// drop when the worker is behind; the next message carries a newer value
	_ = channels.SendNonBlock(c.changes, change{strip: strip, percent: PercentFromValue(value)})
}

// Run submits queued changes until ctx is cancelled. Bursts are coalesced
// so only the latest value per strip is sent.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case first := <-c.changes:
			for _, ch := range c.coalesce(first) {
				c.apply(ctx, ch)
			}
		}
	}
}

// coalesce collects the burst following first and keeps only the latest
// value per strip, in first-seen order.
func (c *Controller) coalesce(first change) []change {
	burst := append([]change{first}, channels.ReceiveAll(c.changes, burstIdle, queueDepth)...)

	batch := make([]change, 0, len(burst))
	index := make(map[string]int, len(burst))

	for _, next := range burst {
		if i, ok := index[next.strip]; ok {
			batch[i] = next
			continue
		}

		index[next.strip] = len(batch)
		batch = append(batch, next)
	}

	return batch
}

func (c *Controller) apply(ctx context.Context, ch change) {
	factor, err := mixer.GainFromPercent(ch.percent)
	if err != nil {
		c.logger.Warn("invalid gain from controller", "strip", ch.strip, "percent", ch.percent, "error", err)
		return
	}

	if _, err := c.mixer.Submit(ctx, mixer.SetGainFactor{Name: ch.strip, Factor: factor}); err != nil {
		c.logger.Warn("midi gain change failed", "strip", ch.strip, "percent", ch.percent, "error", err)
		return
	}

	c.logger.Debug("midi gain change", "strip", ch.strip, "percent", ch.percent)
}

// Input is an open MIDI input feeding a Controller.
type Input struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
}

// Attach opens the first rtmidi input whose name starts with prefix and
// routes its messages to c.Handle.
func (c *Controller) Attach(prefix string) (*Input, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open rtmidi driver: %w", err)
	}

	in, err := findInput(driver, prefix)
	if err != nil {
		driver.Close()
		return nil, err
	}

	if err := in.Open(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("open MIDI input %q: %w", in.String(), err)
	}

	stop, err := gm.ListenTo(in, c.Handle)
	if err != nil {
		in.Close()
		driver.Close()

		return nil, fmt.Errorf("listen to MIDI input %q: %w", in.String(), err)
	}

	c.logger.Info("MIDI input attached", "port", in.String(), "bindings", len(c.bindings))

	return &Input{driver: driver, in: in, stop: stop}, nil
}

// Close stops listening and releases the driver.
func (i *Input) Close() error {
	i.stop()

	return errors.Join(i.in.Close(), i.driver.Close())
}

// InputNames lists the rtmidi input ports.
func InputNames() ([]string, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open rtmidi driver: %w", err)
	}
	defer driver.Close()

	ins, err := driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}

	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}

	return names, nil
}

func findInput(driver *rtmididrv.Driver, prefix string) (drivers.In, error) {
	ins, err := driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}

	for _, in := range ins {
		if strings.HasPrefix(in.String(), prefix) {
			return in, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNoInput, prefix)
}
