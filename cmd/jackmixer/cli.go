package main

import (
	"errors"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/alkime/jackmixer/internal/mixer"
)

// CLI defines the jackmixer command line.
type CLI struct {
	Strip       string `short:"s" name:"strip" placeholder:"NAME" help:"Specifies which strip to perform commands on"`
	GainFactor  *int   `short:"g" name:"gain-factor" placeholder:"FACTOR" help:"Sets the gain factor from 0 to 200 (100 is unity)"`
	AddStrip    bool   `short:"a" name:"add-strip" help:"Adds a new strip"`
	RemoveStrip bool   `short:"r" name:"remove-strip" help:"Removes an existing strip"`
	SetStrips   *int   `short:"c" name:"set-strips" placeholder:"COUNT" help:"Sets the number of channels of the strip"`

	Watch       bool             `short:"w" help:"Watch and adjust a running mixer"`
	ListDevices bool             `name:"list-devices" help:"List audio and MIDI devices and exit"`
	Version     kong.VersionFlag `help:"Print version and exit"`
}

// Validate checks flag values before anything touches the bus or the
// audio engine.
func (c *CLI) Validate() error {
	if c.GainFactor != nil && (*c.GainFactor < 0 || *c.GainFactor > mixer.MaxGainPercent) {
		return fmt.Errorf("gain factor needs to be a number (0..%d)", mixer.MaxGainPercent)
	}

	if c.SetStrips != nil && *c.SetStrips <= 0 {
		return errors.New("set strips requires a numeric argument greater than 0")
	}

	if c.hasAction() && c.Strip == "" {
		return errors.New("--strip is required with --gain-factor, --add-strip, --remove-strip and --set-strips")
	}

	return nil
}

func (c *CLI) hasAction() bool {
	return c.GainFactor != nil || c.AddStrip || c.RemoveStrip || c.SetStrips != nil
}

// Command is the one command the flags ask for. Precedence: gain-factor,
// add-strip, remove-strip, set-strips, else a state query.
func (c *CLI) Command() mixer.Command {
	switch {
	case c.GainFactor != nil:
		// range checked in Validate
		factor, _ := mixer.GainFromPercent(*c.GainFactor)

		return mixer.SetGainFactor{Name: c.Strip, Factor: factor}
	case c.AddStrip:
		return mixer.AddStrip{Name: c.Strip}
	case c.RemoveStrip:
		return mixer.RemoveStrip{Name: c.Strip}
	case c.SetStrips != nil:
		return mixer.SetChannels{Name: c.Strip, Count: *c.SetStrips}
	default:
		return mixer.GetState{}
	}
}
