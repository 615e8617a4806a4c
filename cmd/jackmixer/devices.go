package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/alkime/jackmixer/internal/config"
	"github.com/alkime/jackmixer/internal/engine"
	"github.com/alkime/jackmixer/internal/engine/duplex"
	"github.com/alkime/jackmixer/internal/midi"
)

// listDevices prints the audio devices of the configured backend and the
// MIDI inputs.
func listDevices(cfg *config.Config, out io.Writer, log *slog.Logger) error {
	ctx := context.Background()

	device := duplex.New(&duplex.Config{
		Backend:      cfg.AudioBackend,
		SampleRate:   int(cfg.SampleRate),
		Channels:     int(cfg.AudioChannels),
		PeriodFrames: int(cfg.PeriodFrames),
	}, engine.NewSoft(engine.SoftOptions{}), log)

	infos, err := device.EnumerateDevices(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Audio devices (%s):\n", cfg.AudioBackend)

	for _, info := range infos {
		def := ""
		if info.IsDefault {
			def = " (default)"
		}

		fmt.Fprintf(out, "  %-8s %s%s\n", info.Kind, info.Name, def)
	}

	names, err := midi.InputNames()
	if err != nil {
		log.Warn("MIDI inputs unavailable", "error", err)

		return nil
	}

	fmt.Fprintln(out, "MIDI inputs:")

	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}

	return nil
}
