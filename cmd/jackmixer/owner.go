package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alkime/jackmixer/internal/config"
	"github.com/alkime/jackmixer/internal/engine"
	"github.com/alkime/jackmixer/internal/engine/duplex"
	"github.com/alkime/jackmixer/internal/ipc"
	"github.com/alkime/jackmixer/internal/midi"
	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/alkime/jackmixer/internal/server"
	"github.com/alkime/jackmixer/pkg/channels"
	"golang.org/x/sync/errgroup"
)

const signalTimeout = 100 * time.Millisecond

// runOwner claims the bus name and runs the mixer until ctx is cancelled
// or one of its front ends fails.
func runOwner(ctx context.Context, cfg *config.Config, cli *CLI, log *slog.Logger) error {
	graph := engine.NewSoft(engine.SoftOptions{MaxPorts: cfg.MaxPorts})
	registry := mixer.NewRegistry(graph, mixer.RegistryConfig{
		ClientPrefix: cfg.ClientPrefix,
		Policy:       cfg.ChannelPolicy(),
	}, log.With("component", "registry"))

	g, gctx := errgroup.WithContext(ctx)

	signals := make(chan mixer.Event, mixer.DefaultQueueDepth)
	changes := make(chan mixer.Event, mixer.DefaultQueueDepth)
	events := channels.NewBroadcaster[mixer.Event]()

	if err := events.SubscribeWithTimeout(signals, signalTimeout); err != nil {
		return err
	}

	if err := events.Subscribe(changes); err != nil {
		return err
	}

	input, err := events.Run(gctx)
	if err != nil {
		return err
	}

	loop := mixer.NewLoop(registry, log,
		mixer.WithQueueDepth(cfg.QueueDepth),
		mixer.WithEvents(input),
	)

	bus, err := ipc.Listen(gctx, ipc.Names{Bus: cfg.BusName}, loop, log)
	if err != nil {
		return err
	}

	if err := seed(loop, cfg, cli, log); err != nil {
		return errors.Join(err, registry.DestroyAll())
	}

	g.Go(func() error { return bus.Serve(gctx, signals) })
	g.Go(func() error { return logChanges(gctx, changes, log) })

	if cfg.HTTPAddr != "" {
		api := server.New(cfg, loop, log)
		g.Go(func() error { return api.Run(gctx) })
	}

	if cfg.MIDIIn != "" {
		controller := midi.NewController(loop, cfg.MIDIBindings, log)

		in, err := controller.Attach(cfg.MIDIIn)
		if err != nil {
			log.Warn("MIDI control disabled", "input", cfg.MIDIIn, "error", err)
		} else {
			defer in.Close()

			g.Go(func() error { return controller.Run(gctx) })
		}
	}

	device := duplex.New(&duplex.Config{
		Backend:      cfg.AudioBackend,
		SampleRate:   int(cfg.SampleRate),
		Channels:     int(cfg.AudioChannels),
		PeriodFrames: int(cfg.PeriodFrames),
	}, graph, log.With("component", "duplex"))

	if err := startDevice(gctx, device); err != nil {
		log.Error("audio device unavailable", "backend", cfg.AudioBackend, "error", err)
		// fall through so the loop tears down the strips
		g.Go(func() error { return err })
	}

	log.Info("jackmixer running", "bus", cfg.BusName, "strips", registry.Len())

	loopErr := loop.Run(gctx)

	if device.IsStarted() {
		if err := device.Stop(context.Background()); err != nil {
			log.Warn("stopping audio device", "error", err)
		}
	}
	device.Dealloc(context.Background())

	stats := graph.Stats()
	log.Info("audio graph closed",
		"registered", stats.Registered,
		"unregistered", stats.Unregistered,
		"skippedCycles", stats.SkippedCycles,
	)

	closeErr := graph.Close()
	groupErr := g.Wait()
	events.Wait()

	for i, st := range events.Stats() {
		if st.Dropped > 0 {
			log.Debug("events dropped", "subscriber", i, "dropped", st.Dropped)
		}
	}

	return errors.Join(loopErr, closeErr, groupErr)
}

// seed creates the default strip, the seed file's strips and finally
// applies the action the owner was started with.
func seed(loop *mixer.Loop, cfg *config.Config, cli *CLI, log *slog.Logger) error {
	if cfg.DefaultStrip != "" {
		if _, err := loop.Apply(mixer.AddStrip{Name: cfg.DefaultStrip}); err != nil {
			return fmt.Errorf("create default strip %q: %w", cfg.DefaultStrip, err)
		}
	}

	if cfg.SeedFile != "" {
		s, err := config.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}

		cmds, err := s.Commands()
		if err != nil {
			return err
		}

		for _, cmd := range cmds {
			_, err := loop.Apply(cmd)

			var exists *mixer.AlreadyExistsError
			if errors.As(err, &exists) {
				continue
			}

			if err != nil {
				return fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
			}
		}
	}

	cmd := cli.Command()
	if _, ok := cmd.(mixer.GetState); ok {
		return nil
	}

	if _, err := loop.Apply(cmd); err != nil {
		log.Error("startup command failed", "strip", cli.Strip, "error", err)
	}

	return nil
}

func startDevice(ctx context.Context, device duplex.Device) error {
	if err := device.Open(ctx); err != nil {
		return err
	}

	return device.Start(ctx)
}

func logChanges(ctx context.Context, changes <-chan mixer.Event, log *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-changes:
			log.Debug("strip changed",
				"kind", ev.Kind, "strip", ev.Strip, "gain", ev.GainFactor, "channels", ev.Channels)
		}
	}
}
