package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/alkime/jackmixer/internal/config"
	"github.com/alkime/jackmixer/internal/ipc"
	"github.com/alkime/jackmixer/internal/logger"
	"github.com/alkime/jackmixer/internal/tui/watch"
)

var version = "dev"

func main() {
	cli := &CLI{} //nolint:exhaustruct // Kong fills in flag fields
	kctx := kong.Parse(cli,
		kong.Name("jackmixer"),
		kong.Description("A lightweight mixer for JACK."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	err := run(cli)
	kctx.FatalIfErrorf(err)
}

func run(cli *CLI) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.SetupLogger(cfg)

	if cli.ListDevices {
		return listDevices(cfg, os.Stdout, log)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	names := ipc.Names{Bus: cfg.BusName}

	if cli.Watch {
		client, err := ipc.Dial(ctx, names, cfg.CallTimeout)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.InstanceRunning(ctx); err != nil {
			return fmt.Errorf("no running jackmixer on %s: %w", cfg.BusName, err)
		}

		return watch.Run(ctx, client, cfg.WatchInterval)
	}

	forwarded, err := ipc.Forward(ctx, names, cfg.CallTimeout, cli.Command(), os.Stdout, log)
	if forwarded {
		return err
	}

	err = runOwner(ctx, cfg, cli, log)
	if errors.Is(err, ipc.ErrNameTaken) {
		return fmt.Errorf("another jackmixer started at the same time: %w", err)
	}

	return err
}
