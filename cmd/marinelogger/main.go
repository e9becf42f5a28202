package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/forward"
	"github.com/aldas/go-marine-logger/internal/config"
	"github.com/aldas/go-marine-logger/internal/logging"
)

func main() {
	configPath := flag.String("config", "marinelogger.toml", "path to configuration file")
	verbose := flag.Int("v", -1, "log verbosity level, overrides configuration")
	flag.Parse()

	if err := run(*configPath, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "marinelogger: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, verbose int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose >= 0 {
		cfg.Logger.Verbose = verbose
	}
	logger := logging.New(cfg.Logger.Prefix, cfg.Logger.Verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	drivers, err := buildDrivers(sources, logger)
	if err != nil {
		return err
	}
	if len(drivers) == 0 {
		return errors.New("no supported sources configured")
	}

	fwdConfig := forward.Config{Subject: cfg.Logger.NATS.Subject, Logger: logger}
	if cfg.Logger.Console {
		fwdConfig.Console = os.Stdout
	}
	if cfg.Logger.NATS.URL != "" {
		nc, err := forward.Connect(cfg.Logger.NATS.URL, cfg.Logger.Prefix)
		if err != nil {
			return fmt.Errorf("nats connect failed: %w", err)
		}
		defer nc.Drain()
		fwdConfig.Publisher = nc
		logger.Info().Str("url", cfg.Logger.NATS.URL).Str("subject", cfg.Logger.NATS.Subject).Msg("forwarding to NATS")
	}

	q := marinelog.NewQueue(cfg.Logger.QueueSize)
	fwd := forward.New(q, fwdConfig)

	fwdDone := make(chan error, 1)
	go func() {
		fwdDone <- fwd.Run(context.Background())
	}()

	runDrivers(ctx, q, drivers, logger)
	q.Close()

	if err := <-fwdDone; err != nil {
		return err
	}
	logger.Info().Msg("all sources finished")
	return nil
}
