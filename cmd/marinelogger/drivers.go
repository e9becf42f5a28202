package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/device"
	"github.com/aldas/go-marine-logger/internal/config"
	"github.com/rs/zerolog"
)

type namedDriver struct {
	name   string
	driver device.Driver
}

// buildDrivers creates driver for every configured source. Sources with unsupported type are skipped with warning.
func buildDrivers(sources []config.Source, logger zerolog.Logger) ([]namedDriver, error) {
	result := make([]namedDriver, 0, len(sources))
	for _, s := range sources {
		capability := device.Lookup(s.Type)
		if !capability.Supported() {
			logger.Warn().Str("source", s.Name()).Str("type", s.Type).Msg("unsupported source type, skipping")
			continue
		}
		opts, err := capability.ParseConfig(s)
		if err != nil {
			return nil, fmt.Errorf("source %v: %w", s.Name(), err)
		}
		drv, err := capability.New(opts, logger)
		if err != nil {
			return nil, fmt.Errorf("source %v: %w", s.Name(), err)
		}
		result = append(result, namedDriver{name: opts.SourceName(), driver: drv})
	}
	return result, nil
}

// runDrivers starts all drivers and blocks until every driver has finished. Drivers failing to start are logged
// and skipped.
func runDrivers(ctx context.Context, q *marinelog.Queue, drivers []namedDriver, logger zerolog.Logger) {
	wg := sync.WaitGroup{}
	for _, d := range drivers {
		l := logger.With().Str("source", d.name).Logger()
		if err := d.driver.Startup(ctx); err != nil {
			l.Error().Err(err).Msg("source startup failed")
			continue
		}

		wg.Add(1)
		go func(d namedDriver, l zerolog.Logger) {
			defer wg.Done()
			defer func() {
				if err := d.driver.Shutdown(); err != nil {
					l.Warn().Err(err).Msg("source shutdown failed")
				}
			}()

			err := d.driver.Run(ctx, q)
			switch {
			case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled), errors.Is(err, marinelog.ErrQueueClosed):
				l.Info().Msg("source stopped")
			default:
				l.Error().Err(err).Msg("source stopped with error")
			}
		}(d, l)
	}
	wg.Wait()
}
