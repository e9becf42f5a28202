package device

import (
	"context"
	"fmt"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/rs/zerolog"
)

// TimerOptions configures software timer source (tags TIMER and TICK)
type TimerOptions struct {
	CommonOptions
	// Frequency is number of timestamps emitted per second
	Frequency int `toml:"frequency"`
}

// ParseTimerConfig parses timer source section
func ParseTimerConfig(section Section) (Options, error) {
	opts := &TimerOptions{
		CommonOptions: CommonOptions{Name: section.Name()},
		Frequency:     10,
	}
	if err := section.Decode(opts); err != nil {
		return nil, fmt.Errorf("timer source %v: %w", section.Name(), err)
	}
	if opts.Frequency < 1 || opts.Frequency > 1000 {
		return nil, fmt.Errorf("timer source %v: frequency must be in range 1-1000, got %v", section.Name(), opts.Frequency)
	}
	if _, err := resolveSource(opts.SourceNum, marinelog.SourceTimer); err != nil {
		return nil, fmt.Errorf("timer source %v: %w", section.Name(), err)
	}
	return opts, nil
}

// TimerDriver emits millisecond timestamps on ChannelTimestamp with fixed frequency
type TimerDriver struct {
	options TimerOptions
	source  uint8
	logger  zerolog.Logger

	timeNow func() time.Time
}

// NewTimer creates timer driver
func NewTimer(options Options, logger zerolog.Logger) (Driver, error) {
	opts, ok := options.(*TimerOptions)
	if !ok {
		return nil, ErrInvalidOptions
	}
	source, err := resolveSource(opts.SourceNum, marinelog.SourceTimer)
	if err != nil {
		return nil, err
	}
	return &TimerDriver{
		options: *opts,
		source:  source,
		logger:  logger.With().Str("source", opts.Name).Logger(),
		timeNow: time.Now,
	}, nil
}

func (d *TimerDriver) Startup(ctx context.Context) error {
	return nil
}

func (d *TimerDriver) Run(ctx context.Context, q *marinelog.Queue) error {
	if err := announce(ctx, q, d.source, d.options.Name, d.Channels()); err != nil {
		return err
	}
	d.logger.Debug().Int("frequency", d.options.Frequency).Msg("timer started")

	ticker := time.NewTicker(time.Second / time.Duration(d.options.Frequency))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ts := uint32(d.timeNow().UnixMilli())
			if err := q.Push(ctx, marinelog.NewTimestamp(d.source, marinelog.ChannelTimestamp, ts)); err != nil {
				return err
			}
		}
	}
}

func (d *TimerDriver) Channels() marinelog.Message {
	return marinelog.NewStringArray(d.source, marinelog.ChannelMap, commonChannels())
}

func (d *TimerDriver) Shutdown() error {
	return nil
}
