// Package device contains capability registry that maps configured source types to device drivers and the drivers
// themselves.
package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/aldas/go-marine-logger"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidOptions is returned when driver factory is given options parsed for other device class
	ErrInvalidOptions = errors.New("device: invalid options for driver")
	// ErrNotStarted is returned when driver is run before successful Startup
	ErrNotStarted = errors.New("device: driver is not started")
)

// Driver is capability bundle of single device class.
type Driver interface {
	// Startup opens the device.
	Startup(ctx context.Context) error
	// Run reads device and pushes messages to queue. Blocks until context is cancelled or device fails.
	Run(ctx context.Context, q *marinelog.Queue) error
	// Channels returns channel name map message for the source
	Channels() marinelog.Message
	// Shutdown closes the device.
	Shutdown() error
}

// Section is configuration section of single source.
type Section interface {
	// Name returns name of the section (source name)
	Name() string
	// Decode decodes section keys into v
	Decode(v any) error
}

// Options are parsed options of single source
type Options interface {
	SourceName() string
}

// ConfigParser parses and validates source configuration section for single device class
type ConfigParser func(section Section) (Options, error)

// Factory creates driver from options parsed by the ConfigParser of the same capability
type Factory func(options Options, logger zerolog.Logger) (Driver, error)

// Capability binds configuration tag to driver factory and config parser
type Capability struct {
	Tag         string
	New         Factory
	ParseConfig ConfigParser
}

// Supported reports if capability resolves to an actual driver. Zero Capability means unsupported device class.
func (c Capability) Supported() bool {
	return c.New != nil
}

// CommonOptions are options shared by all device classes
type CommonOptions struct {
	// Name is source name, published on ChannelName. Defaults to configuration section name.
	Name string `toml:"name"`
	// SourceNum overrides source ID. Must be within the range of device class. 0 means default for the class.
	SourceNum int `toml:"sourcenum"`
}

func (o CommonOptions) SourceName() string {
	return o.Name
}

// resolveSource returns source ID for device class. Class range is base..base|0x0F.
func resolveSource(requested int, base uint8) (uint8, error) {
	if requested == 0 {
		return base, nil
	}
	limit := int(base | 0x0F)
	if requested < int(base) || requested > limit {
		return 0, fmt.Errorf("device: source number 0x%02x outside of range 0x%02x-0x%02x", requested, base, limit)
	}
	return uint8(requested), nil
}

// sourceLogger logs to process log and in-band as log channel messages of the source.
type sourceLogger struct {
	source uint8
	queue  *marinelog.Queue
	logger zerolog.Logger
}

func (l sourceLogger) info(ctx context.Context, msg string) {
	l.logger.Info().Msg(msg)
	l.push(ctx, marinelog.ChannelLogInfo, msg)
}

func (l sourceLogger) warn(ctx context.Context, msg string) {
	l.logger.Warn().Msg(msg)
	l.push(ctx, marinelog.ChannelLogWarning, msg)
}

func (l sourceLogger) error(ctx context.Context, msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
	l.push(ctx, marinelog.ChannelLogError, fmt.Sprintf("%v: %v", msg, err))
}

func (l sourceLogger) push(ctx context.Context, channel uint8, msg string) {
	if l.queue == nil {
		return
	}
	if err := l.queue.Push(ctx, marinelog.NewString(l.source, channel, msg)); err != nil {
		l.logger.Debug().Err(err).Msg("could not queue log message")
	}
}

// announce pushes source name and channel map messages to queue
func announce(ctx context.Context, q *marinelog.Queue, source uint8, name string, channels marinelog.Message) error {
	if err := q.Push(ctx, marinelog.NewString(source, marinelog.ChannelName, name)); err != nil {
		return err
	}
	return q.Push(ctx, channels)
}

// commonChannels are names of channels shared by all sources
func commonChannels() []string {
	return []string{"Name", "Channels", "Timestamp", "Raw"}
}
