package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/mp"
	"github.com/rs/zerolog"
)

// MPOptions configures MessagePack speaking serial device (tags MP and SL)
type MPOptions struct {
	CommonOptions
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

// ParseMPConfig parses MessagePack device source section
func ParseMPConfig(section Section) (Options, error) {
	opts := &MPOptions{
		CommonOptions: CommonOptions{Name: section.Name()},
		Baud:          115200,
	}
	if err := section.Decode(opts); err != nil {
		return nil, fmt.Errorf("mp source %v: %w", section.Name(), err)
	}
	if opts.Port == "" {
		return nil, fmt.Errorf("mp source %v: port is required", section.Name())
	}
	if opts.Baud <= 0 {
		return nil, fmt.Errorf("mp source %v: invalid baud rate %v", section.Name(), opts.Baud)
	}
	if _, err := resolveSource(opts.SourceNum, marinelog.SourceMP); err != nil {
		return nil, fmt.Errorf("mp source %v: %w", section.Name(), err)
	}
	return opts, nil
}

// MPDriver relays messages from MessagePack device. Device assigns source and channel IDs of its messages itself,
// driver source is used only for name, channel map and log messages.
type MPDriver struct {
	options MPOptions
	source  uint8
	logger  zerolog.Logger

	open func(port string, baud int) (marinelog.MessageReader, error)
	conn marinelog.MessageReader
}

// NewMP creates MessagePack device driver
func NewMP(options Options, logger zerolog.Logger) (Driver, error) {
	opts, ok := options.(*MPOptions)
	if !ok {
		return nil, ErrInvalidOptions
	}
	source, err := resolveSource(opts.SourceNum, marinelog.SourceMP)
	if err != nil {
		return nil, err
	}
	return &MPDriver{
		options: *opts,
		source:  source,
		logger:  logger.With().Str("source", opts.Name).Logger(),
		open: func(port string, baud int) (marinelog.MessageReader, error) {
			c, err := mp.Open(port, baud)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}, nil
}

func (d *MPDriver) Startup(ctx context.Context) error {
	conn, err := d.open(d.options.Port, d.options.Baud)
	if err != nil {
		return err
	}
	d.conn = conn
	d.logger.Info().Str("port", d.options.Port).Int("baud", d.options.Baud).Msg("MessagePack device opened")
	return nil
}

func (d *MPDriver) Run(ctx context.Context, q *marinelog.Queue) error {
	if d.conn == nil {
		return ErrNotStarted
	}
	log := sourceLogger{source: d.source, queue: q, logger: d.logger}
	if err := announce(ctx, q, d.source, d.options.Name, d.Channels()); err != nil {
		return err
	}
	log.info(ctx, "reading MessagePack device "+d.options.Port)

	for {
		msg, err := d.conn.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, mp.ErrNoMessage) {
				continue
			}
			log.error(ctx, "MessagePack device read failed", err)
			return err
		}
		if err := q.Push(ctx, msg); err != nil {
			return err
		}
	}
}

func (d *MPDriver) Channels() marinelog.Message {
	return marinelog.NewStringArray(d.source, marinelog.ChannelMap, commonChannels())
}

func (d *MPDriver) Shutdown() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
