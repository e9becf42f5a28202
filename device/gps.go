package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/internal/utils"
	"github.com/rs/zerolog"
)

// maxSentenceLength is longest line accepted from receiver before buffered data is considered garbage
const maxSentenceLength = 512

// GPSOptions configures GPS receiver source
type GPSOptions struct {
	CommonOptions
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
	// DumpAll publishes all received lines, not only NMEA-0183 sentences (starting with `$` or `!`)
	DumpAll bool `toml:"dumpall"`
	// Timeout is seconds receiver can stay silent before it is considered failed
	Timeout int `toml:"timeout"`
}

// ParseGPSConfig parses GPS source section
func ParseGPSConfig(section Section) (Options, error) {
	opts := &GPSOptions{
		CommonOptions: CommonOptions{Name: section.Name()},
		Baud:          115200,
		Timeout:       5,
	}
	if err := section.Decode(opts); err != nil {
		return nil, fmt.Errorf("gps source %v: %w", section.Name(), err)
	}
	if opts.Port == "" {
		return nil, fmt.Errorf("gps source %v: port is required", section.Name())
	}
	if opts.Baud <= 0 {
		return nil, fmt.Errorf("gps source %v: invalid baud rate %v", section.Name(), opts.Baud)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("gps source %v: invalid timeout %v", section.Name(), opts.Timeout)
	}
	if _, err := resolveSource(opts.SourceNum, marinelog.SourceGPS); err != nil {
		return nil, fmt.Errorf("gps source %v: %w", section.Name(), err)
	}
	return opts, nil
}

// GPSDriver publishes lines received from GPS receiver as raw data on ChannelRaw. Sentences are not interpreted.
type GPSDriver struct {
	options GPSOptions
	source  uint8
	logger  zerolog.Logger

	open    func(port string, baud int) (io.ReadWriteCloser, error)
	timeNow func() time.Time

	device    io.ReadWriteCloser
	pending   []byte
	readIndex int
}

// NewGPS creates GPS receiver driver
func NewGPS(options Options, logger zerolog.Logger) (Driver, error) {
	opts, ok := options.(*GPSOptions)
	if !ok {
		return nil, ErrInvalidOptions
	}
	source, err := resolveSource(opts.SourceNum, marinelog.SourceGPS)
	if err != nil {
		return nil, err
	}
	return &GPSDriver{
		options: *opts,
		source:  source,
		logger:  logger.With().Str("source", opts.Name).Logger(),
		open:    openSerial,
		timeNow: time.Now,
		pending: make([]byte, maxSentenceLength),
	}, nil
}

func (d *GPSDriver) Startup(ctx context.Context) error {
	device, err := d.open(d.options.Port, d.options.Baud)
	if err != nil {
		return err
	}
	d.device = device
	d.readIndex = 0
	d.logger.Info().Str("port", d.options.Port).Int("baud", d.options.Baud).Msg("GPS receiver opened")
	return nil
}

func (d *GPSDriver) Run(ctx context.Context, q *marinelog.Queue) error {
	if d.device == nil {
		return ErrNotStarted
	}
	log := sourceLogger{source: d.source, queue: q, logger: d.logger}
	if err := announce(ctx, q, d.source, d.options.Name, d.Channels()); err != nil {
		return err
	}

	for {
		line, err := d.readLine(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.error(ctx, "GPS receiver read failed", err)
			return err
		}
		if !d.options.DumpAll && !isSentence(line) {
			d.logger.Trace().Str("line", utils.Printable(line)).Msg("skipping non-sentence line")
			continue
		}
		if err := q.Push(ctx, marinelog.NewBytes(d.source, marinelog.ChannelRaw, line)); err != nil {
			return err
		}
	}
}

func isSentence(line []byte) bool {
	return len(line) > 0 && (line[0] == '$' || line[0] == '!')
}

// readLine returns next line without line ending. Empty lines are skipped.
func (d *GPSDriver) readLine(ctx context.Context) ([]byte, error) {
	buf := make([]byte, 128)
	timeout := time.Duration(d.options.Timeout) * time.Second
	lastReadWithDataTime := d.timeNow()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if endIndex := bytes.IndexByte(d.pending[:d.readIndex], '\n'); endIndex != -1 {
			line := bytes.TrimRight(d.pending[:endIndex], "\r")
			result := append([]byte{}, line...)

			copy(d.pending, d.pending[endIndex+1:d.readIndex])
			d.readIndex -= endIndex + 1
			if len(result) == 0 {
				continue
			}
			return result, nil
		}

		n, err := d.device.Read(buf)
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			return nil, err
		}
		now := d.timeNow()
		if n == 0 {
			if now.Sub(lastReadWithDataTime) > timeout {
				if err == nil {
					err = io.EOF
				}
				return nil, err
			}
			continue
		}
		lastReadWithDataTime = now
		if d.readIndex+n > len(d.pending) { // too long line, must be garbage
			d.readIndex = 0
		}
		copy(d.pending[d.readIndex:], buf[:n])
		d.readIndex += n
	}
}

func (d *GPSDriver) Channels() marinelog.Message {
	return marinelog.NewStringArray(d.source, marinelog.ChannelMap, commonChannels())
}

func (d *GPSDriver) Shutdown() error {
	if d.device == nil {
		return nil
	}
	err := d.device.Close()
	d.device = nil
	return err
}
