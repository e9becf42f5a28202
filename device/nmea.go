package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/aldas/go-marine-logger/actisense"
	"github.com/aldas/go-marine-logger/canboat"
	"github.com/aldas/go-marine-logger/n2k"
	"github.com/aldas/go-marine-logger/socketcan"
	"github.com/rs/zerolog"
)

// Formats NMEA2000 frames can be read in
const (
	// FormatNGT is Actisense NGT-1 (or W2K-1) binary serial protocol
	FormatNGT = "ngt"
	// FormatRawASCII is Actisense W2K-1 RAW ASCII serial protocol (single CAN frames)
	FormatRawASCII = "rawascii"
	// FormatEBL is Actisense W2K-1 EBL log file
	FormatEBL = "ebl"
	// FormatCanboat is Canboat plain text log file
	FormatCanboat = "canboat"
	// FormatSocketCAN is Linux SocketCAN interface
	FormatSocketCAN = "socketcan"
)

// maxConsecutiveReadErrors is number of failed frame reads in a row after which device is considered failed
const maxConsecutiveReadErrors = 20

// NMEAOptions configures NMEA2000 bus source
type NMEAOptions struct {
	CommonOptions
	// Port is serial device for Actisense formats or log file path for file formats
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
	// Format is one of: ngt, rawascii, ebl, canboat, socketcan
	Format string `toml:"format"`
	// Interface is SocketCAN interface name (i.e. can0)
	Interface string `toml:"interface"`
	// DumpAll publishes every received frame as raw data on ChannelRaw
	DumpAll bool `toml:"dumpall"`
	// RequestClaims broadcasts ISO Address Claim request after startup so nodes on bus announce themselves
	RequestClaims bool `toml:"request_claims"`
}

// ParseNMEAConfig parses NMEA2000 source section
func ParseNMEAConfig(section Section) (Options, error) {
	opts := &NMEAOptions{
		CommonOptions: CommonOptions{Name: section.Name()},
		Baud:          115200,
		Format:        FormatNGT,
	}
	if err := section.Decode(opts); err != nil {
		return nil, fmt.Errorf("nmea source %v: %w", section.Name(), err)
	}
	opts.Format = strings.ToLower(opts.Format)
	switch opts.Format {
	case FormatNGT, FormatRawASCII, FormatEBL, FormatCanboat:
		if opts.Port == "" {
			return nil, fmt.Errorf("nmea source %v: port is required for %v format", section.Name(), opts.Format)
		}
	case FormatSocketCAN:
		if opts.Interface == "" {
			return nil, fmt.Errorf("nmea source %v: interface is required for socketcan format", section.Name())
		}
	default:
		return nil, fmt.Errorf("nmea source %v: unknown format %v", section.Name(), opts.Format)
	}
	if opts.Baud <= 0 {
		return nil, fmt.Errorf("nmea source %v: invalid baud rate %v", section.Name(), opts.Baud)
	}
	if _, err := resolveSource(opts.SourceNum, marinelog.SourceNMEA); err != nil {
		return nil, fmt.Errorf("nmea source %v: %w", section.Name(), err)
	}
	return opts, nil
}

// NMEADriver reads NMEA2000 frames, decodes supported PGNs and publishes decoded values on NMEA channels.
type NMEADriver struct {
	options NMEAOptions
	source  uint8
	logger  zerolog.Logger

	open   func(opts NMEAOptions, logger zerolog.Logger) (n2k.FrameReader, error)
	reader n2k.FrameReader
	nodes  *n2k.NodeTable
}

// NewNMEA creates NMEA2000 bus driver
func NewNMEA(options Options, logger zerolog.Logger) (Driver, error) {
	opts, ok := options.(*NMEAOptions)
	if !ok {
		return nil, ErrInvalidOptions
	}
	source, err := resolveSource(opts.SourceNum, marinelog.SourceNMEA)
	if err != nil {
		return nil, err
	}
	return &NMEADriver{
		options: *opts,
		source:  source,
		logger:  logger.With().Str("source", opts.Name).Logger(),
		open:    openFrameReader,
		nodes:   n2k.NewNodeTable(),
	}, nil
}

func openFrameReader(opts NMEAOptions, logger zerolog.Logger) (n2k.FrameReader, error) {
	config := actisense.Config{
		ReceiveDataTimeout: 5 * time.Second,
		Logger:             &logger,
	}
	switch opts.Format {
	case FormatSocketCAN:
		return socketcan.NewDevice(socketcan.DeviceConfig{
			InterfaceName:       opts.Interface,
			FastPacketAssembler: n2k.NewFastPacketAssembler(n2k.DefaultFastPacketPGNs),
		}), nil
	case FormatEBL, FormatCanboat:
		f, err := os.Open(opts.Port)
		if err != nil {
			return nil, fmt.Errorf("device: could not open log file: %w", err)
		}
		if opts.Format == FormatCanboat {
			return canboat.NewCanBoatReader(f), nil
		}
		config.ReceiveDataTimeout = 100 * time.Millisecond
		config.FastPacketAssembler = n2k.NewFastPacketAssembler(n2k.DefaultFastPacketPGNs)
		return actisense.NewEBLFormatDevice(readOnly{f}, config), nil
	}

	port, err := openSerial(opts.Port, opts.Baud)
	if err != nil {
		return nil, err
	}
	if opts.Format == FormatRawASCII {
		config.FastPacketAssembler = n2k.NewFastPacketAssembler(n2k.DefaultFastPacketPGNs)
		return actisense.NewRawASCIIDevice(port, config), nil
	}
	return actisense.NewBinaryDeviceWithConfig(port, config), nil
}

// readOnly adapts read-only file to io.ReadWriter expected by serial protocol devices
type readOnly struct {
	*os.File
}

func (r readOnly) Write(p []byte) (int, error) {
	return 0, errors.New("device: log file is read-only")
}

func (d *NMEADriver) Startup(ctx context.Context) error {
	reader, err := d.open(d.options, d.logger)
	if err != nil {
		return err
	}
	if err := reader.Initialize(); err != nil {
		_ = reader.Close()
		return fmt.Errorf("device: could not initialize NMEA2000 reader: %w", err)
	}
	d.reader = reader
	d.logger.Info().Str("format", d.options.Format).Msg("NMEA2000 reader opened")
	return nil
}

func (d *NMEADriver) Run(ctx context.Context, q *marinelog.Queue) error {
	if d.reader == nil {
		return ErrNotStarted
	}
	log := sourceLogger{source: d.source, queue: q, logger: d.logger}
	if err := announce(ctx, q, d.source, d.options.Name, d.Channels()); err != nil {
		return err
	}

	if d.options.RequestClaims {
		if w, ok := d.reader.(n2k.FrameWriter); ok {
			if err := w.WriteFrame(ctx, n2k.ISORequest(n2k.PGNISOAddressClaim, n2k.AddressGlobal)); err != nil {
				log.warn(ctx, fmt.Sprintf("could not request address claims: %v", err))
			}
		}
	}

	readErrors := 0
	for {
		frame, err := d.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				log.info(ctx, "end of NMEA2000 data")
				return err
			}
			readErrors++
			if readErrors > maxConsecutiveReadErrors {
				log.error(ctx, "NMEA2000 reader failed", err)
				return err
			}
			log.warn(ctx, fmt.Sprintf("invalid NMEA2000 frame: %v", err))
			continue
		}
		readErrors = 0

		if err := d.processFrame(ctx, q, log, frame); err != nil {
			return err
		}
	}
}

func (d *NMEADriver) processFrame(ctx context.Context, q *marinelog.Queue, log sourceLogger, frame n2k.Frame) error {
	node, changed, err := d.nodes.Process(frame)
	if err != nil {
		d.logger.Debug().Err(err).Uint8("address", frame.Source).Msg("invalid address claim")
	} else if changed {
		log.info(ctx, fmt.Sprintf("node %d: %v", node.Source, node.Claim.String()))
	}

	if d.options.DumpAll {
		if err := q.Push(ctx, marinelog.NewBytes(d.source, marinelog.ChannelRaw, n2k.MarshalFrame(frame))); err != nil {
			return err
		}
	}
	for _, msg := range n2k.Messages(d.source, frame) {
		if err := q.Push(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (d *NMEADriver) Channels() marinelog.Message {
	return marinelog.NewStringArray(d.source, marinelog.ChannelMap, n2k.ChannelNames())
}

// Nodes returns bus nodes that have claimed an address
func (d *NMEADriver) Nodes() []n2k.Node {
	return d.nodes.Nodes()
}

func (d *NMEADriver) Shutdown() error {
	if d.reader == nil {
		return nil
	}
	err := d.reader.Close()
	d.reader = nil
	return err
}
