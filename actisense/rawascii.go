package actisense

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aldas/go-marine-logger/internal/utils"
	"github.com/aldas/go-marine-logger/n2k"
)

const rawASCIIDelimiter = ' '

// maxRawASCIILineLength is longest line we accept before considering buffered data as garbage
const maxRawASCIILineLength = 100

var errSkipLine = errors.New("actisense: raw ascii line skipped")

// RawASCIIDevice is implementing Actisense W2K-1 device capable of decoding RAW Ascii format
type RawASCIIDevice struct {
	device io.ReadWriter

	readBuffer []byte
	readIndex  int

	config Config
}

// NewRawASCIIDevice creates new instance of Actisense W2K-1 device capable of decoding RAW Ascii format. RAW ASCII
// format is ordinary Canbus frame with 8 bytes of data so fast-packet assembly must be done separately with
// Config.FastPacketAssembler.
func NewRawASCIIDevice(device io.ReadWriter, config Config) *RawASCIIDevice {
	return &RawASCIIDevice{
		device:     device,
		readBuffer: make([]byte, maxRawASCIILineLength),
		config:     config,
	}
}

func (d *RawASCIIDevice) Close() error {
	if c, ok := d.device.(io.Closer); ok {
		return c.Close()
	}
	return errors.New("device does not implement Closer interface")
}

func (d *RawASCIIDevice) Initialize() error {
	return nil // no-op
}

const hextable = "0123456789ABCDEF"

// toRawASCIIBytes formats frame as sent frame line. Example: `00:00:00.000 S 1F223355 01 02 03 04 05 06 07 08\r\n`
func toRawASCIIBytes(frame n2k.CANFrame) []byte {
	b := bytes.Buffer{}
	ms := frame.Timestamp % 86_400_000
	b.WriteString(fmt.Sprintf(
		"%02d:%02d:%02d.%03d S %08X",
		ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000,
		frame.Header.Uint32(),
	))
	for i := uint8(0); i < frame.Length && i < 8; i++ {
		v := frame.Data[i]
		b.WriteByte(rawASCIIDelimiter)
		b.WriteByte(hextable[v>>4])
		b.WriteByte(hextable[v&0x0f])
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

// WriteFrame sends single frame (up to 8 bytes of payload) to bus.
func (d *RawASCIIDevice) WriteFrame(ctx context.Context, frame n2k.Frame) error {
	if len(frame.Data) > 8 {
		return fmt.Errorf("%w: frame longer than 8 bytes", ErrInvalidLength)
	}
	canFrame := n2k.CANFrame{
		Timestamp: frame.Timestamp,
		Header:    frame.Header,
		Length:    uint8(len(frame.Data)),
	}
	copy(canFrame.Data[0:], frame.Data)

	rawB := toRawASCIIBytes(canFrame)
	if d.config.DebugLogRawMessageBytes {
		d.config.logger().Debug().Str("raw", utils.Printable(rawB)).Msg("writing actisense raw ascii bytes")
	}
	_, err := d.device.Write(rawB)
	return err
}

// ReadFrame reads frames until complete (assembled) frame is available.
func (d *RawASCIIDevice) ReadFrame(ctx context.Context) (n2k.Frame, error) {
	result := n2k.Frame{}
	for {
		frame, err := d.ReadCANFrame(ctx)
		if err != nil {
			return n2k.Frame{}, err
		}
		if d.config.FastPacketAssembler == nil {
			result.Timestamp = frame.Timestamp
			result.Header = frame.Header
			result.Data = append(n2k.RawData{}, frame.Data[:frame.Length]...)
			return result, nil
		}
		if d.config.FastPacketAssembler.Assemble(frame, &result) {
			return result, nil
		}
	}
}

// ReadCANFrame reads next received CAN frame line.
func (d *RawASCIIDevice) ReadCANFrame(ctx context.Context) (n2k.CANFrame, error) {
	// Example: '00:34:02.718 R 15FD0800 FF 00 01 CA 6F FF FF FF\n'
	buf := make([]byte, 50)

	for {
		select {
		case <-ctx.Done():
			return n2k.CANFrame{}, ctx.Err()
		default:
		}

		// lines may already be buffered from previous read
		if endIndex := bytes.IndexByte(d.readBuffer[:d.readIndex], '\n'); endIndex != -1 {
			line := d.readBuffer[0 : endIndex+1]
			if d.config.DebugLogRawMessageBytes {
				d.config.logger().Debug().Str("raw", utils.Printable(line)).Msg("read actisense raw ascii frame")
			}
			frame, err := parseRawASCII(line)

			// shift read buffer to whatever we were able to read past current line end.
			copy(d.readBuffer, d.readBuffer[endIndex+1:d.readIndex])
			d.readIndex -= endIndex + 1

			if errors.Is(err, errSkipLine) {
				continue
			}
			return frame, err
		}

		n, err := d.device.Read(buf)
		if err != nil {
			return n2k.CANFrame{}, err
		}
		if n == 0 {
			continue
		}
		if d.readIndex+n > len(d.readBuffer) { // too long line, must be garbage
			d.readIndex = 0
		}
		copy(d.readBuffer[d.readIndex:], buf[0:n])
		d.readIndex += n
	}
}

func parseRawASCII(raw []byte) (n2k.CANFrame, error) {
	// Example: '00:34:02.718 R 15FD0800 FF 00 01 CA 6F FF FF FF\n'
	fields := strings.Fields(string(raw))
	if len(fields) < 3 { // probably some garbage from the wire, or we started reading frame not from the beginning
		return n2k.CANFrame{}, errSkipLine
	}
	if fields[1] != "R" { // this is not received frame
		return n2k.CANFrame{}, errSkipLine
	}

	canID, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return n2k.CANFrame{}, fmt.Errorf("actisense: invalid raw ascii CAN id: %w", err)
	}
	if len(fields)-3 > 8 {
		return n2k.CANFrame{}, fmt.Errorf("%w: raw ascii frame has more than 8 data bytes", ErrInvalidLength)
	}

	frame := n2k.CANFrame{
		Timestamp: parseTimeOfDay(fields[0]),
		Header:    n2k.ParseCANID(uint32(canID)),
	}
	for i, h := range fields[3:] {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != 1 {
			return n2k.CANFrame{}, fmt.Errorf("actisense: invalid raw ascii data byte `%v`", h)
		}
		frame.Data[i] = b[0]
		frame.Length++
	}
	return frame, nil
}

// parseTimeOfDay parses `hh:mm:ss.sss` to milliseconds since midnight. Invalid values result 0.
func parseTimeOfDay(s string) uint32 {
	var h, m, sec, ms uint32
	if _, err := fmt.Sscanf(s, "%d:%d:%d.%d", &h, &m, &sec, &ms); err != nil {
		return 0
	}
	return ((h*60+m)*60+sec)*1000 + ms
}
