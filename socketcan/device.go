package socketcan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aldas/go-marine-logger/n2k"
)

type frameConn interface {
	SetReadTimeout(timeout time.Duration) error
	ReadCANFrame() (n2k.CANFrame, error)
	SendFrame(frame n2k.CANFrame) error
	Close() error
}

// DeviceConfig is configuration for SocketCAN device
type DeviceConfig struct {
	// InterfaceName is SocketCAN interface name. For example: can0
	InterfaceName string

	// ReceiveDataTimeout is to limit amount of time reads can result no data. to timeout the connection when there is no
	// interaction in bus. This is different from socket read timeout which limits how much time single read blocks.
	ReceiveDataTimeout time.Duration

	// FastPacketAssembler assembles fast-packet PGN frames to complete frames. When nil single CAN frames are returned.
	FastPacketAssembler n2k.Assembler
}

// Device reads NMEA2000 frames from SocketCAN interface
type Device struct {
	conn   frameConn
	config DeviceConfig

	timeNow func() time.Time
}

// NewDevice creates new SocketCAN device. Connection is opened with Initialize.
func NewDevice(config DeviceConfig) *Device {
	if config.ReceiveDataTimeout <= 0 {
		config.ReceiveDataTimeout = 5 * time.Second
	}
	return &Device{
		config:  config,
		timeNow: time.Now,
	}
}

func (d *Device) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Initialize opens socket to CAN interface
func (d *Device) Initialize() error {
	conn, err := NewConnection(d.config.InterfaceName)
	if err != nil {
		return err
	}
	d.conn = conn
	return nil
}

// WriteFrame writes single frame (up to 8 bytes of payload) to bus.
func (d *Device) WriteFrame(ctx context.Context, frame n2k.Frame) error {
	if d.conn == nil {
		return errors.New("socketcan: device is not initialized")
	}
	if len(frame.Data) > 8 {
		return fmt.Errorf("socketcan: frame longer than 8 bytes: %v", len(frame.Data))
	}
	canFrame := n2k.CANFrame{
		Timestamp: frame.Timestamp,
		Header:    frame.Header,
		Length:    uint8(len(frame.Data)),
	}
	copy(canFrame.Data[:], frame.Data)
	return d.conn.SendFrame(canFrame)
}

// ReadFrame reads frames until complete (assembled) frame is available.
func (d *Device) ReadFrame(ctx context.Context) (n2k.Frame, error) {
	if d.conn == nil {
		return n2k.Frame{}, errors.New("socketcan: device is not initialized")
	}
	result := n2k.Frame{}
	start := d.timeNow()
	for {
		select {
		case <-ctx.Done():
			return n2k.Frame{}, ctx.Err()
		default:
		}

		if err := d.conn.SetReadTimeout(50 * time.Millisecond); err != nil { // max 50ms block time for read per iteration
			return n2k.Frame{}, err
		}
		frame, err := d.conn.ReadCANFrame()
		now := d.timeNow()
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				if now.Sub(start) > d.config.ReceiveDataTimeout {
					return n2k.Frame{}, err
				}
				continue
			}
			if errors.Is(err, ErrNotDataFrame) {
				continue
			}
			return n2k.Frame{}, err
		}
		start = now

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
