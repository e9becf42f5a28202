package n2k

import (
	"context"
	"encoding/binary"
)

// FastPacketMaxSize is maximum size of fast packet multiple packets total length
//
// NMEA200 frame is 8 bytes and to send longer payloads `Fast packet` protocol could be used. In case of fast packet
// nmea message consist of multiple frames where:
// * first frame of message has 2 first bytes reserved and up to 6 following bytes for actual payload
//   - first byte (data[0]) identifies message counter (first 3 bits) and frame counter (5 bits) for that PGN.
//     Message counter is to distinguish simultaneously sent message frames. Frame counter is always 0 for first frame.
//   - second byte (data[1]) indicates message total size in bytes
//
// * second and consecutive frames reserve 1 byte for message counter and frame counter and up to 7 bytes for payload
// Fast packet maximum payload size 223 comes from the fact that first packet can have only 6 bytes of data and following
// frames 7 bytes. As frame counter is 5 bits (0-31 dec) we get maximum by 6 + 31 * 7 = 223 bytes.
const FastPacketMaxSize = 223

// ISOTPDataMaxSize is maximum size of multi-packet (ISO-TP) message payload
const ISOTPDataMaxSize = 1785

// CANFrame is single CAN bus frame as read from the bus. Up to 8 bytes of payload.
type CANFrame struct {
	// Timestamp is milliseconds (arbitrary epoch) when frame was read
	Timestamp uint32

	Header Header
	Length uint8 // 1-8
	Data   [8]byte
}

// Frame is complete NMEA2000 message. Frame could be assembled from multiple CAN frames thus data length can vary
// up to 1785 bytes.
//
// Decoders borrow Data and never modify it.
type Frame struct {
	Header

	// Timestamp is milliseconds (arbitrary epoch) when message was received
	Timestamp uint32
	Data      RawData // usually 8 bytes but fast-packets can be up to 223 bytes
}

// FrameReader reads complete NMEA2000 frames from bus reader device.
type FrameReader interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Initialize() error
	Close() error
}

// FrameWriter writes NMEA2000 frames to bus.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame Frame) error
	Close() error
}

// Assembler propose is to assemble multi-frame PGN into single NMEA2000 message. Used for fast-packet assembly.
type Assembler interface {
	Assemble(frame CANFrame, to *Frame) bool
}

// MarshalFrame serializes frame to bytes. Used to record/forward undecoded bus traffic.
//
// Layout: timestamp (4 bytes LE), PGN (3 bytes LE), priority, source, destination, data...
func MarshalFrame(f Frame) []byte {
	b := make([]byte, 4+3+3+len(f.Data))

	binary.LittleEndian.PutUint32(b, f.Timestamp) // 0 - 3
	b[4] = byte(f.PGN)                            // 4,5,6
	b[5] = byte(f.PGN >> 8)
	b[6] = byte(f.PGN >> 16)
	b[7] = f.Priority    // 7
	b[8] = f.Source      // 8
	b[9] = f.Destination // 9
	copy(b[10:], f.Data) // 10 - ...

	return b
}
