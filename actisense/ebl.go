package actisense

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aldas/go-marine-logger/n2k"
)

// EBL log file format used by Actisense W2K-1 ("CAN-Raw (BST-95) message format").
//
// Example data frame from one EBL file:
// 1b 01 07 95 0e 28 9a 00 01 f8 09 3d 0d b3 22 48 32 59 0d 1b 0a
//
// 1b 01 <-- start of data frame (ESC+SOH)
//
//	07 95 <-- BST-95 row type
//	     0e <-- lengths 14 bytes till end
//	       28 9a <-- timestamp 39464 (hex 9A28) (little endian)
//	            00 01 f8 09  <--- 0x09f80100 = src:0, dst:255, pgn:129025 (1f801), prio:2 (little endian)
//	                       3d 0d b3 22 48 32 59 0d <-- CAN payload
//	                                               1b 0a <-- end of data frame (ESC+LF)
const (
	// SOH is start of data frame byte for Actisense BST-95 (EBL file created by Actisense W2K-1 device)
	SOH = 0x01
	// NL is end of data frame byte
	NL = 0x0A
	// ESC is marker byte before start/end data frame byte. Is escaped by sending double ESC+ESC characters.
	ESC = 0x1b

	eblRowTypeBST = 0x07
)

// EBLFormatDevice reads Actisense EBL log files (or streams). Frames are CAN frames so fast-packets are assembled
// with Config.FastPacketAssembler when set.
type EBLFormatDevice struct {
	device io.ReadWriter

	sleepFunc func(timeout time.Duration)
	timeNow   func() time.Time

	config Config
}

// NewEBLFormatDevice creates new instance of EBL format reader
func NewEBLFormatDevice(device io.ReadWriter, config Config) *EBLFormatDevice {
	if config.ReceiveDataTimeout <= 0 {
		config.ReceiveDataTimeout = 150 * time.Millisecond
	}
	return &EBLFormatDevice{
		device:    device,
		sleepFunc: time.Sleep,
		timeNow:   time.Now,
		config:    config,
	}
}

// ReadFrame reads frames until complete (assembled) frame is available.
func (d *EBLFormatDevice) ReadFrame(ctx context.Context) (n2k.Frame, error) {
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

// ReadCANFrame reads next BST-95 row from log. Rows of other types are skipped.
func (d *EBLFormatDevice) ReadCANFrame(ctx context.Context) (n2k.CANFrame, error) {
	message := make([]byte, 64)
	messageByteIndex := 0

	buf := make([]byte, 1)
	lastReadWithDataTime := d.timeNow()
	var previousByte byte
	var currentByte byte

	state := waitingStartOfMessage
	for {
		select {
		case <-ctx.Done():
			return n2k.CANFrame{}, ctx.Err()
		default:
		}

		n, err := d.device.Read(buf)
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			return n2k.CANFrame{}, err
		}

		now := d.timeNow()
		if n == 0 {
			if errors.Is(err, io.EOF) && now.Sub(lastReadWithDataTime) > d.config.ReceiveDataTimeout {
				return n2k.CANFrame{}, err
			}
			continue
		}
		lastReadWithDataTime = now
		previousByte = currentByte
		currentByte = buf[0]

		switch state {
		case waitingStartOfMessage: // start of message is (ESC + SOH)
			if previousByte == ESC && currentByte == SOH {
				state = readingMessageData
			}
		case readingMessageData:
			if currentByte == ESC {
				state = processingEscapeSequence
				break
			}
			if messageByteIndex >= len(message) {
				state = waitingStartOfMessage
				messageByteIndex = 0
				break
			}
			message[messageByteIndex] = currentByte
			messageByteIndex++
		case processingEscapeSequence:
			if currentByte == ESC {
				state = readingMessageData
				if messageByteIndex < len(message) {
					message[messageByteIndex] = currentByte
					messageByteIndex++
				}
				break
			}
			if currentByte == SOH { // start of next message while previous was not ended
				state = readingMessageData
				messageByteIndex = 0
				break
			}
			if currentByte == NL { // end of message sequence (ESC + NL)
				msg := message[0:messageByteIndex]
				if d.config.DebugLogRawMessageBytes {
					d.config.logger().Debug().Hex("raw", msg).Msg("read actisense EBL row")
				}
				if len(msg) > 2 && msg[0] == eblRowTypeBST && msg[1] == cmdRAWActisenseMessageReceived {
					return fromBST95Message(msg[2:])
				}
			}
			// unknown row type or ESC + ??? sequence - discard and wait for next start sequence
			state = waitingStartOfMessage
			messageByteIndex = 0
		}
	}
}

// fromBST95Message converts BST-95 row to CAN frame.
//
// byte 0: length of rest of row
// byte 1,2: timestamp counter in milliseconds (little endian)
// byte 3,4,5,6: CAN ID (little endian)
// byte 7 ... : data (1 to 8 bytes)
func fromBST95Message(raw []byte) (n2k.CANFrame, error) {
	const startOfData = 7
	if len(raw) < startOfData+1 {
		return n2k.CANFrame{}, fmt.Errorf("%w: too short to be valid BST-95 message", ErrInvalidLength)
	}
	if int(raw[0]) != len(raw)-1 {
		return n2k.CANFrame{}, fmt.Errorf("%w: BST-95 length field does not match actual length", ErrInvalidLength)
	}
	if len(raw)-startOfData > 8 {
		return n2k.CANFrame{}, fmt.Errorf("%w: BST-95 frame has more than 8 data bytes", ErrInvalidLength)
	}

	frame := n2k.CANFrame{
		Timestamp: uint32(binary.LittleEndian.Uint16(raw[1:3])),
		Header:    n2k.ParseCANID(binary.LittleEndian.Uint32(raw[3:7])),
		Length:    uint8(len(raw) - startOfData),
	}
	copy(frame.Data[:], raw[startOfData:])
	return frame, nil
}

// Initialize is no-op for EBL logs
func (d *EBLFormatDevice) Initialize() error {
	return nil
}

func (d *EBLFormatDevice) Close() error {
	if c, ok := d.device.(io.Closer); ok {
		return c.Close()
	}
	return errors.New("device does not implement Closer interface")
}
