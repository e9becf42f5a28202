package actisense

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/aldas/go-marine-logger/n2k"
	"github.com/rs/zerolog"
)

const (
	// STX start packet byte for Actisense parsed NMEA2000 packet
	STX = 0x02
	// ETX end packet byte for Actisense parsed NMEA2000 packet
	ETX = 0x03
	// DLE marker byte before start/end packet byte. Is sent before STX or ETX byte is sent (DLE+STX or DLE+ETX)
	DLE = 0x10

	// cmdNGTMessageReceived identifies that packet is received/incoming NMEA200 data message as NGT binary format.
	cmdNGTMessageReceived = 0x93
	// cmdNGTMessageSend identifies that packet is sent/outgoing NMEA200 data message as NGT binary format.
	cmdNGTMessageSend = 0x94

	// cmdRAWActisenseMessageReceived identifies that packet is received/incoming NMEA200 data message as RAW Actisense format.
	cmdRAWActisenseMessageReceived = 0x95
	// cmdRAWActisenseMessageSend identifies that packet is sent/outgoing NMEA200 data message as RAW Actisense format.
	cmdRAWActisenseMessageSend = 0x96

	// cmdN2KMessageReceived identifies that packet is received/incoming NMEA200 data message as N2K binary format.
	cmdN2KMessageReceived = 0xD0
	// cmdN2KMessageSend identifies that packet is sent/outgoing NMEA200 data message as N2K binary format.
	cmdN2KMessageSend = 0xD1

	// cmdDeviceMessageReceived identifies that received packet is (BEMCMD) Actisense NGT specific message
	cmdDeviceMessageReceived = 0xA0
	// cmdDeviceMessageSend identifies that sent packet is Actisense NGT specific message
	cmdDeviceMessageSend = 0xA1

	// FakePGNOffset is offset for PGNs that Actisense devices create for their own information. Added to
	// Actisense message id so these frames do not collide with real PGNs.
	FakePGNOffset uint32 = 0x40000
)

var (
	ErrInvalidCRC    = errors.New("actisense: message has invalid crc")
	ErrInvalidLength = errors.New("actisense: message length is invalid")
)

// BinaryDevice is Actisense device (NGT-1 or W2K-1) using binary formats (NGT binary, N2K binary or RAW Actisense).
// BinaryDevice reads complete NMEA2000 frames, fast-packets are assembled by device itself.
type BinaryDevice struct {
	device io.ReadWriter

	sleepFunc func(timeout time.Duration)
	timeNow   func() time.Time

	config Config
}

// Config is configuration for Actisense devices
type Config struct {
	// ReceiveDataTimeout is maximum duration reads from device can produce no data until we error out (idle).
	//
	// It is to limit amount of time reads can result no data. to timeout the connection when there is no
	// interaction in bus. This is different from for example serial device readTimeout which limits how much time Read
	// call blocks. We want to `Read` calls block small amount of time to be able to check if context was cancelled
	// during read but at the same time we want to be able to detect when there are no coming from bus for excessive
	// amount of time.
	ReceiveDataTimeout time.Duration

	// DebugLogRawMessageBytes instructs device to log all sent/received raw messages
	DebugLogRawMessageBytes bool
	// OutputActisenseMessages instructs device to output Actisense own messages (PGN is offset by FakePGNOffset)
	OutputActisenseMessages bool

	// IsN2KWriter instructs device to write/send messages to NMEA200 bus as N2K binary format (used by Actisense W2K-1)
	IsN2KWriter bool

	// FastPacketAssembler assembles fast-packet PGN frames to complete frames.
	// Used by formats that do not do packet assembly inside hardware (i.e. W2K-1 Raw ASCII format)
	FastPacketAssembler n2k.Assembler

	// Logger is used for debug logging. Defaults to no-op logger.
	Logger *zerolog.Logger
}

func (c Config) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	l := zerolog.Nop()
	return &l
}

// NewBinaryDevice creates new instance of Actisense device using binary formats
func NewBinaryDevice(device io.ReadWriter) *BinaryDevice {
	return NewBinaryDeviceWithConfig(device, Config{ReceiveDataTimeout: 5 * time.Second})
}

// NewBinaryDeviceWithConfig creates new instance of Actisense device using binary formats with given config
func NewBinaryDeviceWithConfig(device io.ReadWriter, config Config) *BinaryDevice {
	if config.ReceiveDataTimeout <= 0 {
		config.ReceiveDataTimeout = 5 * time.Second
	}
	return &BinaryDevice{
		device:    device,
		sleepFunc: time.Sleep,
		timeNow:   time.Now,
		config:    config,
	}
}

type state uint8

const (
	waitingStartOfMessage state = iota
	readingMessageData
	processingEscapeSequence
)

// ReadFrame reads and parses next frame from device. This method block until full frame is read or
// an error occurs (including context related errors).
func (d *BinaryDevice) ReadFrame(ctx context.Context) (n2k.Frame, error) {
	// Actisense N2K binary message can be up to ISOTP size 1785
	message := make([]byte, n2k.ISOTPDataMaxSize)
	messageByteIndex := 0

	buf := make([]byte, 1)
	lastReadWithDataTime := d.timeNow()
	var previousByte byte
	var currentByte byte

	state := waitingStartOfMessage
	for {
		select {
		case <-ctx.Done():
			return n2k.Frame{}, ctx.Err()
		default:
		}

		n, err := d.device.Read(buf)
		// on read errors we do not return immediately as for:
		// os.ErrDeadlineExceeded - we set new deadline on next iteration
		// io.EOF - we check if already read + received is enough to form complete message
		if err != nil && !(errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.EOF)) {
			return n2k.Frame{}, err
		}

		now := d.timeNow()
		if n == 0 {
			if errors.Is(err, io.EOF) && now.Sub(lastReadWithDataTime) > d.config.ReceiveDataTimeout {
				return n2k.Frame{}, err
			}
			continue
		}
		lastReadWithDataTime = now
		previousByte = currentByte
		currentByte = buf[0]

		switch state {
		case waitingStartOfMessage:
			if previousByte == DLE && currentByte == STX {
				state = readingMessageData
			}
		case readingMessageData:
			if currentByte == DLE {
				state = processingEscapeSequence
				break
			}
			if messageByteIndex >= len(message) { // garbage, too long to be a message
				state = waitingStartOfMessage
				messageByteIndex = 0
				break
			}
			message[messageByteIndex] = currentByte
			messageByteIndex++
		case processingEscapeSequence:
			if currentByte == DLE { // any DLE characters are double escaped (DLE DLE)
				state = readingMessageData
				if messageByteIndex < len(message) {
					message[messageByteIndex] = currentByte
					messageByteIndex++
				}
				break
			}
			if currentByte == ETX && messageByteIndex > 0 { // end of message sequence
				msg := message[0:messageByteIndex]
				if d.config.DebugLogRawMessageBytes {
					d.config.logger().Debug().Hex("raw", msg).Msg("read actisense binary message")
				}
				switch message[0] {
				case cmdNGTMessageReceived, cmdNGTMessageSend:
					return fromNGTBinaryMessage(msg)
				case cmdN2KMessageReceived, cmdN2KMessageSend:
					return fromN2KBinaryMessage(msg)
				case cmdRAWActisenseMessageReceived, cmdRAWActisenseMessageSend:
					frame, err := d.fromRawActisenseMessage(msg)
					if !errors.Is(err, errFrameNotComplete) {
						return frame, err
					}
				case cmdDeviceMessageReceived:
					if d.config.OutputActisenseMessages {
						return fromDeviceMessage(msg, now)
					}
				}
			}
			// when ignoring device messages or unknown DLE + ??? sequence - discard this current message and wait for next start sequence
			state = waitingStartOfMessage
			messageByteIndex = 0
		}
	}
}

// fromDeviceMessage converts Actisense own (BEM) message to frame with fake PGN
func fromDeviceMessage(raw []byte, now time.Time) (n2k.Frame, error) {
	// first 2 bytes for raw are command(@0) + len(@1)
	if len(raw) < (12 + 2) {
		return n2k.Frame{}, fmt.Errorf("%w: too short to be valid device message", ErrInvalidLength)
	}
	payloadLen := int(raw[1])
	if payloadLen > len(raw)-2 {
		payloadLen = len(raw) - 2
	}
	data := make(n2k.RawData, payloadLen)
	copy(data, raw[2:2+payloadLen])

	return n2k.Frame{
		Timestamp: uint32(now.UnixMilli()),
		Header: n2k.Header{
			PGN:         FakePGNOffset + uint32(data[0]),
			Destination: n2k.AddressGlobal,
		},
		Data: data,
	}, nil
}

// fromNGTBinaryMessage converts NGT binary message to frame.
//
// Message format:
// byte 0: command identifier
// byte 1: length of rest of message (without crc)
// byte 2: priority
// byte 3,4,5: PGN (little endian)
// byte 6: destination
// byte 7: source
// byte 8,9,10,11: timestamp in milliseconds (little endian)
// byte 12: data length
// byte 13 ... (N-1): data
// byte N (last): CRC
func fromNGTBinaryMessage(raw []byte) (n2k.Frame, error) {
	length := len(raw) - 2 // 2 bytes for: command(raw[0]) + len(raw[1])
	data := raw[2:]
	if length < 11 {
		return n2k.Frame{}, fmt.Errorf("%w: too short to be valid NMEA message", ErrInvalidLength)
	}

	const dataPartIndex = int(11)
	l := data[10]
	endIndex := dataPartIndex + int(l)
	if length != endIndex+1 {
		return n2k.Frame{}, fmt.Errorf("%w: data length byte value is different from actual length, %v!=%v", ErrInvalidLength, l, length-dataPartIndex-1)
	}

	if err := crcCheck(raw); err != nil {
		return n2k.Frame{}, err
	}

	pgn := uint32(data[1]) + uint32(data[2])<<8 + uint32(data[3])<<16
	payload := make(n2k.RawData, l)
	copy(payload, data[dataPartIndex:endIndex])

	return n2k.Frame{
		Timestamp: binary.LittleEndian.Uint32(data[6:10]),
		Header: n2k.Header{
			PGN:         pgn,
			Source:      data[5],
			Destination: data[4],
			Priority:    data[0],
		},
		Data: payload,
	}, nil
}

// fromN2KBinaryMessage converts W2K-1 N2K binary message to frame.
func fromN2KBinaryMessage(raw []byte) (n2k.Frame, error) {
	// first 3 bytes are: 1 byte for message type, 2 bytes for rest of message length
	if len(raw) < 13 {
		return n2k.Frame{}, fmt.Errorf("%w: too short to be valid N2K binary message", ErrInvalidLength)
	}
	length := uint32(raw[1]) + uint32(raw[2])<<8
	if int(length)+1 != len(raw) {
		return n2k.Frame{}, fmt.Errorf("%w: message length does not match actual data length", ErrInvalidLength)
	}

	dst := raw[3] // destination
	src := raw[4] // source

	dprp := raw[7]          // data page (1bit) + reserved (1bit) + priority bits (3bits)
	prio := (dprp >> 2) & 7 // priority bits are 3,4,5th bit
	rAndDP := dprp & 3      // data page + reserved is first 2 bits

	pduFormat := raw[6] // PF (PDU Format)
	pgn := uint32(rAndDP)<<16 + uint32(pduFormat)<<8
	if pduFormat >= 240 { // message is broadcast, PS contains group extension
		pgn += uint32(raw[5]) // +PS (PDU Specific)
	}

	const dataPartIndex = int(13)
	payload := make(n2k.RawData, len(raw)-dataPartIndex)
	copy(payload, raw[dataPartIndex:])

	return n2k.Frame{
		Timestamp: binary.LittleEndian.Uint32(raw[9:13]),
		Header: n2k.Header{
			PGN:         pgn,
			Source:      src,
			Destination: dst,
			Priority:    prio,
		},
		Data: payload,
	}, nil
}

// Example Send: `cansend can0 18EAFFFE#00EE00`
// Output from W2K RAW Actisense server: `95093eb7feffea1800ee0080`
//
// Message format:
// byte 0: command identifier
// byte 1: length of time counter + canid + data
// byte 2,3: time/counter
// byte 4,5,6,7: CanID (little endian)
// byte 8 ... (N-1): data
// byte N (last): CRC
func (d *BinaryDevice) fromRawActisenseMessage(raw []byte) (n2k.Frame, error) {
	if len(raw) < 9 {
		return n2k.Frame{}, fmt.Errorf("%w: too short to be valid raw actisense message", ErrInvalidLength)
	}

	dLen := int(raw[1])
	if dLen+3 != len(raw) || dLen < 6 {
		return n2k.Frame{}, fmt.Errorf("%w: data length byte value is different from actual length, %v!=%v", ErrInvalidLength, dLen, len(raw)-3)
	}

	if err := crcCheck(raw); err != nil {
		return n2k.Frame{}, err
	}

	frame := n2k.CANFrame{
		Timestamp: uint32(binary.LittleEndian.Uint16(raw[2:4])), // 16bit counter, wraps
		Header:    n2k.ParseCANID(binary.LittleEndian.Uint32(raw[4:8])),
	}
	frame.Length = uint8(copy(frame.Data[:], raw[8:len(raw)-1]))

	result := n2k.Frame{}
	if d.config.FastPacketAssembler == nil {
		result.Timestamp = frame.Timestamp
		result.Header = frame.Header
		result.Data = append(n2k.RawData{}, frame.Data[:frame.Length]...)
		return result, nil
	}
	if !d.config.FastPacketAssembler.Assemble(frame, &result) {
		return n2k.Frame{}, errFrameNotComplete
	}
	return result, nil
}

var errFrameNotComplete = errors.New("actisense: fast-packet frame is not complete")

// crcCheck calculates and checks message checksum.
func crcCheck(data []byte) error {
	if crc(data) != 0 {
		return ErrInvalidCRC
	}
	return nil
}

// crc calculates message checksum. CRC is such that the sum of all unescaped data bytes plus the command byte
// plus the length adds up to zero, modulo 256.
func crc(data []byte) uint8 {
	sum := uint8(0)
	for _, d := range data {
		sum += d
	}
	return sum
}

// Initialize initializes connection to device. Otherwise BinaryDevice will not send data.
//
// Canboat notes:
// The following startup command reverse engineered from Actisense NMEAreader.
// It instructs the BinaryDevice to clear its PGN message TX list, thus it starts sending all PGNs.
//
// Actisense own documentation:
// Page 14: ACommsCommand_SetOperatingMode
// https://www.actisense.com/wp-content/uploads/2020/01/ActisenseComms-SDK-User-Manual-Issue-1.07-1.pdf
func (d *BinaryDevice) Initialize() error {
	clearPGNFilter := []byte{ // `Receive All Transfer` Operating Mode
		cmdDeviceMessageSend, // Op code (NGT specific message)
		3,                    // length
		0x11,                 // msg byte 1, command `operating mode`
		0x02,                 // msg byte 2, argument 'receive all' (2 bytes)
		0x00,                 // msg byte 3
	}
	return d.writeBstMessage(clearPGNFilter)
}

// WriteFrame sends frame to bus. Frame payload is limited to single NGT message (up to 223 bytes).
func (d *BinaryDevice) WriteFrame(ctx context.Context, frame n2k.Frame) error {
	if d.config.DebugLogRawMessageBytes {
		d.config.logger().Debug().
			Uint32("pgn", frame.PGN).
			Hex("data", frame.Data).
			Msg("sending frame")
	}
	dataLen := len(frame.Data)
	if dataLen > n2k.FastPacketMaxSize {
		return fmt.Errorf("%w: frame payload too long to send", ErrInvalidLength)
	}
	buf := make([]byte, dataLen+2+6)

	buf[0] = cmdNGTMessageSend // NGT1 device, NGT binary format
	if d.config.IsN2KWriter {
		buf[0] = cmdN2KMessageSend // W2K1 device, N2K Binary format
	}
	buf[1] = byte(dataLen + 6) // length

	header := frame.Header
	buf[2] = header.Priority        // 1
	buf[3] = byte(header.PGN)       // 2
	buf[4] = byte(header.PGN >> 8)  // 3
	buf[5] = byte(header.PGN >> 16) // 4
	buf[6] = header.Destination     // 5
	buf[7] = byte(dataLen)          // 6
	copy(buf[8:], frame.Data)

	return d.writeBstMessage(buf)
}

func (d *BinaryDevice) writeBstMessage(data []byte) error {
	packet := make([]byte, 0, len(data)+4+3) // 4 for prefix/suffix bytes and 3 for possible DLEs that need escaping
	packet = append(packet, DLE, STX)
	for _, b := range data {
		if b == DLE { // need to be escaped DLE => DLE, DLE
			packet = append(packet, DLE)
		}
		packet = append(packet, b)
	}
	crcByte := 0 - crc(data)
	if crcByte == DLE {
		packet = append(packet, DLE)
	}
	packet = append(packet, crcByte, DLE, ETX)

	if d.config.DebugLogRawMessageBytes {
		d.config.logger().Debug().Hex("raw", packet).Msg("sent actisense binary message")
	}

	toWrite := packet
	retryCount := 0
	maxRetry := 5
	for {
		n, err := d.device.Write(toWrite)
		if err != nil {
			if !errors.Is(err, syscall.EAGAIN) {
				return fmt.Errorf("actisense write failure: %w", err)
			}
			retryCount++
		}
		toWrite = toWrite[n:]

		if len(toWrite) == 0 {
			break
		}
		if retryCount > maxRetry {
			return errors.New("actisense device writes failed. retry count reached")
		}
		d.sleepFunc(250 * time.Millisecond)
	}
	return nil
}

func (d *BinaryDevice) Close() error {
	if c, ok := d.device.(io.Closer); ok {
		return c.Close()
	}
	return errors.New("device does not implement Closer interface")
}
