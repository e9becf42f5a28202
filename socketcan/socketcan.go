package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/aldas/go-marine-logger/n2k"
	"golang.org/x/sys/unix"
)

const (
	canRaw = 1

	// canFrameSize is size of Linux `struct can_frame`
	canFrameSize = 16

	// canFlagsMask is bitmask to get 29-31 bits holding flags in socketCAN CAN ID
	canFlagsMask = uint32(0b111) << 29
	// canIDERRFlag is bit 29 in CAN ID and means ERR error message flag (0 = data frame, 1 = error message)
	canIDERRFlag = uint32(1 << 29)
	// canIDRTRFlag is bit 30 in CAN ID and means RTR remote transmission request (1 = rtr frame)
	canIDRTRFlag = uint32(1 << 30)
	// canIDEFFFlag is bit 31 in CAN ID and means EFF extended frame format / IDE identifier extension flag (0 = standard 11 bit, 1 = extended 29 bit)
	canIDEFFFlag = uint32(1 << 31)
)

var (
	errReadTimeout  = errors.New("socketcan: read timeout")
	errWriteTimeout = errors.New("socketcan: write timeout")

	// ErrNotDataFrame is returned when remote transmission request or error frame is read from bus
	ErrNotDataFrame = errors.New("socketcan: not a data frame")
)

// Connection is raw SocketCAN socket bound to interface.
type Connection struct {
	socketFD int
	timeNow  func() time.Time
}

// NewConnection opens raw CAN socket for given interface (i.e. `can0`)
func NewConnection(ifName string) (*Connection, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("bad ifName: %w", err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("could not create CAN socket: %w", err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err = unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("could not bind CAN socket: %w", err)
	}

	return &Connection{
		socketFD: fd,
		timeNow:  time.Now,
	}, nil
}

func isContinuableSocketErr(err error) bool {
	// EWOULDBLOCK - If you set a timeout on the socket with SO_RCVTIMEO or SO_SNDTIMEO - in this case, a receive or
	// send will return with EWOULDBLOCK if the timeout elapses while no input data becomes available or the output
	// buffer remains full

	// EINTR - If a signal occurs during a blocking operation, then the operation will either (a) return partial
	// completion, or (b) return failure, do nothing, and set errno to EINTR.

	return errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EINTR)
}

func (c *Connection) SetReadTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_RCVTIMEO, timeout)
}

func (c *Connection) SetSendTimeout(timeout time.Duration) error {
	return c.setSocketTimeout(unix.SO_SNDTIMEO, timeout)
}

func (c *Connection) setSocketTimeout(opt int, timeout time.Duration) error {
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	return unix.SetsockoptTimeval(c.socketFD, unix.SOL_SOCKET, opt, &tv)
}

func (c *Connection) Close() error {
	return unix.Close(c.socketFD)
}

// SendFrame writes single CAN frame to socket
func (c *Connection) SendFrame(frame n2k.CANFrame) error {
	_, err := unix.Write(c.socketFD, marshalCANFrame(frame))
	if isContinuableSocketErr(err) {
		return errWriteTimeout
	}
	return err
}

// ReadCANFrame reads single CAN frame from socket. Blocks up to read timeout set with SetReadTimeout.
func (c *Connection) ReadCANFrame() (n2k.CANFrame, error) {
	raw := make([]byte, canFrameSize)
	if _, err := unix.Read(c.socketFD, raw); err != nil {
		if isContinuableSocketErr(err) {
			return n2k.CANFrame{}, errReadTimeout
		}
		return n2k.CANFrame{}, err
	}
	return unmarshalCANFrame(raw, c.timeNow())
}

// marshalCANFrame creates Linux `struct can_frame` bytes.
// See: https://github.com/linux-can/can-utils/blob/affdc1b79973c7497bb8607603c24734e11a91aa/include/linux/can.h#L107
func marshalCANFrame(frame n2k.CANFrame) []byte {
	raw := make([]byte, canFrameSize)

	length := frame.Length
	if length > 8 {
		length = 8
	}
	// bits 0-28 is CAN ID, bit 31 marks extended (29 bit) frame format
	canID := frame.Header.Uint32() | canIDEFFFlag
	binary.LittleEndian.PutUint32(raw[0:4], canID) // FIXME: for big-endian arch (mips64, ppc64) we should use big-endian

	raw[4] = length // byte 4 is data length, 5-7 are padding/reserved
	copy(raw[8:], frame.Data[:length])
	return raw
}

func unmarshalCANFrame(raw []byte, now time.Time) (n2k.CANFrame, error) {
	if len(raw) < canFrameSize {
		return n2k.CANFrame{}, fmt.Errorf("socketcan: frame too short: %v bytes", len(raw))
	}
	canID := binary.LittleEndian.Uint32(raw[0:4])
	if canID&canIDRTRFlag != 0 {
		return n2k.CANFrame{}, fmt.Errorf("%w: remote transmission request frame", ErrNotDataFrame)
	} else if canID&canIDERRFlag != 0 {
		return n2k.CANFrame{}, fmt.Errorf("%w: error message frame", ErrNotDataFrame)
	}

	f := n2k.CANFrame{
		Timestamp: uint32(now.UnixMilli()),
		Header:    n2k.ParseCANID(canID &^ canFlagsMask),
		Length:    raw[4],
	}
	if f.Length > 8 {
		f.Length = 8
	}
	copy(f.Data[:], raw[8:8+f.Length])
	return f, nil
}
