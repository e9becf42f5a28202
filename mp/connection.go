package mp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/tarm/serial"
)

// Config is configuration for MessagePack connection
type Config struct {
	// ReceiveDataTimeout is maximum duration reads from device can produce no data until we error out (idle).
	//
	// Serial ports are opened with short read timeout and report io.EOF when read timed out without data. Connection
	// keeps reading until no data has arrived for ReceiveDataTimeout. Zero means that first io.EOF ends the stream.
	ReceiveDataTimeout time.Duration
}

// Connection reads and writes messages over byte stream (usually serial port) to MessagePack capable device.
type Connection struct {
	device io.ReadWriter
	parser *Parser

	sleepFunc func(timeout time.Duration)
	timeNow   func() time.Time

	config    Config
	writeLock sync.Mutex
}

// Open opens serial port with given baud rate and returns connection to it.
func Open(port string, baudRate int) (*Connection, error) {
	s, err := serial.OpenPort(&serial.Config{
		Name:        port,
		Baud:        baudRate,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("mp: could not open port %v: %w", port, err)
	}
	return NewConnectionWithConfig(s, Config{ReceiveDataTimeout: 5 * time.Second}), nil
}

// NewConnection creates connection over given reader/writer. First io.EOF from reader ends the stream.
func NewConnection(device io.ReadWriter) *Connection {
	return NewConnectionWithConfig(device, Config{})
}

// NewConnectionWithConfig creates connection over given reader/writer with given config
func NewConnectionWithConfig(device io.ReadWriter, config Config) *Connection {
	return &Connection{
		device:    device,
		parser:    &Parser{},
		sleepFunc: time.Sleep,
		timeNow:   time.Now,
		config:    config,
	}
}

// ReadMessage blocks until complete message is read, stream ends (io.EOF), reader fails or context is cancelled.
func (c *Connection) ReadMessage(ctx context.Context) (marinelog.Message, error) {
	lastReadWithDataTime := c.timeNow()
	for {
		select {
		case <-ctx.Done():
			return marinelog.Message{}, ctx.Err()
		default:
		}

		received := c.parser.received
		msg, err := c.parser.ReadMessage(c.device)
		if err == nil {
			return msg, nil
		}
		now := c.timeNow()
		switch {
		case errors.Is(err, ErrNoMessage) && c.parser.received != received:
			lastReadWithDataTime = now
		case errors.Is(err, ErrNoMessage), errors.Is(err, io.EOF):
			// reader returned no data, either io.EOF (serial read timeout) or (0, nil)
			if now.Sub(lastReadWithDataTime) >= c.config.ReceiveDataTimeout {
				return marinelog.Message{}, io.EOF
			}
			c.sleepFunc(10 * time.Millisecond)
		default:
			return marinelog.Message{}, err
		}
	}
}

// WriteMessage serializes and sends message to device
func (c *Connection) WriteMessage(msg marinelog.Message) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	return WriteMessage(c.device, msg)
}

// Close closes underlying device when it is closable
func (c *Connection) Close() error {
	if closer, ok := c.device.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
