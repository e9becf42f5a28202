package canboat

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/aldas/go-marine-logger/n2k"
)

// Device reads frames from Canboat plain text format log (one frame per line). Lines starting with `#` are comments.
type Device struct {
	reader  io.Reader
	scanner *bufio.Scanner
}

// NewCanBoatReader creates reader for Canboat plain text format
func NewCanBoatReader(reader io.Reader) *Device {
	return &Device{
		reader:  reader,
		scanner: bufio.NewScanner(reader),
	}
}

func (d *Device) Initialize() error {
	return nil // do nothing
}

// ReadFrame reads next frame from log. Returns io.EOF at the end of log.
func (d *Device) ReadFrame(ctx context.Context) (n2k.Frame, error) {
	for d.scanner.Scan() {
		select {
		case <-ctx.Done():
			return n2k.Frame{}, ctx.Err()
		default:
		}
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		f, _, err := Unmarshal(line)
		return f, err
	}
	if err := d.scanner.Err(); err != nil {
		return n2k.Frame{}, err
	}
	return n2k.Frame{}, io.EOF
}

func (d *Device) Close() error {
	closer, ok := d.reader.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}
