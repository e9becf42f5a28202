package device

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// serialReadTimeout is duration single Read call is allowed to block. Can not be smaller than 100ms.
const serialReadTimeout = 100 * time.Millisecond

func openSerial(port string, baud int) (io.ReadWriteCloser, error) {
	s, err := serial.OpenPort(&serial.Config{
		Name:        port,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
		Size:        8,
	})
	if err != nil {
		return nil, fmt.Errorf("device: could not open port %v: %w", port, err)
	}
	return s, nil
}
