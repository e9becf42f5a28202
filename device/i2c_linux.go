package device

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// i2cSlave is I2C_SLAVE ioctl request from linux/i2c-dev.h
const i2cSlave = 0x0703

// linuxI2CBus is /dev/i2c-N character device
type linuxI2CBus struct {
	fd int
}

func openI2CBus(path string) (i2cBus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("device: could not open I2C bus %v: %w", path, err)
	}
	return &linuxI2CBus{fd: fd}, nil
}

func (b *linuxI2CBus) SetAddress(addr uint16) error {
	if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("device: could not select I2C address 0x%02x: %w", addr, err)
	}
	return nil
}

func (b *linuxI2CBus) Read(p []byte) (int, error) {
	n, err := unix.Read(b.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (b *linuxI2CBus) Write(p []byte) (int, error) {
	n, err := unix.Write(b.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (b *linuxI2CBus) Close() error {
	return unix.Close(b.fd)
}
