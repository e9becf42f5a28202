//go:build !linux

package device

import "errors"

func openI2CBus(path string) (i2cBus, error) {
	return nil, errors.New("device: I2C bus is supported only on Linux")
}
