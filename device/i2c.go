package device

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aldas/go-marine-logger"
	"github.com/rs/zerolog"
)

const (
	ina219RegShunt = 0x01
	ina219RegBus   = 0x02

	ads1015RegConversion = 0x00
	ads1015RegConfig     = 0x01
	// ads1015ConfigBase is single-shot conversion, +-4.096V range, 1600 samples/s, comparator disabled. Input
	// multiplexer bits (14:12) are set per channel.
	ads1015ConfigBase = 0x8000 | 0x0200 | 0x0100 | 0x0080 | 0x0003
	// ads1015Ready is config register bit that is set when device is not performing conversion
	ads1015Ready = 0x8000
	// ads1015ReadyPolls is number of times conversion state is checked before giving up
	ads1015ReadyPolls = 10
)

var errConversionTimeout = errors.New("device: ADC conversion did not complete")

// i2cBus is opened I2C bus adapter. Reads and writes go to device selected with SetAddress.
type i2cBus interface {
	SetAddress(addr uint16) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// I2COptions configures I2C bus source. Listed sensors are sampled in order: all INA219 first then all ADS1015.
type I2COptions struct {
	CommonOptions
	// Bus is path to I2C adapter device
	Bus string `toml:"bus"`
	// Frequency is number of sampling rounds per second
	Frequency int `toml:"frequency"`
	// INA219 are 7-bit addresses of INA219 current/power monitors
	INA219 []int `toml:"ina219"`
	// ADS1015 are 7-bit addresses of ADS1015 4 channel ADCs
	ADS1015 []int `toml:"ads1015"`
}

// ParseI2CConfig parses I2C source section
func ParseI2CConfig(section Section) (Options, error) {
	opts := &I2COptions{
		CommonOptions: CommonOptions{Name: section.Name()},
		Bus:           "/dev/i2c-1",
		Frequency:     5,
	}
	if err := section.Decode(opts); err != nil {
		return nil, fmt.Errorf("i2c source %v: %w", section.Name(), err)
	}
	if opts.Bus == "" {
		return nil, fmt.Errorf("i2c source %v: bus is required", section.Name())
	}
	if opts.Frequency < 1 || opts.Frequency > 100 {
		return nil, fmt.Errorf("i2c source %v: frequency must be in range 1-100, got %v", section.Name(), opts.Frequency)
	}
	if len(opts.INA219)+len(opts.ADS1015) == 0 {
		return nil, fmt.Errorf("i2c source %v: at least one sensor is required", section.Name())
	}
	for _, addr := range append(append([]int{}, opts.INA219...), opts.ADS1015...) {
		if addr < 0x03 || addr > 0x77 {
			return nil, fmt.Errorf("i2c source %v: invalid sensor address 0x%02x", section.Name(), addr)
		}
	}
	if n := len(i2cSensors(opts)) + len(commonChannels()); n > int(marinelog.ChannelLogInfo) {
		return nil, fmt.Errorf("i2c source %v: too many sensor channels %v", section.Name(), n)
	}
	if _, err := resolveSource(opts.SourceNum, marinelog.SourceI2C); err != nil {
		return nil, fmt.Errorf("i2c source %v: %w", section.Name(), err)
	}
	return opts, nil
}

// i2cSensor is single value read from bus device
type i2cSensor struct {
	name    string
	address uint16
	read    func(bus i2cBus, addr uint16, sleep func(time.Duration)) (float32, error)
}

func i2cSensors(opts *I2COptions) []i2cSensor {
	result := make([]i2cSensor, 0, 2*len(opts.INA219)+4*len(opts.ADS1015))
	for _, addr := range opts.INA219 {
		a := uint16(addr)
		result = append(result,
			i2cSensor{name: fmt.Sprintf("INA219 0x%02x Bus Voltage", addr), address: a, read: readINA219Bus},
			i2cSensor{name: fmt.Sprintf("INA219 0x%02x Shunt Voltage (mV)", addr), address: a, read: readINA219Shunt},
		)
	}
	for _, addr := range opts.ADS1015 {
		a := uint16(addr)
		for input := uint16(0); input < 4; input++ {
			result = append(result, i2cSensor{
				name:    fmt.Sprintf("ADS1015 0x%02x A%d", addr, input),
				address: a,
				read:    ads1015Reader(input),
			})
		}
	}
	return result
}

// I2CDriver samples INA219 and ADS1015 sensors on I2C bus with fixed frequency. Each sensor value is published as
// float on its own channel, starting right after common channels.
type I2CDriver struct {
	options I2COptions
	source  uint8
	logger  zerolog.Logger
	sensors []i2cSensor

	open      func(path string) (i2cBus, error)
	timeNow   func() time.Time
	sleepFunc func(d time.Duration)

	bus i2cBus
}

// NewI2C creates I2C bus driver
func NewI2C(options Options, logger zerolog.Logger) (Driver, error) {
	opts, ok := options.(*I2COptions)
	if !ok {
		return nil, ErrInvalidOptions
	}
	source, err := resolveSource(opts.SourceNum, marinelog.SourceI2C)
	if err != nil {
		return nil, err
	}
	return &I2CDriver{
		options:   *opts,
		source:    source,
		logger:    logger.With().Str("source", opts.Name).Logger(),
		sensors:   i2cSensors(opts),
		open:      openI2CBus,
		timeNow:   time.Now,
		sleepFunc: time.Sleep,
	}, nil
}

func (d *I2CDriver) Startup(ctx context.Context) error {
	bus, err := d.open(d.options.Bus)
	if err != nil {
		return err
	}
	d.bus = bus
	d.logger.Info().Str("bus", d.options.Bus).Int("sensors", len(d.sensors)).Msg("I2C bus opened")
	return nil
}

func (d *I2CDriver) Run(ctx context.Context, q *marinelog.Queue) error {
	if d.bus == nil {
		return ErrNotStarted
	}
	log := sourceLogger{source: d.source, queue: q, logger: d.logger}
	if err := announce(ctx, q, d.source, d.options.Name, d.Channels()); err != nil {
		return err
	}

	failing := make([]bool, len(d.sensors))
	ticker := time.NewTicker(time.Second / time.Duration(d.options.Frequency))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		ts := uint32(d.timeNow().UnixMilli())
		if err := q.Push(ctx, marinelog.NewTimestamp(d.source, marinelog.ChannelTimestamp, ts)); err != nil {
			return err
		}

		var lastErr error
		read := 0
		for i, s := range d.sensors {
			v, err := s.read(d.bus, s.address, d.sleepFunc)
			if err != nil {
				if !failing[i] {
					log.warn(ctx, fmt.Sprintf("could not read %v: %v", s.name, err))
				}
				failing[i] = true
				lastErr = err
				continue
			}
			failing[i] = false
			read++
			channel := uint8(len(commonChannels()) + i)
			if err := q.Push(ctx, marinelog.NewFloat(d.source, channel, v)); err != nil {
				return err
			}
		}
		if read == 0 && lastErr != nil {
			log.error(ctx, "no sensor on I2C bus responded", lastErr)
			return lastErr
		}
	}
}

func (d *I2CDriver) Channels() marinelog.Message {
	names := commonChannels()
	for _, s := range d.sensors {
		names = append(names, s.name)
	}
	return marinelog.NewStringArray(d.source, marinelog.ChannelMap, names)
}

func (d *I2CDriver) Shutdown() error {
	if d.bus == nil {
		return nil
	}
	err := d.bus.Close()
	d.bus = nil
	return err
}

// readRegister reads big-endian 16 bit register of device
func readRegister(bus i2cBus, addr uint16, reg uint8) (uint16, error) {
	if err := bus.SetAddress(addr); err != nil {
		return 0, err
	}
	if _, err := bus.Write([]byte{reg}); err != nil {
		return 0, err
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(bus, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

func writeRegister(bus i2cBus, addr uint16, reg uint8, value uint16) error {
	if err := bus.SetAddress(addr); err != nil {
		return err
	}
	_, err := bus.Write([]byte{reg, byte(value >> 8), byte(value)})
	return err
}

// readINA219Bus returns bus voltage in volts. Register holds value in 4mV units in bits 15:3.
func readINA219Bus(bus i2cBus, addr uint16, _ func(time.Duration)) (float32, error) {
	raw, err := readRegister(bus, addr, ina219RegBus)
	if err != nil {
		return 0, err
	}
	return float32((raw>>3)*4) / 1000, nil
}

// readINA219Shunt returns shunt voltage in millivolts. Register is signed value in 10uV units.
func readINA219Shunt(bus i2cBus, addr uint16, _ func(time.Duration)) (float32, error) {
	raw, err := readRegister(bus, addr, ina219RegShunt)
	if err != nil {
		return 0, err
	}
	return float32(int16(raw)) / 100, nil
}

// ads1015Reader returns reader for single-ended input of ADS1015. Value is in volts.
func ads1015Reader(input uint16) func(bus i2cBus, addr uint16, sleep func(time.Duration)) (float32, error) {
	config := uint16(ads1015ConfigBase) | (4+input)<<12
	return func(bus i2cBus, addr uint16, sleep func(time.Duration)) (float32, error) {
		if err := writeRegister(bus, addr, ads1015RegConfig, config); err != nil {
			return 0, err
		}
		ready := false
		for i := 0; i < ads1015ReadyPolls; i++ {
			state, err := readRegister(bus, addr, ads1015RegConfig)
			if err != nil {
				return 0, err
			}
			if state&ads1015Ready != 0 {
				ready = true
				break
			}
			sleep(time.Millisecond)
		}
		if !ready {
			return 0, errConversionTimeout
		}
		raw, err := readRegister(bus, addr, ads1015RegConversion)
		if err != nil {
			return 0, err
		}
		// 12 bit result is left aligned, 2mV per count
		return float32(int32(int16(raw)>>4)*2) / 1000, nil
	}
}
