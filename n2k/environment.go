package n2k

import "fmt"

// WindReference is reference frame of wind data (3 bits)
type WindReference uint8

const (
	WindTrueNorth     WindReference = 0
	WindMagneticNorth WindReference = 1
	WindApparent      WindReference = 2
	WindTrueBoat      WindReference = 3
)

var windReferenceNames = []string{"Relative to North", "Magnetic", "Apparent", "Relative to boat"}

func (r WindReference) String() string {
	return lookupName(windReferenceNames, uint8(r))
}

// WindData is PGN 130306 Wind Data.
type WindData struct {
	SID       uint8
	Reference WindReference
	// Speed is wind speed in m/s
	Speed float64
	// Angle is wind direction in degrees
	Angle float64
}

func (v *WindData) PGN() uint32 {
	return PGNWindData
}

func (v *WindData) Decode(f Frame) error {
	if err := checkFrame(f, PGNWindData, 8); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}
	v.SID = d.Uint8(0)
	v.Speed = s.i16(d.Int16(1), 0.01)
	v.Angle = s.i16(d.Int16(3), ToDegrees)
	v.Reference = WindReference(d.Uint8(5) & 0x07)
	return s.err
}

func (v *WindData) String() string {
	return fmt.Sprintf("Wind Speed: %.2f @ %.3f degrees [%s]. Seq. ID %03d", v.Speed, v.Angle, v.Reference, v.SID)
}

// TemperatureSource identifies where temperature is measured (6 bits)
type TemperatureSource uint8

var temperatureSourceNames = []string{"Sea Water", "External", "Internal", "Engine Room", "Cabin"}

func (t TemperatureSource) String() string {
	return lookupName(temperatureSourceNames, uint8(t))
}

// HumiditySource identifies where humidity is measured (2 bits)
type HumiditySource uint8

var humiditySourceNames = []string{"Internal", "External"}

func (h HumiditySource) String() string {
	return lookupName(humiditySourceNames, uint8(h))
}

// EnvironmentalParameters is PGN 130311 Environmental Parameters.
type EnvironmentalParameters struct {
	SID               uint8
	TemperatureSource TemperatureSource
	HumiditySource    HumiditySource
	// Temperature is in degrees Celsius
	Temperature float64
	// Humidity is relative humidity in percent
	Humidity float64
	// Pressure is atmospheric pressure as raw unscaled value in unit of the sending device
	Pressure float64
}

func (v *EnvironmentalParameters) PGN() uint32 {
	return PGNEnvironmentalParameters
}

func (v *EnvironmentalParameters) Decode(f Frame) error {
	if err := checkFrame(f, PGNEnvironmentalParameters, 8); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}
	v.SID = d.Uint8(0)

	ids := d.Uint8(1)
	v.TemperatureSource = TemperatureSource(ids & 0x3F)
	v.HumiditySource = HumiditySource((ids & 0xC0) >> 6)

	v.Temperature = s.u16(d.Uint16(2), 0.01, -273.15)
	v.Humidity = s.u16(d.Uint16(4), 0.004, 0)
	v.Pressure = s.u16(d.Uint16(6), 1, 0)
	return s.err
}

func (v *EnvironmentalParameters) String() string {
	return fmt.Sprintf(
		"Environmental data: %+.2fC (%s), %+.3f%% RH (%s), pressure %.0f (raw). Seq ID %03d",
		v.Temperature, v.TemperatureSource, v.Humidity, v.HumiditySource, v.Pressure, v.SID,
	)
}
