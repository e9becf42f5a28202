package n2k

import (
	"math"

	"github.com/aldas/go-marine-logger"
)

// Channels used for decoded NMEA2000 values. Channels below ChannelHeading are common channels shared by all sources.
const (
	ChannelHeading uint8 = iota + 4
	ChannelDeviation
	ChannelVariation
	ChannelRateOfTurn
	ChannelYaw
	ChannelPitch
	ChannelRoll
	ChannelDepth
	ChannelDepthOffset
	ChannelLatitude
	ChannelLongitude
	ChannelCourse
	ChannelSpeed
	ChannelEpochDays
	ChannelTimeOfDay
	ChannelWindSpeed
	ChannelWindAngle
	ChannelTemperature
	ChannelHumidity
	ChannelPressure
)

// ChannelNames returns channel name map for NMEA2000 source. Index is channel number.
func ChannelNames() []string {
	return []string{
		"Name", "Channels", "Timestamp", "Raw",
		"Heading", "Deviation", "Variation", "Rate of Turn",
		"Yaw", "Pitch", "Roll",
		"Depth", "Depth Offset",
		"Latitude", "Longitude", "Course", "Speed",
		"Epoch Days", "Time of Day",
		"Wind Speed", "Wind Angle",
		"Temperature", "Humidity", "Pressure",
	}
}

// Messages decodes frame and converts every available decoded value to Float message for given source. Frames that
// fail decoding structurally or have unknown PGN produce no messages.
func Messages(source uint8, f Frame) []marinelog.Message {
	vs, _ := Decode(f) // partially decoded value sets are still returned, unavailable fields are NaN
	if vs == nil {
		return nil
	}

	result := make([]marinelog.Message, 0, 4)
	add := func(channel uint8, value float64) {
		if math.IsNaN(value) {
			return
		}
		result = append(result, marinelog.NewFloat(source, channel, float32(value)))
	}

	switch v := vs.(type) {
	case *VesselHeading:
		add(ChannelHeading, v.Heading)
		add(ChannelDeviation, v.Deviation)
		add(ChannelVariation, v.Variation)
	case *RateOfTurn:
		add(ChannelRateOfTurn, v.Rate)
	case *Attitude:
		add(ChannelYaw, v.Yaw)
		add(ChannelPitch, v.Pitch)
		add(ChannelRoll, v.Roll)
	case *WaterDepth:
		add(ChannelDepth, v.Depth)
		add(ChannelDepthOffset, v.Offset)
	case *PositionRapidUpdate:
		add(ChannelLatitude, v.Latitude)
		add(ChannelLongitude, v.Longitude)
	case *COGSOGRapidUpdate:
		add(ChannelCourse, v.Course)
		add(ChannelSpeed, v.Speed)
	case *TimeDate:
		if v.EpochDays != 0 { // zero when date was not available
			add(ChannelEpochDays, float64(v.EpochDays))
		}
		add(ChannelTimeOfDay, v.Seconds)
	case *WindData:
		add(ChannelWindSpeed, v.Speed)
		add(ChannelWindAngle, v.Angle)
	case *EnvironmentalParameters:
		add(ChannelTemperature, v.Temperature)
		add(ChannelHumidity, v.Humidity)
		add(ChannelPressure, v.Pressure)
	}
	return result
}
