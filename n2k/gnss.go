package n2k

import (
	"fmt"
	"math"
	"time"
)

// PositionRapidUpdate is PGN 129025 Position, Rapid Update. Coordinates are decimal degrees.
type PositionRapidUpdate struct {
	Latitude  float64
	Longitude float64
}

func (v *PositionRapidUpdate) PGN() uint32 {
	return PGNPositionRapidUpdate
}

func (v *PositionRapidUpdate) Decode(f Frame) error {
	if err := checkFrame(f, PGNPositionRapidUpdate, 8); err != nil {
		return err
	}
	s := fieldStatus{}
	v.Latitude = s.i32(f.Data.Int32(0), 1e-7)
	v.Longitude = s.i32(f.Data.Int32(4), 1e-7)
	return s.err
}

func (v *PositionRapidUpdate) String() string {
	return fmt.Sprintf("GPS Position: %f, %f", v.Latitude, v.Longitude)
}

// COGSOGRapidUpdate is PGN 129026 COG & SOG, Rapid Update.
type COGSOGRapidUpdate struct {
	SID       uint8
	Reference DirectionReference
	// Course is course over ground in degrees
	Course float64
	// Speed is speed over ground in m/s
	Speed float64
}

func (v *COGSOGRapidUpdate) PGN() uint32 {
	return PGNCOGSOGRapidUpdate
}

func (v *COGSOGRapidUpdate) Decode(f Frame) error {
	if err := checkFrame(f, PGNCOGSOGRapidUpdate, 8); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}
	v.SID = d.Uint8(0)
	v.Reference = DirectionReference(d.Uint8(1) & 0x03)
	v.Course = s.i16(d.Int16(2), ToDegrees)
	v.Speed = s.i16(d.Int16(4), 0.01)
	return s.err
}

func (v *COGSOGRapidUpdate) String() string {
	return fmt.Sprintf("Speed: %.2f @ %.3f degrees [%s]. Seq. ID %03d", v.Speed, v.Course, v.Reference, v.SID)
}

// maxUTCOffsetMinutes is exclusive limit for local time offset from UTC
const maxUTCOffsetMinutes = 1440

// TimeDate is PGN 129033 Time & Date.
type TimeDate struct {
	// EpochDays is number of days since 1970-01-01
	EpochDays uint16
	// Seconds is seconds since midnight
	Seconds float64
	// UTCOffset is local time offset from UTC in minutes
	UTCOffset int16
}

func (v *TimeDate) PGN() uint32 {
	return PGNTimeDate
}

func (v *TimeDate) Decode(f Frame) error {
	if err := checkFrame(f, PGNTimeDate, 8); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}

	v.EpochDays = d.Uint16(0)
	if v.EpochDays == math.MaxUint16 {
		v.EpochDays = 0
		s.fail(ErrValueNoData)
	}
	v.Seconds = s.u32(d.Uint32(2), 0.0001)

	v.UTCOffset = d.Int16(6)
	if v.UTCOffset >= maxUTCOffsetMinutes || v.UTCOffset <= -maxUTCOffsetMinutes {
		v.UTCOffset = 0
		s.fail(ErrValueOutOfRange)
	}
	return s.err
}

// Time returns UTC time represented by date and time fields (offset is not applied).
func (v *TimeDate) Time() time.Time {
	secs := v.Seconds
	if math.IsNaN(secs) {
		secs = 0
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(v.EpochDays)*86400+int64(whole), int64(math.Round(frac*1e4))*1e5).UTC()
}

func (v *TimeDate) String() string {
	return fmt.Sprintf("%s %+.2f", v.Time().Format("2006-01-02 15:04:05"), float64(v.UTCOffset)/60.0)
}
