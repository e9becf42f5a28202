package n2k

import "fmt"

// DirectionReference tells if direction is relative to true or magnetic north (2 bits)
type DirectionReference uint8

const (
	DirectionTrue     DirectionReference = 0
	DirectionMagnetic DirectionReference = 1
)

var directionReferenceNames = []string{"True", "Magnetic"}

func (r DirectionReference) String() string {
	return lookupName(directionReferenceNames, uint8(r))
}

// VesselHeading is PGN 127250 Vessel Heading. Angles are in degrees.
type VesselHeading struct {
	SID       uint8
	Heading   float64
	Deviation float64
	Variation float64
	Reference DirectionReference
}

func (v *VesselHeading) PGN() uint32 {
	return PGNVesselHeading
}

func (v *VesselHeading) Decode(f Frame) error {
	if err := checkFrame(f, PGNVesselHeading, 8); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}
	v.SID = d.Uint8(0)
	v.Heading = s.u16(d.Uint16(1), ToDegrees, 0)
	v.Deviation = s.i16(d.Int16(3), ToDegrees)
	v.Variation = s.i16(d.Int16(5), ToDegrees)
	v.Reference = DirectionReference(d.Uint8(7) & 0x03)
	return s.err
}

func (v *VesselHeading) String() string {
	return fmt.Sprintf(
		"Heading: %.3f [%s], Deviation: %+.3f, Variation: %+.3f. Seq. ID %03d",
		v.Heading, v.Reference, v.Deviation, v.Variation, v.SID,
	)
}

// RateOfTurn is PGN 127251 Rate of Turn.
type RateOfTurn struct {
	SID  uint8
	Rate float64
}

func (v *RateOfTurn) PGN() uint32 {
	return PGNRateOfTurn
}

func (v *RateOfTurn) Decode(f Frame) error {
	if err := checkFrame(f, PGNRateOfTurn, 8); err != nil {
		return err
	}
	s := fieldStatus{}
	v.SID = f.Data.Uint8(0)
	v.Rate = s.i16(f.Data.Int16(1), ToDegrees)
	return s.err
}

func (v *RateOfTurn) String() string {
	return fmt.Sprintf("Rate of turn: %+.3f. Seq. ID %03d", v.Rate, v.SID)
}

// Attitude is PGN 127257 Attitude. Angles are in degrees.
type Attitude struct {
	SID   uint8
	Yaw   float64
	Pitch float64
	Roll  float64
}

func (v *Attitude) PGN() uint32 {
	return PGNAttitude
}

func (v *Attitude) Decode(f Frame) error {
	if err := checkFrame(f, PGNAttitude, 7); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}
	v.SID = d.Uint8(0)
	v.Yaw = s.i16(d.Int16(1), ToDegrees)
	v.Pitch = s.i16(d.Int16(3), ToDegrees)
	v.Roll = s.i16(d.Int16(5), ToDegrees)
	return s.err
}

func (v *Attitude) String() string {
	return fmt.Sprintf("Pitch: %.3f, Roll: %.3f, Yaw: %.3f. Seq. ID: %03d", v.Pitch, v.Roll, v.Yaw, v.SID)
}
