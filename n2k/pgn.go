package n2k

import (
	"math"
)

// Supported PGNs
const (
	PGNISOAddressClaim         uint32 = 60928
	PGNVesselHeading           uint32 = 127250
	PGNRateOfTurn              uint32 = 127251
	PGNAttitude                uint32 = 127257
	PGNWaterDepth              uint32 = 128267
	PGNPositionRapidUpdate     uint32 = 129025
	PGNCOGSOGRapidUpdate       uint32 = 129026
	PGNTimeDate                uint32 = 129033
	PGNWindData                uint32 = 130306
	PGNEnvironmentalParameters uint32 = 130311
)

// ToDegrees converts raw angle unit (1e-4 radians) to degrees.
const ToDegrees = 1e-4 * 180.0 / math.Pi

// ValueSet is decoded content of single PGN.
type ValueSet interface {
	// PGN returns PGN this value set decodes
	PGN() uint32
	// Decode extracts and scales fields from frame. Structural errors (see IsStructural) leave value set untouched,
	// partial errors (see IsPartial) mean that value set is populated except for unavailable fields.
	Decode(f Frame) error
	// String renders decoded values as single human-readable line
	String() string
}

// NewValueSet returns empty value set for given PGN
func NewValueSet(pgn uint32) (ValueSet, bool) {
	switch pgn {
	case PGNISOAddressClaim:
		return &AddressClaim{}, true
	case PGNVesselHeading:
		return &VesselHeading{}, true
	case PGNRateOfTurn:
		return &RateOfTurn{}, true
	case PGNAttitude:
		return &Attitude{}, true
	case PGNWaterDepth:
		return &WaterDepth{}, true
	case PGNPositionRapidUpdate:
		return &PositionRapidUpdate{}, true
	case PGNCOGSOGRapidUpdate:
		return &COGSOGRapidUpdate{}, true
	case PGNTimeDate:
		return &TimeDate{}, true
	case PGNWindData:
		return &WindData{}, true
	case PGNEnvironmentalParameters:
		return &EnvironmentalParameters{}, true
	}
	return nil, false
}

// Decode decodes frame with decoder matching frame PGN. On partial errors value set is returned together with
// error.
func Decode(f Frame) (ValueSet, error) {
	vs, ok := NewValueSet(f.PGN)
	if !ok {
		return nil, ErrUnknownPGN
	}
	if err := vs.Decode(f); err != nil {
		if IsPartial(err) {
			return vs, err
		}
		return nil, err
	}
	return vs, nil
}

func checkFrame(f Frame, pgn uint32, minLength int) error {
	if f.PGN != pgn {
		return ErrPGNMismatch
	}
	if f.Data == nil {
		return ErrNoPayload
	}
	if len(f.Data) < minLength {
		return ErrPayloadTooShort
	}
	return nil
}

// fieldStatus collects first field level error seen while decoding.
type fieldStatus struct {
	err error
}

func (s *fieldStatus) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *fieldStatus) u16(raw uint16, scale float64, offset float64) float64 {
	if raw == math.MaxUint16 {
		s.fail(ErrValueNoData)
		return math.NaN()
	}
	return float64(raw)*scale + offset
}

func (s *fieldStatus) i16(raw int16, scale float64) float64 {
	if raw == math.MaxInt16 {
		s.fail(ErrValueNoData)
		return math.NaN()
	}
	return float64(raw) * scale
}

func (s *fieldStatus) i8(raw int8, scale float64) float64 {
	if raw == math.MaxInt8 {
		s.fail(ErrValueNoData)
		return math.NaN()
	}
	return float64(raw) * scale
}

func (s *fieldStatus) u32(raw uint32, scale float64) float64 {
	if raw == math.MaxUint32 {
		s.fail(ErrValueNoData)
		return math.NaN()
	}
	return float64(raw) * scale
}

func (s *fieldStatus) i32(raw int32, scale float64) float64 {
	if raw == math.MaxInt32 {
		s.fail(ErrValueNoData)
		return math.NaN()
	}
	return float64(raw) * scale
}

// lookupName returns name for small enumeration code or shared unknown code fallback
func lookupName(names []string, code uint8) string {
	if int(code) < len(names) {
		return names[code]
	}
	return "Unknown"
}
