package n2k

import "fmt"

// WaterDepth is PGN 128267 Water Depth.
type WaterDepth struct {
	SID uint8
	// Depth is depth below transducer in meters
	Depth float64
	// Offset is distance from transducer to reference surface (water line or keel) in meters
	Offset float64
	// Range is maximum measurement range in meters
	Range float64
}

func (v *WaterDepth) PGN() uint32 {
	return PGNWaterDepth
}

func (v *WaterDepth) Decode(f Frame) error {
	if err := checkFrame(f, PGNWaterDepth, 8); err != nil {
		return err
	}
	d := f.Data
	s := fieldStatus{}
	v.SID = d.Uint8(0)
	v.Depth = s.u32(d.Uint32(1), 0.01)
	v.Offset = s.i16(d.Int16(5), 0.01)
	v.Range = s.i8(d.Int8(7), 10.0)
	return s.err
}

func (v *WaterDepth) String() string {
	return fmt.Sprintf("Water Depth: %.2fm (Offset: %.2f, Range: %.0f) Seq. ID %03d", v.Depth, v.Offset, v.Range, v.SID)
}
