package n2k

import "encoding/hex"

// RawData is NMEA2000 message payload. All multibyte values are little-endian.
//
// Getters do not check bounds. Callers must check payload length (decoders do that with PGN minimum length) before
// reading fields.
type RawData []byte

// Uint8 returns unsigned byte at offset
func (d RawData) Uint8(offset int) uint8 {
	return d[offset]
}

// Uint16 returns unsigned 16-bit integer starting at offset
func (d RawData) Uint16(offset int) uint16 {
	return uint16(d[offset]) | uint16(d[offset+1])<<8
}

// Uint32 returns unsigned 32-bit integer starting at offset
func (d RawData) Uint32(offset int) uint32 {
	return uint32(d[offset]) | uint32(d[offset+1])<<8 | uint32(d[offset+2])<<16 | uint32(d[offset+3])<<24
}

// Int8 returns signed byte at offset.
//
// Sign is recovered from the unsigned value by masking off the sign bit and, when sign bit is set, computing
// -(2^7 - masked). Same rule is used for all signed widths.
func (d RawData) Int8(offset int) int8 {
	u := d.Uint8(offset)
	v := int16(u & 0x7F)
	if u&0x80 != 0 {
		v = -1 * ((1 << 7) - v)
	}
	return int8(v)
}

// Int16 returns signed 16-bit integer starting at offset
func (d RawData) Int16(offset int) int16 {
	u := d.Uint16(offset)
	v := int32(u & 0x7FFF)
	if u&0x8000 != 0 {
		v = -1 * ((1 << 15) - v)
	}
	return int16(v)
}

// Int32 returns signed 32-bit integer starting at offset
func (d RawData) Int32(offset int) int32 {
	u := d.Uint32(offset)
	v := int64(u & 0x7FFFFFFF)
	if u&0x80000000 != 0 {
		v = -1 * ((1 << 31) - v)
	}
	return int32(v)
}

// AsHex returns data as lowercase hex string without separators
func (d RawData) AsHex() string {
	if d == nil {
		return ""
	}
	return hex.EncodeToString(d)
}
