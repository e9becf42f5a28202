package n2k

import "errors"

// Structural errors. Decoder returning any of these did not write to its value set.
var (
	// ErrPGNMismatch is returned when frame PGN is not the PGN decoder handles
	ErrPGNMismatch = errors.New("frame PGN does not match decoder PGN")
	// ErrNoPayload is returned when frame has no payload at all
	ErrNoPayload = errors.New("frame has no payload")
	// ErrPayloadTooShort is returned when frame payload is shorter than PGN minimum length
	ErrPayloadTooShort = errors.New("frame payload is too short for PGN")
	// ErrUnknownPGN is returned when there is no decoder for frame PGN
	ErrUnknownPGN = errors.New("decode failed, unknown PGN seen")
)

// Field level errors. Decoder returning any of these has populated all available fields and marked unavailable
// fields as NaN (or zero for integer fields).
//
// NMEA2000 reserves the most positive value of field integer type as "data not available", e.g. 0xFFFF for
// 16-bit unsigned and 0x7FFF for 16-bit signed fields.
var (
	// ErrValueNoData indicates that at least one field had "no data" value (for example 8bits uint8=>0xFF, int8=>0x7F)
	ErrValueNoData = errors.New("field value has no data")
	// ErrValueOutOfRange indicates that at least one field value was outside its plausible range and was reset
	ErrValueOutOfRange = errors.New("field value out of range")
)

// IsPartial reports if error means that decoding succeeded structurally but some field(s) were not available.
func IsPartial(err error) bool {
	return errors.Is(err, ErrValueNoData) || errors.Is(err, ErrValueOutOfRange)
}

// IsStructural reports if error means that nothing could be decoded from frame.
func IsStructural(err error) bool {
	return errors.Is(err, ErrPGNMismatch) ||
		errors.Is(err, ErrNoPayload) ||
		errors.Is(err, ErrPayloadTooShort) ||
		errors.Is(err, ErrUnknownPGN)
}
