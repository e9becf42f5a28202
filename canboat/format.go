package canboat

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aldas/go-marine-logger/n2k"
)

// Marshal formats frame as Canboat plain text line (without line ending). `t` is wall clock time frame was received.
//
// Example: `2021-07-29T10:18:31.758Z,6,126208,36,0,7,02,82,ff,00,10,02,00`
func Marshal(f n2k.Frame, t time.Time) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(t.UTC().Format(time.RFC3339Nano))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(f.Priority)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(f.PGN)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(f.Source)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(int(f.Destination)))
	buf.WriteByte(',')
	buf.WriteString(strconv.Itoa(len(f.Data)))
	for _, b := range f.Data {
		fmt.Fprintf(buf, ",%02x", b)
	}
	return buf.Bytes()
}

// Unmarshal parses Canboat plain text line. Frame timestamp is set to wall clock milliseconds of the line (wrapped to
// 32 bits) and that time is also returned.
func Unmarshal(raw string) (n2k.Frame, time.Time, error) {
	// 2021-07-29T10:18:31.758Z,6,126208,36,0,7,02,82,ff,00,10,02,00
	// 2023-02-07T11:55:11.002803898+02:00,2,127245,13,255,8,ff,07,ff,7f,00,00,ff,ff
	// time                               ,prio,pgn,src,dst,len,data...
	parts := strings.Split(raw, ",")
	if len(parts) < 7 {
		return n2k.Frame{}, time.Time{}, errors.New("canboat input has fewer components than expected")
	}
	dLen, err := strconv.ParseUint(parts[5], 10, 16)
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input invalid data length, err: %w", err)
	}
	if len(parts)-6 != int(dLen) {
		return n2k.Frame{}, time.Time{}, errors.New("canboat input data length does not match bytes count")
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input invalid time format, err: %w", err)
	}
	prio, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input invalid priority, err: %w", err)
	}
	pgn, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input invalid PGN, err: %w", err)
	}
	source, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input invalid source, err: %w", err)
	}
	destination, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input invalid destination, err: %w", err)
	}

	data, err := hex.DecodeString(strings.Join(parts[6:], ""))
	if err != nil {
		return n2k.Frame{}, time.Time{}, fmt.Errorf("canboat input failure to convert hex into bytes, err: %w", err)
	}

	t = t.UTC()
	return n2k.Frame{
		Header: n2k.Header{
			PGN:         uint32(pgn),
			Priority:    uint8(prio),
			Source:      uint8(source),
			Destination: uint8(destination),
		},
		Timestamp: uint32(t.UnixMilli()),
		Data:      data,
	}, t, nil
}
