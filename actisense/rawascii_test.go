package actisense

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aldas/go-marine-logger/n2k"
	test_test "github.com/aldas/go-marine-logger/test"
	"github.com/stretchr/testify/assert"
)

func TestParseRawASCII(t *testing.T) {
	var testCases = []struct {
		name         string
		when         []byte
		expect       n2k.CANFrame
		expectErr    error
		expectAnyErr bool
	}{
		{
			name: "ok",
			when: []byte("00:34:02.718 R 15FD0800 FF 00 01 CA 6F FF FF FF\r\n"),
			expect: n2k.CANFrame{
				Timestamp: 2042718,
				Header: n2k.Header{
					PGN:         0x1FD08, // 1FD08 -> 130312 Temperature
					Source:      0,       // 0x0
					Destination: 255,     // 0xff - broadcast
					Priority:    5,       // 0x05
				},
				Length: 8,
				Data:   [8]byte{0xFF, 0x0, 0x01, 0xCA, 0x6F, 0xFF, 0xFF, 0xFF},
			},
		},
		{
			name: "ok, 127251 Rate of Turn",
			when: []byte("00:34:03.239 R 09F11323 3A 9C 63 01 00 FF FF FF\n"),
			expect: n2k.CANFrame{
				Timestamp: 2043239,
				Header: n2k.Header{
					PGN:         0x1F113, // 1F113 -> 127251 Rate of Turn
					Source:      35,      // 0x23
					Destination: 255,     // 0xff
					Priority:    2,       // 0x02
				},
				Length: 8,
				Data:   [8]byte{0x3a, 0x9c, 0x63, 0x01, 0x00, 0xff, 0xff, 0xff},
			},
		},
		{
			name: "ok, short frame",
			when: []byte("00:00:01.000 R 18EAFFFE 00 EE 00\n"),
			expect: n2k.CANFrame{
				Timestamp: 1000,
				Header:    n2k.Header{PGN: 59904, Source: 0xFE, Destination: 0xFF, Priority: 6},
				Length:    3,
				Data:      [8]byte{0x00, 0xEE, 0x00},
			},
		},
		{
			name:      "nok, sent frame is skipped",
			when:      []byte("00:34:02.718 S 15FD0800 FF 00 01 CA 6F FF FF FF\n"),
			expectErr: errSkipLine,
		},
		{
			name:      "nok, garbage is skipped",
			when:      []byte("FF FF\n"),
			expectErr: errSkipLine,
		},
		{
			name:         "nok, invalid data byte",
			when:         []byte("00:34:02.718 R 15FD0800 XX\n"),
			expectAnyErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := parseRawASCII(tc.when)

			assert.Equal(t, tc.expect, result)
			switch {
			case tc.expectErr != nil:
				assert.ErrorIs(t, err, tc.expectErr)
			case tc.expectAnyErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestToRawASCIIBytes(t *testing.T) {
	result := toRawASCIIBytes(n2k.CANFrame{
		Timestamp: 2042718,
		Header:    n2k.Header{PGN: 0x1FD08, Priority: 5, Destination: 255},
		Length:    3,
		Data:      [8]byte{0x01, 0x02, 0xAB},
	})

	assert.Equal(t, "00:34:02.718 S 15FD0800 01 02 AB\r\n", string(result))
}

func TestRawASCIIDevice_ReadFrame(t *testing.T) {
	rw := &test_test.ChunkReader{Chunks: [][]byte{
		[]byte("garbage\n00:34:02.718 R 15FD0800 FF 00 01 CA 6F FF FF FF\n00:05:10.032 R 19FD1323 60 1E F0 30 4B 08 AC 02\n00:05:10.038 R 19FD"),
		[]byte("1323 61 12 8B 01 B3 22 34 38\n00:05:10.040 S 15FD0800 FF 00 01 CA 6F FF FF FF\n"),
		[]byte("00:05:10.041 R 19FD1323 62 59 0D A4 00 F5 C7 FA\n00:05:10.041 R 19FD1323 63 FF FF F0 03 95 6F 02\n"),
		[]byte("00:05:10.046 R 19FD1323 64 01 02 01 FF FF FF FF\n"),
	}}
	d := NewRawASCIIDevice(rw, Config{
		FastPacketAssembler: n2k.NewFastPacketAssembler([]uint32{130323}),
	})

	frames := make([]n2k.Frame, 0)
	for {
		frame, err := d.ReadFrame(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if !assert.NoError(t, err) {
			return
		}
		frames = append(frames, frame)
	}

	expect := []n2k.Frame{
		{
			Timestamp: 2042718,
			Header:    n2k.Header{PGN: 130312, Priority: 5, Destination: 255},
			Data:      n2k.RawData{0xFF, 0x00, 0x01, 0xCA, 0x6F, 0xFF, 0xFF, 0xFF},
		},
		{
			Timestamp: 310046,
			Header:    n2k.Header{PGN: 130323, Priority: 6, Source: 35, Destination: 255},
			Data: n2k.RawData{
				0xF0, 0x30, 0x4B, 0x08, 0xAC, 0x02,
				0x12, 0x8B, 0x01, 0xB3, 0x22, 0x34, 0x38,
				0x59, 0x0D, 0xA4, 0x00, 0xF5, 0xC7, 0xFA,
				0xFF, 0xFF, 0xF0, 0x03, 0x95, 0x6F, 0x02,
				0x01, 0x02, 0x01,
			},
		},
	}
	assert.Equal(t, expect, frames)
}

func TestRawASCIIDevice_WriteFrame(t *testing.T) {
	rw := &test_test.ChunkReader{}
	d := NewRawASCIIDevice(rw, Config{})

	err := d.WriteFrame(context.Background(), n2k.Frame{
		Header: n2k.Header{PGN: 59904, Priority: 6, Source: 0xFE, Destination: 0xFF},
		Data:   n2k.RawData{0x00, 0xEE, 0x00},
	})
	assert.NoError(t, err)
	assert.Equal(t, "00:00:00.000 S 18EAFFFE 00 EE 00\r\n", string(rw.Written))

	err = d.WriteFrame(context.Background(), n2k.Frame{Data: make(n2k.RawData, 9)})
	assert.ErrorIs(t, err, ErrInvalidLength)
}
