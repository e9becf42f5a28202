package socketcan

import (
	"testing"

	"github.com/aldas/go-marine-logger/n2k"
	test_test "github.com/aldas/go-marine-logger/test"
	"github.com/stretchr/testify/assert"
)

func TestMarshalCANFrame(t *testing.T) {
	frame := n2k.CANFrame{
		Header: n2k.Header{PGN: 129025, Priority: 2, Source: 0, Destination: 255},
		Length: 8,
		Data:   [8]byte{0x3d, 0x0d, 0xb3, 0x22, 0x48, 0x32, 0x59, 0x0d},
	}

	expect := []byte{
		0x00, 0x01, 0xf8, 0x89, // CAN ID 0x09F80100 + EFF flag
		0x08, 0x00, 0x00, 0x00,
		0x3d, 0x0d, 0xb3, 0x22, 0x48, 0x32, 0x59, 0x0d,
	}
	assert.Equal(t, expect, marshalCANFrame(frame))
}

func TestUnmarshalCANFrame(t *testing.T) {
	now := test_test.UTCTime(1665488842)

	var testCases = []struct {
		name        string
		when        []byte
		expect      n2k.CANFrame
		expectError string
	}{
		{
			name: "ok, extended frame",
			when: []byte{
				0x00, 0x01, 0xf8, 0x89,
				0x08, 0x00, 0x00, 0x00,
				0x3d, 0x0d, 0xb3, 0x22, 0x48, 0x32, 0x59, 0x0d,
			},
			expect: n2k.CANFrame{
				Timestamp: uint32(now.UnixMilli()),
				Header:    n2k.Header{PGN: 129025, Priority: 2, Source: 0, Destination: 255},
				Length:    8,
				Data:      [8]byte{0x3d, 0x0d, 0xb3, 0x22, 0x48, 0x32, 0x59, 0x0d},
			},
		},
		{
			name: "ok, addressed frame with short payload",
			when: []byte{
				0xfe, 0x23, 0xea, 0x98, // 0x18EA23FE + EFF flag
				0x03, 0x00, 0x00, 0x00,
				0x00, 0xee, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			expect: n2k.CANFrame{
				Timestamp: uint32(now.UnixMilli()),
				Header:    n2k.Header{PGN: 59904, Priority: 6, Source: 254, Destination: 35},
				Length:    3,
				Data:      [8]byte{0x00, 0xee, 0x00},
			},
		},
		{
			name: "nok, remote transmission request",
			when: []byte{
				0x00, 0x01, 0xf8, 0xc9,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			expectError: "socketcan: not a data frame: remote transmission request frame",
		},
		{
			name: "nok, error frame",
			when: []byte{
				0x00, 0x01, 0xf8, 0xa9,
				0x00, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
			},
			expectError: "socketcan: not a data frame: error message frame",
		},
		{
			name:        "nok, too short",
			when:        []byte{0x00, 0x01, 0xf8, 0x89},
			expectError: "socketcan: frame too short: 4 bytes",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := unmarshalCANFrame(tc.when, now)

			assert.Equal(t, tc.expect, result)
			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
