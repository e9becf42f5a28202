package canboat

import (
	"testing"
	"time"

	"github.com/aldas/go-marine-logger/n2k"
	"github.com/stretchr/testify/assert"
)

func TestUnmarshal(t *testing.T) {
	var testCases = []struct {
		name        string
		when        string
		expect      n2k.Frame
		expectTime  time.Time
		expectError string
	}{
		{
			name: "ok",
			when: "2021-07-29T10:18:31.758Z,6,126208,36,0,7,02,82,ff,00,10,02,00",
			expect: n2k.Frame{
				Header:    n2k.Header{PGN: 126208, Priority: 6, Source: 36, Destination: 0},
				Timestamp: uint32(time.Date(2021, 7, 29, 10, 18, 31, 758_000_000, time.UTC).UnixMilli()),
				Data:      n2k.RawData{0x02, 0x82, 0xff, 0x00, 0x10, 0x02, 0x00},
			},
			expectTime: time.Date(2021, 7, 29, 10, 18, 31, 758_000_000, time.UTC),
		},
		{
			name: "ok, time with zone",
			when: "2023-02-07T11:55:11.002+02:00,2,127250,13,255,8,ff,10,27,9c,ff,f4,01,fd",
			expect: n2k.Frame{
				Header:    n2k.Header{PGN: 127250, Priority: 2, Source: 13, Destination: 255},
				Timestamp: uint32(time.Date(2023, 2, 7, 9, 55, 11, 2_000_000, time.UTC).UnixMilli()),
				Data:      n2k.RawData{0xff, 0x10, 0x27, 0x9c, 0xff, 0xf4, 0x01, 0xfd},
			},
			expectTime: time.Date(2023, 2, 7, 9, 55, 11, 2_000_000, time.UTC),
		},
		{
			name:        "nok, too few parts",
			when:        "2021-07-29T10:18:31.758Z,6,126208,36,0,7",
			expectError: "canboat input has fewer components than expected",
		},
		{
			name:        "nok, length mismatch",
			when:        "2021-07-29T10:18:31.758Z,6,126208,36,0,3,02,82",
			expectError: "canboat input data length does not match bytes count",
		},
		{
			name:        "nok, invalid pgn",
			when:        "2021-07-29T10:18:31.758Z,6,x,36,0,1,02",
			expectError: `canboat input invalid PGN, err: strconv.ParseUint: parsing "x": invalid syntax`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frame, ts, err := Unmarshal(tc.when)

			assert.Equal(t, tc.expect, frame)
			assert.True(t, tc.expectTime.Equal(ts))
			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	f := n2k.Frame{
		Header: n2k.Header{PGN: 126208, Priority: 6, Source: 36, Destination: 0},
		Data:   n2k.RawData{0x02, 0x82, 0xff},
	}
	ts := time.Date(2021, 7, 29, 10, 18, 31, 758_000_000, time.UTC)

	assert.Equal(t, "2021-07-29T10:18:31.758Z,6,126208,36,0,3,02,82,ff", string(Marshal(f, ts)))
}
