package n2k

import (
	"testing"

	"github.com/aldas/go-marine-logger"
	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	var testCases = []struct {
		name   string
		when   Frame
		expect []marinelog.Message
	}{
		{
			name: "ok, heading",
			when: Frame{
				Header: Header{PGN: PGNVesselHeading},
				Data:   RawData{0x01, 0x10, 0x27, 0x9C, 0xFF, 0xF4, 0x01, 0xFD},
			},
			expect: []marinelog.Message{
				marinelog.NewFloat(marinelog.SourceNMEA, ChannelHeading, float32(57.29577951308232)),
				marinelog.NewFloat(marinelog.SourceNMEA, ChannelDeviation, float32(-0.5729577951308232)),
				marinelog.NewFloat(marinelog.SourceNMEA, ChannelVariation, float32(2.864788975654116)),
			},
		},
		{
			name: "ok, unavailable heading is skipped",
			when: Frame{
				Header: Header{PGN: PGNVesselHeading},
				Data:   RawData{0x01, 0xFF, 0xFF, 0x9C, 0xFF, 0xF4, 0x01, 0xFD},
			},
			expect: []marinelog.Message{
				marinelog.NewFloat(marinelog.SourceNMEA, ChannelDeviation, float32(-0.5729577951308232)),
				marinelog.NewFloat(marinelog.SourceNMEA, ChannelVariation, float32(2.864788975654116)),
			},
		},
		{
			name: "ok, unavailable date is skipped",
			when: Frame{
				Header: Header{PGN: PGNTimeDate},
				Data:   RawData{0xFF, 0xFF, 0x00, 0x51, 0x25, 0x02, 0x78, 0x00},
			},
			expect: []marinelog.Message{
				marinelog.NewFloat(marinelog.SourceNMEA, ChannelTimeOfDay, float32(3600)),
			},
		},
		{
			name: "ok, address claim has no values",
			when: Frame{
				Header: Header{PGN: PGNISOAddressClaim},
				Data:   RawData{0x2B, 0x90, 0x32, 0x22, 0x00, 0x9B, 0x50, 0xC0},
			},
			expect: []marinelog.Message{},
		},
		{
			name: "ok, unknown PGN",
			when: Frame{
				Header: Header{PGN: 59904},
				Data:   RawData{0x00, 0xEE, 0x00},
			},
			expect: nil,
		},
		{
			name: "ok, too short payload",
			when: Frame{
				Header: Header{PGN: PGNWaterDepth},
				Data:   RawData{0x00},
			},
			expect: nil,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Messages(marinelog.SourceNMEA, tc.when))
		})
	}
}

func TestChannelNames(t *testing.T) {
	names := ChannelNames()

	assert.Len(t, names, int(ChannelPressure)+1)
	assert.Equal(t, "Heading", names[ChannelHeading])
	assert.Equal(t, "Pressure", names[ChannelPressure])
	assert.Equal(t, "Raw", names[marinelog.ChannelRaw])
}
