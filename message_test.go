package marinelog

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNewMessage(t *testing.T) {
	var testCases = []struct {
		name         string
		when         Message
		expectDType  DType
		expectLength int
		expectData   Payload
	}{
		{
			name:         "ok, float",
			when:         NewFloat(SourceMP, 4, 1.5),
			expectDType:  DTypeFloat,
			expectLength: 1,
			expectData:   Float(1.5),
		},
		{
			name:         "ok, timestamp",
			when:         NewTimestamp(SourceTimer, ChannelTimestamp, 123456),
			expectDType:  DTypeTimestamp,
			expectLength: 1,
			expectData:   Timestamp(123456),
		},
		{
			name:         "ok, bytes",
			when:         NewBytes(SourceGPS, ChannelRaw, []byte{0xb5, 0x62, 0x01}),
			expectDType:  DTypeBytes,
			expectLength: 3,
			expectData:   Bytes{0xb5, 0x62, 0x01},
		},
		{
			name:         "ok, nil bytes become empty",
			when:         NewBytes(SourceGPS, ChannelRaw, nil),
			expectDType:  DTypeBytes,
			expectLength: 0,
			expectData:   Bytes{},
		},
		{
			name:         "ok, string",
			when:         NewString(SourceNMEA, ChannelName, "NMEA2000"),
			expectDType:  DTypeString,
			expectLength: 8,
			expectData:   String("NMEA2000"),
		},
		{
			name:         "ok, string array",
			when:         NewStringArray(SourceMP, ChannelMap, []string{"Name", "Channels", "Timestamp"}),
			expectDType:  DTypeStringArray,
			expectLength: 3,
			expectData:   StringArray{"Name", "Channels", "Timestamp"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectDType, tc.when.DType())
			assert.Equal(t, tc.expectLength, tc.when.Length())
			assert.Equal(t, tc.expectData, tc.when.Data)
		})
	}
}

func TestNewBytes_takesOwnership(t *testing.T) {
	data := []byte{1, 2, 3}
	msg := NewBytes(SourceExternal, ChannelRaw, data)

	b, ok := msg.Data.(Bytes)
	assert.True(t, ok)
	assert.Equal(t, &data[0], &b[0])
}

func TestMessage_Release(t *testing.T) {
	var testCases = []struct {
		name string
		when Message
	}{
		{name: "ok, float", when: NewFloat(1, 4, 2)},
		{name: "ok, timestamp", when: NewTimestamp(1, 2, 2)},
		{name: "ok, bytes", when: NewBytes(1, 3, []byte{1, 2})},
		{name: "ok, string", when: NewString(1, 0, "name")},
		{name: "ok, string array", when: NewStringArray(1, 1, []string{"a", "b"})},
		{name: "ok, already undefined", when: Message{Source: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.when
			msg.Release()

			assert.Nil(t, msg.Data)
			assert.Equal(t, DTypeUndefined, msg.DType())
			assert.Equal(t, 0, msg.Length())
		})
	}
}

func TestMessage_ReleaseStringArrayClearsElements(t *testing.T) {
	names := []string{"Name", "Channels"}
	msg := NewStringArray(SourceMP, ChannelMap, names)

	msg.Release()

	assert.Equal(t, []string{"", ""}, names)
}

func TestMessage_String(t *testing.T) {
	var testCases = []struct {
		name   string
		when   Message
		expect string
	}{
		{name: "ok, float", when: NewFloat(0x30, 0x04, 1.25), expect: "0x30:0x04 1.25"},
		{name: "ok, timestamp", when: NewTimestamp(0x02, 0x02, 1000), expect: "0x02:0x02 1000ms"},
		{name: "ok, bytes", when: NewBytes(0x10, 0x03, []byte{0xb5, 0x62}), expect: "0x10:0x03 b562"},
		{name: "ok, string", when: NewString(0x70, 0x00, "IMU"), expect: `0x70:0x00 "IMU"`},
		{name: "ok, string array", when: NewStringArray(0x70, 0x01, []string{"a"}), expect: `0x70:0x01 ["a"]`},
		{name: "ok, undefined", when: Message{Source: 0x01}, expect: "0x01:0x00 <undefined>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.when.String())
		})
	}
}
