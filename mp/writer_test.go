package mp

import (
	"errors"
	"testing"

	"github.com/aldas/go-marine-logger"
	"github.com/stretchr/testify/assert"
)

func TestMarshal(t *testing.T) {
	var testCases = []struct {
		name      string
		when      marinelog.Message
		expect    []byte
		expectErr error
	}{
		{
			name:   "ok, float",
			when:   marinelog.NewFloat(0x10, 0x04, 1.5),
			expect: floatMessageBytes,
		},
		{
			name:   "ok, string",
			when:   marinelog.NewString(0x30, 0x00, "ab"),
			expect: stringMessageBytes,
		},
		{
			name:   "ok, timestamp",
			when:   marinelog.NewTimestamp(0x02, 0x02, 1000),
			expect: []byte{0x94, 0x55, 0x02, 0x02, 0xCD, 0x03, 0xE8},
		},
		{
			name:   "ok, bytes",
			when:   marinelog.NewBytes(0x10, 0x03, []byte{0x01, 0x02}),
			expect: []byte{0x94, 0x55, 0x10, 0x03, 0xC4, 0x02, 0x01, 0x02},
		},
		{
			name:   "ok, nil bytes are encoded as empty bin",
			when:   marinelog.Message{Source: 0x10, Channel: 0x03, Data: marinelog.Bytes(nil)},
			expect: []byte{0x94, 0x55, 0x10, 0x03, 0xC4, 0x00},
		},
		{
			name:   "ok, string array",
			when:   marinelog.NewStringArray(0x30, 0x01, []string{"a", "b"}),
			expect: []byte{0x94, 0x55, 0x30, 0x01, 0x92, 0xA1, 'a', 0xA1, 'b'},
		},
		{
			name:      "nok, undefined payload",
			when:      marinelog.Message{Source: 0x10, Channel: 0x03},
			expectErr: ErrInvalidMessage,
		},
		{
			name:      "nok, source out of range",
			when:      marinelog.NewFloat(0x80, 0x03, 1),
			expectErr: ErrInvalidMessage,
		},
		{
			name:      "nok, channel out of range",
			when:      marinelog.NewFloat(0x10, 0xFF, 1),
			expectErr: ErrInvalidMessage,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Marshal(tc.when)

			assert.Equal(t, tc.expect, b)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type failingWriter struct {
	err error
}

func (w failingWriter) Write(p []byte) (int, error) {
	return 0, w.err
}

func TestWriteMessage_writeError(t *testing.T) {
	writeErr := errors.New("port closed")

	err := WriteMessage(failingWriter{err: writeErr}, marinelog.NewFloat(0x10, 0x04, 1.5))

	assert.ErrorIs(t, err, writeErr)
}
