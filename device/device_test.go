package device

import (
	"context"
	"errors"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/aldas/go-marine-logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// tomlSection is configuration section given as TOML document body
type tomlSection struct {
	name string
	body string
}

func (s tomlSection) Name() string {
	return s.name
}

func (s tomlSection) Decode(v any) error {
	_, err := toml.Decode(s.body, v)
	return err
}

// drain closes queue and returns all messages left in it
func drain(q *marinelog.Queue) []marinelog.Message {
	q.Close()
	result := make([]marinelog.Message, 0)
	for {
		msg, err := q.Pop(context.Background())
		if errors.Is(err, marinelog.ErrQueueClosed) {
			return result
		}
		result = append(result, msg)
	}
}

func TestResolveSource(t *testing.T) {
	var testCases = []struct {
		name        string
		when        int
		base        uint8
		expect      uint8
		expectError string
	}{
		{name: "ok, default", when: 0, base: marinelog.SourceNMEA, expect: 0x30},
		{name: "ok, first of range", when: 0x30, base: marinelog.SourceNMEA, expect: 0x30},
		{name: "ok, last of range", when: 0x3F, base: marinelog.SourceNMEA, expect: 0x3F},
		{name: "ok, timer", when: 0x03, base: marinelog.SourceTimer, expect: 0x03},
		{
			name:        "nok, below range",
			when:        0x2F,
			base:        marinelog.SourceNMEA,
			expectError: "device: source number 0x2f outside of range 0x30-0x3f",
		},
		{
			name:        "nok, above range",
			when:        0x40,
			base:        marinelog.SourceNMEA,
			expectError: "device: source number 0x40 outside of range 0x30-0x3f",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := resolveSource(tc.when, tc.base)

			assert.Equal(t, tc.expect, result)
			if tc.expectError != "" {
				assert.EqualError(t, err, tc.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSourceLogger(t *testing.T) {
	q := marinelog.NewQueue(10)
	log := sourceLogger{source: 0x30, queue: q, logger: zerolog.Nop()}

	log.info(context.Background(), "started")
	log.warn(context.Background(), "slow")
	log.error(context.Background(), "failed", errors.New("EOF"))

	assert.Equal(t, []marinelog.Message{
		marinelog.NewString(0x30, marinelog.ChannelLogInfo, "started"),
		marinelog.NewString(0x30, marinelog.ChannelLogWarning, "slow"),
		marinelog.NewString(0x30, marinelog.ChannelLogError, "failed: EOF"),
	}, drain(q))

	// logging to closed queue is not an error
	log.info(context.Background(), "after close")
}
