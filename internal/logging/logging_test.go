package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, Level(-1))
	assert.Equal(t, zerolog.InfoLevel, Level(0))
	assert.Equal(t, zerolog.DebugLevel, Level(1))
	assert.Equal(t, zerolog.TraceLevel, Level(3))
}

func TestParseLevel(t *testing.T) {
	var testCases = []struct {
		when     string
		expect   zerolog.Level
		expectOK bool
	}{
		{when: "trace", expect: zerolog.TraceLevel, expectOK: true},
		{when: " DEBUG ", expect: zerolog.DebugLevel, expectOK: true},
		{when: "warning", expect: zerolog.WarnLevel, expectOK: true},
		{when: "error", expect: zerolog.ErrorLevel, expectOK: true},
		{when: "", expect: zerolog.InfoLevel, expectOK: false},
		{when: "loud", expect: zerolog.InfoLevel, expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.when, func(t *testing.T) {
			lvl, ok := parseLevel(tc.when)

			assert.Equal(t, tc.expect, lvl)
			assert.Equal(t, tc.expectOK, ok)
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := bytes.Buffer{}
	logger := NewWithWriter(&buf, "marinelogger", 0, true)

	logger.Debug().Msg("hidden")
	logger.Info().Str("source", "gps").Msg("opened")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "opened")
	assert.Contains(t, out, "app=marinelogger")
	assert.Contains(t, out, "source=gps")
}
