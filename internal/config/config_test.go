package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const exampleConfig = `
[logger]
prefix = "boat"
verbose = 1
console = true

[logger.nats]
url = "nats://localhost:4222"

[sources.gps]
type = "GPS"
port = "/dev/ttyACM0"
baud = 9600

[sources.bus]
type = "nmea"
format = "socketcan"
interface = "can0"
`

func TestParse(t *testing.T) {
	cfg, err := Parse(exampleConfig)
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, LoggerConfig{
		Prefix:    "boat",
		Verbose:   1,
		QueueSize: 1024,
		Console:   true,
		NATS:      NATSConfig{URL: "nats://localhost:4222", Subject: "marinelog"},
	}, cfg.Logger)

	sources, err := cfg.Sources()
	if !assert.NoError(t, err) || !assert.Len(t, sources, 2) {
		return
	}
	assert.Equal(t, "bus", sources[0].Name())
	assert.Equal(t, "nmea", sources[0].Type)
	assert.Equal(t, "gps", sources[1].Name())
	assert.Equal(t, "GPS", sources[1].Type)

	opts := struct {
		Port string `toml:"port"`
		Baud int    `toml:"baud"`
		Name string `toml:"name"`
	}{Baud: 115200, Name: "default"}
	assert.NoError(t, sources[1].Decode(&opts))
	assert.Equal(t, "/dev/ttyACM0", opts.Port)
	assert.Equal(t, 9600, opts.Baud)
	assert.Equal(t, "default", opts.Name)
}

func TestParse_Errors(t *testing.T) {
	var testCases = []struct {
		name        string
		when        string
		expectError string
	}{
		{
			name:        "nok, no sources",
			when:        "[logger]\nprefix = \"x\"",
			expectError: "config has no sources",
		},
		{
			name:        "nok, source without type",
			when:        "[sources.gps]\nport = \"/dev/ttyACM0\"",
			expectError: "source gps: type is required",
		},
		{
			name:        "nok, negative queue size",
			when:        "[logger]\nqueue_size = -1\n[sources.t]\ntype = \"TIMER\"",
			expectError: "logger queue_size must not be negative",
		},
		{
			name:        "nok, invalid nats subject",
			when:        "[logger.nats]\nurl = \"nats://localhost\"\nsubject = \"a.>\"\n[sources.t]\ntype = \"TIMER\"",
			expectError: `logger nats subject "a.>" contains invalid characters`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.when)

			assert.EqualError(t, err, tc.expectError)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logger.toml")
	assert.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0o600))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "boat", cfg.Logger.Prefix)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
