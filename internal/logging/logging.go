package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// EnvLogLevel overrides level chosen by verbosity (trace, debug, info, warn, error)
	EnvLogLevel = "MARINELOG_LOG_LEVEL"
	// EnvLogNoColor disables colored console output
	EnvLogNoColor = "MARINELOG_LOG_NOCOLOR"
)

// New creates console logger writing to stderr and installs it as global zerolog logger.
func New(app string, verbose int) zerolog.Logger {
	noColor, _ := parseBool(os.Getenv(EnvLogNoColor))
	logger := NewWithWriter(os.Stderr, app, verbose, noColor)
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		logger = logger.Level(lvl)
	}
	log.Logger = logger
	return logger
}

// NewWithWriter creates console logger writing to given writer
func NewWithWriter(out io.Writer, app string, verbose int, noColor bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	return zerolog.New(output).Level(Level(verbose)).With().Timestamp().Str("app", app).Logger()
}

// Level converts verbosity count to log level. 0 = info, 1 = debug, 2 and more = trace
func Level(verbose int) zerolog.Level {
	switch {
	case verbose <= 0:
		return zerolog.InfoLevel
	case verbose == 1:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	}
	return zerolog.InfoLevel, false
}

func parseBool(raw string) (bool, bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return v, true
}
