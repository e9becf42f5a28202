package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultPrefix      = "marinelog"
	defaultQueueSize   = 1024
	defaultNATSSubject = "marinelog"
)

// Config is logger configuration file. Example:
//
//	[logger]
//	prefix = "boat"
//	verbose = 1
//
//	[logger.nats]
//	url = "nats://localhost:4222"
//
//	[sources.bus]
//	type = "NMEA"
//	port = "/dev/ttyUSB0"
type Config struct {
	Logger LoggerConfig `toml:"logger"`

	// RawSources holds one undecoded section per source. Sections are decoded by device config parsers.
	RawSources map[string]toml.Primitive `toml:"sources"`

	meta toml.MetaData
}

// LoggerConfig is core logger configuration
type LoggerConfig struct {
	// Prefix is used to name the logger instance in log output
	Prefix    string `toml:"prefix"`
	Verbose   int    `toml:"verbose"`
	QueueSize int    `toml:"queue_size"`
	// Console prints every message to stdout
	Console bool       `toml:"console"`
	NATS    NATSConfig `toml:"nats"`
}

// NATSConfig configures forwarding messages to NATS. Forwarding is disabled when URL is empty.
type NATSConfig struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// Source is configuration section of single source
type Source struct {
	name string
	Type string

	primitive toml.Primitive
	meta      toml.MetaData
}

// Name returns source (section) name
func (s Source) Name() string {
	return s.name
}

// Decode decodes source section into v. Keys not present in section keep their current values in v.
func (s Source) Decode(v any) error {
	return s.meta.PrimitiveDecode(s.primitive, v)
}

// Load reads, parses and validates configuration file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse parses and validates configuration document
func Parse(data string) (Config, error) {
	var cfg Config
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, err
	}
	cfg.meta = meta
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Logger.Prefix) == "" {
		cfg.Logger.Prefix = defaultPrefix
	}
	if cfg.Logger.QueueSize == 0 {
		cfg.Logger.QueueSize = defaultQueueSize
	}
	if cfg.Logger.NATS.URL != "" && cfg.Logger.NATS.Subject == "" {
		cfg.Logger.NATS.Subject = defaultNATSSubject
	}
}

// Sources returns source sections ordered by name
func (c Config) Sources() ([]Source, error) {
	names := make([]string, 0, len(c.RawSources))
	for name := range c.RawSources {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Source, 0, len(names))
	for _, name := range names {
		s := Source{name: name, primitive: c.RawSources[name], meta: c.meta}
		var t struct {
			Type string `toml:"type"`
		}
		if err := s.Decode(&t); err != nil {
			return nil, fmt.Errorf("source %v: %w", name, err)
		}
		s.Type = strings.TrimSpace(t.Type)
		result = append(result, s)
	}
	return result, nil
}

// Validate checks configuration for missing or invalid values
func Validate(cfg Config) error {
	if cfg.Logger.QueueSize < 0 {
		return fmt.Errorf("logger queue_size must not be negative")
	}
	if cfg.Logger.NATS.URL != "" && strings.ContainsAny(cfg.Logger.NATS.Subject, " *>") {
		return fmt.Errorf("logger nats subject %q contains invalid characters", cfg.Logger.NATS.Subject)
	}
	if len(cfg.RawSources) == 0 {
		return fmt.Errorf("config has no sources")
	}
	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	for _, s := range sources {
		if s.Type == "" {
			return fmt.Errorf("source %v: type is required", s.Name())
		}
	}
	return nil
}
