package config

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// Config holds the emulator and link settings.
type Config struct {
	// Port is the serial port of the console link.
	Port string `toml:"port"`
	// Baud is the console baud rate.
	Baud int `toml:"baud"`
	// Echo makes the emulator echo received characters back, the way the
	// firmware console does.
	Echo bool `toml:"echo"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// LogJSON selects JSON log output instead of the terminal handler.
	LogJSON bool `toml:"log_json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:     "/dev/ttyUSB0",
		Baud:     9600,
		Echo:     true,
		LogLevel: "info",
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads TOML settings from a byte slice over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.Baud)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
}
