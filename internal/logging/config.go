package logging

import (
	"fmt"
	"strings"
)

// Config holds logging-related configuration
type Config struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`  // debug, info, warn, error
	Format     string `env:"LOG_FORMAT" envDefault:"text"` // text or json
	File       string `env:"LOG_FILE"`                     // optional rotated log file
	MaxSize    int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAge     int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	switch strings.ToLower(c.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	if c.File == "" {
		return nil
	}
	if c.MaxSize <= 0 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be positive")
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("LOG_MAX_BACKUPS must be non-negative")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("LOG_MAX_AGE_DAYS must be non-negative")
	}
	return nil
}
