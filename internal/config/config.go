// Package config loads darkcrypt settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

var (
	ErrInvalidOrigin = errors.New("origin must be an absolute http(s) URL")
	ErrInvalidTTL    = errors.New("clipboard ttl must not be negative")
)

// Config holds the runtime settings. Passphrase is read here only so the
// CLI can pick it up; it is never logged or persisted.
type Config struct {
	Passphrase   string        `env:"DARKCRYPT_PASSPHRASE"`
	Origin       string        `env:"DARKCRYPT_ORIGIN" envDefault:"https://darkcrypt.app"`
	ClipboardTTL time.Duration `env:"DARKCRYPT_CLIPBOARD_TTL" envDefault:"20s"`
	JournalPath  string        `env:"DARKCRYPT_JOURNAL"`
	LogLevel     string        `env:"DARKCRYPT_LOG_LEVEL" envDefault:"warn"`
}

// Load parses the environment and validates the result
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}

	if cfg.JournalPath == "" {
		cfg.JournalPath = DefaultJournalPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be fixed up silently
func (c *Config) Validate() error {
	u, err := url.Parse(c.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, c.Origin)
	}
	if c.ClipboardTTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// DefaultJournalPath returns $XDG_DATA_HOME/darkcrypt/journal.db, falling
// back to ~/.local/share and finally the working directory.
func DefaultJournalPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "darkcrypt", "journal.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "darkcrypt", "journal.db")
	}
	return "darkcrypt-journal.db"
}
