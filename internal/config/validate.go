package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if err := validateURL("api.rest_url", c.API.RestURL); err != nil {
		return err
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}

	if len(c.Pipeline.Currencies) == 0 {
		return errors.New("pipeline.currencies must not be empty")
	}
	for _, cur := range c.Pipeline.Currencies {
		if cur == "" || strings.ContainsAny(cur, "/ ") {
			return fmt.Errorf("pipeline.currencies contains invalid id %q", cur)
		}
	}
	if c.Pipeline.Retries < 0 {
		return errors.New("pipeline.retries must be >= 0")
	}
	if c.Pipeline.RunTimeout <= 0 {
		return errors.New("pipeline.run_timeout must be > 0")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Dashboard.MarketsPageSize < 1 {
		return errors.New("dashboard.markets_page_size must be >= 1")
	}

	return nil
}

func (s *StorageConfig) validate() error {
	if err := validateURL("storage.endpoint", s.Endpoint); err != nil {
		return err
	}
	if s.AccessKey == "" {
		return errors.New("storage.access_key is required")
	}
	if s.SecretKey == "" {
		return errors.New("storage.secret_key is required")
	}
	if s.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", field, raw)
	}
	return nil
}

// ParseLevel maps a config log level to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", level)
}
