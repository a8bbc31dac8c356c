package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}
	if err := c.Catalog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("catalog: %w", err))
	}
	if err := c.Device.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("device: %w", err))
	}
	if err := c.Defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks SessionConfig for errors.
func (c *SessionConfig) Validate() error {
	return validateBaseURL(c.BaseURL)
}

// Validate checks CatalogConfig for errors.
func (c *CatalogConfig) Validate() error {
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if c.RequestsPerSec < 0 {
		return errors.New("requests_per_sec must be non-negative")
	}
	if c.Burst < 0 {
		return errors.New("burst must be non-negative")
	}
	return nil
}

// Validate checks DeviceConfig for errors.
func (c *DeviceConfig) Validate() error {
	if err := validateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if c.PollIntervalMS < 0 {
		return errors.New("poll_interval_ms must be non-negative")
	}
	if c.TransferSettleMS < 0 {
		return errors.New("transfer_settle_ms must be non-negative")
	}
	if c.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if c.DedupeWindowMS < 0 {
		return errors.New("dedupe_window_ms must be non-negative")
	}
	return nil
}

// Validate checks DefaultsConfig for errors.
func (c *DefaultsConfig) Validate() error {
	if c.Volume < 0 || c.Volume > 100 {
		return errors.New("volume must be between 0 and 100")
	}
	switch c.Repeat {
	case "", "off", "track", "context":
		// valid
	default:
		return fmt.Errorf("invalid repeat mode: %s (must be off, track, or context)", c.Repeat)
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	switch c.Format {
	case "", "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Format)
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url scheme: %s", u.Scheme)
	}
	return nil
}
