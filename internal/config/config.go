package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: ~/.cadencerc, $XDG_CONFIG_HOME/cadence/config.toml, ~/.config/cadence/config.toml
func Load() (*Config, error) {
	cfg := &Config{}

	// Try loading from file
	path := findConfigFile()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Apply defaults, then environment variable overrides
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	paths := []string{
		filepath.Join(home, ".cadencerc"),
	}

	// XDG_CONFIG_HOME or default
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	paths = append(paths, filepath.Join(xdgConfig, "cadence", "config.toml"))

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CADENCE_SESSION_BASE_URL"); v != "" {
		cfg.Session.BaseURL = v
	}
	if v := os.Getenv("CADENCE_CATALOG_BASE_URL"); v != "" {
		cfg.Catalog.BaseURL = v
	}
	if v := os.Getenv("CADENCE_DEVICE_BASE_URL"); v != "" {
		cfg.Device.BaseURL = v
	}
	if v := os.Getenv("CADENCE_DEVICE_POLL_INTERVAL"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Device.PollIntervalMS = i
		}
	}
	if v := os.Getenv("CADENCE_DEFAULT_VOLUME"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Defaults.Volume = i
		}
	}
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CADENCE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
