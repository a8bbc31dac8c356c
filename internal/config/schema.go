package config

// Config is the root configuration structure.
type Config struct {
	Session  SessionConfig  `toml:"session"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Device   DeviceConfig   `toml:"device"`
	Defaults DefaultsConfig `toml:"defaults"`
	Log      LogConfig      `toml:"log"`
}

// SessionConfig holds the user/session service settings.
type SessionConfig struct {
	BaseURL string `toml:"base_url"`
}

// CatalogConfig holds the track catalog lookup settings.
type CatalogConfig struct {
	BaseURL        string  `toml:"base_url"`
	RequestsPerSec float64 `toml:"requests_per_sec"`
	Burst          int     `toml:"burst"`
}

// DeviceConfig holds the device-based playback API settings.
type DeviceConfig struct {
	BaseURL          string `toml:"base_url"`
	PollIntervalMS   int    `toml:"poll_interval_ms"`
	TransferSettleMS int    `toml:"transfer_settle_ms"`
	MaxAttempts      int    `toml:"max_attempts"`
	DedupeWindowMS   int    `toml:"dedupe_window_ms"`
}

// DefaultsConfig holds default playback settings.
type DefaultsConfig struct {
	Volume  int    `toml:"volume"`
	Shuffle bool   `toml:"shuffle"`
	Repeat  string `toml:"repeat"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}
