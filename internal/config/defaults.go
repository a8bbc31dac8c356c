package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			BaseURL: "http://127.0.0.1:8090",
		},
		Catalog: CatalogConfig{
			BaseURL:        "http://127.0.0.1:8091",
			RequestsPerSec: 5,
			Burst:          10,
		},
		Device: DeviceConfig{
			BaseURL:          "http://127.0.0.1:8092",
			PollIntervalMS:   500,
			TransferSettleMS: 300,
			MaxAttempts:      3,
			DedupeWindowMS:   500,
		},
		Defaults: DefaultsConfig{
			Volume:  50,
			Shuffle: false,
			Repeat:  "off",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Session.BaseURL == "" {
		c.Session.BaseURL = d.Session.BaseURL
	}

	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = d.Catalog.BaseURL
	}
	if c.Catalog.RequestsPerSec == 0 {
		c.Catalog.RequestsPerSec = d.Catalog.RequestsPerSec
	}
	if c.Catalog.Burst == 0 {
		c.Catalog.Burst = d.Catalog.Burst
	}

	if c.Device.BaseURL == "" {
		c.Device.BaseURL = d.Device.BaseURL
	}
	if c.Device.PollIntervalMS == 0 {
		c.Device.PollIntervalMS = d.Device.PollIntervalMS
	}
	if c.Device.TransferSettleMS == 0 {
		c.Device.TransferSettleMS = d.Device.TransferSettleMS
	}
	if c.Device.MaxAttempts == 0 {
		c.Device.MaxAttempts = d.Device.MaxAttempts
	}
	if c.Device.DedupeWindowMS == 0 {
		c.Device.DedupeWindowMS = d.Device.DedupeWindowMS
	}

	if c.Defaults.Volume == 0 {
		c.Defaults.Volume = d.Defaults.Volume
	}
	if c.Defaults.Repeat == "" {
		c.Defaults.Repeat = d.Defaults.Repeat
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}
