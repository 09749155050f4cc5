package config

import "time"

// ClientConfig is the root configuration for a lotto client session.
type ClientConfig struct {
	API     APIConfig     `yaml:"api"`
	Channel ChannelConfig `yaml:"channel"`
	Entropy EntropyConfig `yaml:"entropy"`
	Refresh RefreshConfig `yaml:"refresh"`
}

// APIConfig holds REST API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	Token      string        `yaml:"token"`      // Inline bearer token; wins over token_file
	TokenFile  string        `yaml:"token_file"` // Path to a file holding the token
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ChannelConfig holds push-channel settings.
type ChannelConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// EntropyConfig holds entropy request settings.
type EntropyConfig struct {
	LowStars       int           `yaml:"low_stars"`
	HighStars      int           `yaml:"high_stars"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RefreshConfig holds periodic state refresh settings.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}
