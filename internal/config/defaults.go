package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPITimeout            = 30 * time.Second
	DefaultMaxRetries            = 3
	DefaultReconnectBaseDelay    = 1 * time.Second
	DefaultReconnectMaxDelay     = 60 * time.Second
	DefaultPingTimeout           = 60 * time.Second
	DefaultWriteTimeout          = 5 * time.Second
	DefaultBufferSize            = 1000
	DefaultLowStars              = 5
	DefaultHighStars             = 12
	DefaultEntropyRequestTimeout = 60 * time.Second
	DefaultRefreshInterval       = 5 * time.Minute
)

func (c *ClientConfig) applyDefaults() {
	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Channel defaults
	if c.Channel.ReconnectBaseDelay == 0 {
		c.Channel.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Channel.ReconnectMaxDelay == 0 {
		c.Channel.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Channel.PingTimeout == 0 {
		c.Channel.PingTimeout = DefaultPingTimeout
	}
	if c.Channel.WriteTimeout == 0 {
		c.Channel.WriteTimeout = DefaultWriteTimeout
	}
	if c.Channel.BufferSize == 0 {
		c.Channel.BufferSize = DefaultBufferSize
	}

	// Entropy defaults
	if c.Entropy.LowStars == 0 {
		c.Entropy.LowStars = DefaultLowStars
	}
	if c.Entropy.HighStars == 0 {
		c.Entropy.HighStars = DefaultHighStars
	}
	if c.Entropy.RequestTimeout == 0 {
		c.Entropy.RequestTimeout = DefaultEntropyRequestTimeout
	}

	// Refresh defaults
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = DefaultRefreshInterval
	}
}
