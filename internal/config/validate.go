package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.WSURL == "" {
		return errors.New("api.ws_url is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if c.Channel.ReconnectBaseDelay > c.Channel.ReconnectMaxDelay {
		return fmt.Errorf("channel.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Channel.ReconnectBaseDelay, c.Channel.ReconnectMaxDelay)
	}
	if c.Channel.BufferSize < 1 {
		return errors.New("channel.buffer_size must be >= 1")
	}

	if c.Entropy.LowStars < 1 {
		return errors.New("entropy.low_stars must be >= 1")
	}
	if c.Entropy.HighStars < 1 {
		return errors.New("entropy.high_stars must be >= 1")
	}
	if c.Entropy.RequestTimeout <= 0 {
		return errors.New("entropy.request_timeout must be positive")
	}

	if c.Refresh.Interval <= 0 {
		return errors.New("refresh.interval must be positive")
	}

	return nil
}
