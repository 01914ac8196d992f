package server

import "time"

// Config holds HTTP server parameters.
type Config struct {
	Addr              string        `json:"addr,omitempty" mapstructure:"addr"`
	RequestsPerSecond float64       `json:"requests_per_second,omitempty" mapstructure:"requests_per_second"` // zero disables limiting
	Burst             int           `json:"burst,omitempty" mapstructure:"burst"`
	MaxBodyBytes      int64         `json:"max_body_bytes,omitempty" mapstructure:"max_body_bytes"`
	RetryAfter        time.Duration `json:"retry_after,omitempty" mapstructure:"retry_after"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout,omitempty" mapstructure:"shutdown_timeout"`
}

// DefaultConfig listens on :5000 without rate limiting and accepts chat
// bodies up to 1 MiB.
func DefaultConfig() Config {
	return Config{
		Addr:            ":5000",
		MaxBodyBytes:    1 << 20,
		RetryAfter:      5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.RequestsPerSecond > 0 {
		c.RequestsPerSecond = source.RequestsPerSecond
	}
	if source.Burst > 0 {
		c.Burst = source.Burst
	}
	if source.MaxBodyBytes > 0 {
		c.MaxBodyBytes = source.MaxBodyBytes
	}
	if source.RetryAfter > 0 {
		c.RetryAfter = source.RetryAfter
	}
	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
}
