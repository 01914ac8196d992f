// Package config holds configuration types shared by the agent providers.
package config

import (
	"os"
	"time"
)

const (
	defaultProvider  = "openai"
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

// AgentConfig configures the reasoning engine client.
type AgentConfig struct {
	Name      string          `json:"name,omitempty" mapstructure:"name"`
	Provider  ProviderConfig  `json:"provider" mapstructure:"provider"`
	Model     ModelConfig     `json:"model" mapstructure:"model"`
	Timeout   time.Duration   `json:"timeout,omitempty" mapstructure:"timeout"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" mapstructure:"rate_limit"`
	Retry     RetryConfig     `json:"retry,omitempty" mapstructure:"retry"`
}

// ProviderConfig identifies the hosted engine and how to reach it.
type ProviderConfig struct {
	Name      string `json:"name" mapstructure:"name"` // openai, anthropic, bedrock, mock
	BaseURL   string `json:"base_url,omitempty" mapstructure:"base_url"`
	APIKey    string `json:"api_key,omitempty" mapstructure:"api_key"`
	APIKeyEnv string `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	Region    string `json:"region,omitempty" mapstructure:"region"`
}

// ModelConfig selects the model and its sampling parameters.
type ModelConfig struct {
	Name        string  `json:"name" mapstructure:"name"`
	Temperature float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// RateLimitConfig throttles outbound engine calls. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" mapstructure:"requests_per_second"`
	Burst             int     `json:"burst,omitempty" mapstructure:"burst"`
}

// RetryConfig retries engine calls rejected for rate limiting with
// exponential backoff. MaxAttempts of zero or one disables retrying.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts,omitempty" mapstructure:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval,omitempty" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval,omitempty" mapstructure:"max_interval"`
}

// DefaultAgentConfig returns an OpenAI configuration at temperature 0.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Provider: ProviderConfig{Name: defaultProvider},
		Model: ModelConfig{
			Name:      defaultModel,
			MaxTokens: defaultMaxTokens,
		},
		Timeout: defaultTimeout,
	}
}

// Merge applies non-zero values from source into c.
func (c *AgentConfig) Merge(source *AgentConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Provider.Name != "" {
		c.Provider.Name = source.Provider.Name
	}
	if source.Provider.BaseURL != "" {
		c.Provider.BaseURL = source.Provider.BaseURL
	}
	if source.Provider.APIKey != "" {
		c.Provider.APIKey = source.Provider.APIKey
	}
	if source.Provider.APIKeyEnv != "" {
		c.Provider.APIKeyEnv = source.Provider.APIKeyEnv
	}
	if source.Provider.Region != "" {
		c.Provider.Region = source.Provider.Region
	}
	if source.Model.Name != "" {
		c.Model.Name = source.Model.Name
	}
	if source.Model.Temperature != 0 {
		c.Model.Temperature = source.Model.Temperature
	}
	if source.Model.MaxTokens > 0 {
		c.Model.MaxTokens = source.Model.MaxTokens
	}
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.RateLimit.RequestsPerSecond > 0 {
		c.RateLimit.RequestsPerSecond = source.RateLimit.RequestsPerSecond
	}
	if source.RateLimit.Burst > 0 {
		c.RateLimit.Burst = source.RateLimit.Burst
	}
	if source.Retry.MaxAttempts > 0 {
		c.Retry.MaxAttempts = source.Retry.MaxAttempts
	}
	if source.Retry.InitialInterval > 0 {
		c.Retry.InitialInterval = source.Retry.InitialInterval
	}
	if source.Retry.MaxInterval > 0 {
		c.Retry.MaxInterval = source.Retry.MaxInterval
	}
}

// ResolveAPIKey returns the explicit key, falling back to the environment
// variable named by APIKeyEnv.
func (p ProviderConfig) ResolveAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}
