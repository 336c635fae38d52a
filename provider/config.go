package provider

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for creating a model client.
type Config struct {
	// Provider is the registered provider name. Required.
	Provider string `json:"provider" yaml:"provider" toml:"provider" mapstructure:"provider"`

	// Model is the model serving ChannelModel requests.
	Model string `json:"model" yaml:"model" toml:"model" mapstructure:"model"`

	// SubModel serves ChannelSubmodel requests. Empty falls back to Model.
	SubModel string `json:"sub_model" yaml:"sub_model" toml:"sub_model" mapstructure:"sub_model"`

	// APIKey authenticates against the backend.
	APIKey string `json:"-" yaml:"api_key" toml:"api_key" mapstructure:"api_key"`

	// BaseURL overrides the backend endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" toml:"base_url" mapstructure:"base_url"`

	// Temperature is the default sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature" toml:"temperature" mapstructure:"temperature"`

	// MaxTokens is the default response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds a single request. 0 uses the provider default.
	Timeout time.Duration `json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout"`

	// Options holds provider-specific configuration.
	Options map[string]any `json:"options" yaml:"options" toml:"options" mapstructure:"options"`
}

// DefaultConfig returns a Config with sensible defaults.
// Provider must still be set before use.
func DefaultConfig() Config {
	return Config{
		Temperature: 0.8,
		MaxTokens:   300,
		Timeout:     2 * time.Minute,
	}
}

// LoadFromEnv populates config fields from environment variables.
// Environment variables use the CHARKIT_ prefix and take precedence over
// existing values.
//
// Supported variables:
//   - CHARKIT_PROVIDER: Provider name
//   - CHARKIT_MODEL: Model name
//   - CHARKIT_SUB_MODEL: Submodel name
//   - CHARKIT_API_KEY: API key
//   - CHARKIT_BASE_URL: Endpoint override
//   - CHARKIT_TEMPERATURE: Sampling temperature
//   - CHARKIT_TIMEOUT: Timeout duration (e.g., "2m")
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("CHARKIT_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("CHARKIT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("CHARKIT_SUB_MODEL"); v != "" {
		c.SubModel = v
	}
	if v := os.Getenv("CHARKIT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("CHARKIT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("CHARKIT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
	if v := os.Getenv("CHARKIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
}

// FromEnv creates a Config from environment variables with defaults.
func FromEnv() Config {
	cfg := DefaultConfig()
	cfg.LoadFromEnv()
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be >= 0, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	return nil
}

// ModelFor returns the model name serving the given channel.
func (c Config) ModelFor(ch Channel) string {
	if ch == ChannelSubmodel && c.SubModel != "" {
		return c.SubModel
	}
	return c.Model
}

// WithProvider returns a copy of the config with the specified provider.
func (c Config) WithProvider(provider string) Config {
	c.Provider = provider
	return c
}

// WithModel returns a copy of the config with the specified model.
func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}

// WithOption returns a copy of the config with the specified option set.
func (c Config) WithOption(key string, value any) Config {
	if c.Options == nil {
		c.Options = make(map[string]any)
	} else {
		newOpts := make(map[string]any, len(c.Options)+1)
		for k, v := range c.Options {
			newOpts[k] = v
		}
		c.Options = newOpts
	}
	c.Options[key] = value
	return c
}

// GetStringOption retrieves a string option, returning defaultVal if not set.
func (c Config) GetStringOption(key, defaultVal string) string {
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetBoolOption retrieves a bool option, returning defaultVal if not set.
func (c Config) GetBoolOption(key string, defaultVal bool) bool {
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultVal
}
