package kernel

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/flora/core/config"
	"github.com/tailored-agentic-units/flora/florist"
	"github.com/tailored-agentic-units/flora/knowledge"
	"github.com/tailored-agentic-units/flora/memory"
	"github.com/tailored-agentic-units/flora/pii"
	"github.com/tailored-agentic-units/flora/session"
)

const (
	defaultMaxRounds = 10
	defaultObserver  = "slog"

	// EnvPrefix prefixes environment overrides, e.g. FLORA_AGENT_PROVIDER_NAME.
	EnvPrefix = "FLORA"
)

// Config holds initialization parameters for all kernel subsystems.
// Each subsystem section delegates to that subsystem's config-driven constructor.
type Config struct {
	Agent        config.AgentConfig `json:"agent" mapstructure:"agent"`
	Session      session.Config     `json:"session" mapstructure:"session"`
	Memory       memory.Config      `json:"memory" mapstructure:"memory"`
	Knowledge    knowledge.Config   `json:"knowledge" mapstructure:"knowledge"`
	Florist      florist.Config     `json:"florist" mapstructure:"florist"`
	PII          pii.Config         `json:"pii" mapstructure:"pii"`
	Observer     string             `json:"observer,omitempty" mapstructure:"observer"`
	MaxRounds    int                `json:"max_rounds,omitempty" mapstructure:"max_rounds"`
	SystemPrompt string             `json:"system_prompt,omitempty" mapstructure:"system_prompt"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Agent:        config.DefaultAgentConfig(),
		Session:      session.DefaultConfig(),
		Memory:       memory.DefaultConfig(),
		Knowledge:    knowledge.DefaultConfig(),
		Florist:      florist.DefaultConfig(),
		PII:          pii.DefaultConfig(),
		Observer:     defaultObserver,
		MaxRounds:    defaultMaxRounds,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Agent.Merge(&source.Agent)
	c.Session.Merge(&source.Session)
	c.Memory.Merge(&source.Memory)
	c.Knowledge.Merge(&source.Knowledge)
	c.Florist.Merge(&source.Florist)
	c.PII.Merge(&source.PII)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.MaxRounds > 0 {
		c.MaxRounds = source.MaxRounds
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
}

// LoadConfig reads a JSON or YAML config file, applies FLORA_ environment
// overrides, merges the result with defaults, and returns it. An empty
// filename reads the environment only.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v, reflect.TypeOf(Config{}), "")

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Merge(&loaded)
	return &cfg, nil
}

// bindEnv registers every leaf key of t so AutomaticEnv resolves it even
// when the file does not mention it.
func bindEnv(v *viper.Viper, t reflect.Type, prefix string) {
	for i := range t.NumField() {
		f := t.Field(i)
		key := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() != "time" {
			bindEnv(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}
