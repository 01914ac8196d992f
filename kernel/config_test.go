package kernel_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/flora/kernel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := kernel.DefaultConfig()

	if cfg.MaxRounds != 10 {
		t.Errorf("got MaxRounds %d, want 10", cfg.MaxRounds)
	}
	if cfg.SystemPrompt != kernel.DefaultSystemPrompt {
		t.Error("default system prompt not set")
	}
	if cfg.Observer != "slog" {
		t.Errorf("got Observer %q, want slog", cfg.Observer)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := kernel.DefaultConfig()

	source := &kernel.Config{
		MaxRounds:    20,
		SystemPrompt: "merged prompt",
		Observer:     "noop",
	}
	source.Session.Backend = "sqlite"

	cfg.Merge(source)

	if cfg.MaxRounds != 20 {
		t.Errorf("got MaxRounds %d, want 20", cfg.MaxRounds)
	}
	if cfg.SystemPrompt != "merged prompt" {
		t.Errorf("got SystemPrompt %q, want %q", cfg.SystemPrompt, "merged prompt")
	}
	if cfg.Session.Backend != "sqlite" {
		t.Errorf("got Session.Backend %q, want sqlite", cfg.Session.Backend)
	}
	if cfg.Agent.Provider.Name != "openai" {
		t.Errorf("got provider %q, want default openai preserved", cfg.Agent.Provider.Name)
	}
}

func TestConfig_Merge_ZeroValuesPreserveDefaults(t *testing.T) {
	cfg := kernel.DefaultConfig()
	original := cfg.MaxRounds

	cfg.Merge(&kernel.Config{})

	if cfg.MaxRounds != original {
		t.Errorf("got MaxRounds %d, want %d (preserved default)", cfg.MaxRounds, original)
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "flora.json",
			content: `{
				"agent": {"provider": {"name": "anthropic"}, "model": {"name": "claude"}, "timeout": "15s"},
				"session": {"backend": "file", "path": "/tmp/sessions"},
				"max_rounds": 5
			}`,
		},
		{
			name: "yaml",
			file: "flora.yaml",
			content: `
agent:
  provider:
    name: anthropic
  model:
    name: claude
  timeout: 15s
session:
  backend: file
  path: /tmp/sessions
max_rounds: 5
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			cfg, err := kernel.LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}

			if cfg.Agent.Provider.Name != "anthropic" || cfg.Agent.Model.Name != "claude" {
				t.Errorf("agent = %+v", cfg.Agent)
			}
			if cfg.Agent.Timeout != 15*time.Second {
				t.Errorf("got timeout %s, want 15s", cfg.Agent.Timeout)
			}
			if cfg.Session.Backend != "file" || cfg.Session.Path != "/tmp/sessions" {
				t.Errorf("session = %+v", cfg.Session)
			}
			if cfg.MaxRounds != 5 {
				t.Errorf("got MaxRounds %d, want 5", cfg.MaxRounds)
			}
			if cfg.SystemPrompt != kernel.DefaultSystemPrompt {
				t.Error("unset system prompt should keep the default")
			}
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("FLORA_AGENT_PROVIDER_NAME", "bedrock")
	t.Setenv("FLORA_MAX_ROUNDS", "7")
	t.Setenv("FLORA_SESSION_BACKEND", "redis")

	cfg, err := kernel.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Agent.Provider.Name != "bedrock" {
		t.Errorf("got provider %q, want bedrock", cfg.Agent.Provider.Name)
	}
	if cfg.MaxRounds != 7 {
		t.Errorf("got MaxRounds %d, want 7", cfg.MaxRounds)
	}
	if cfg.Session.Backend != "redis" {
		t.Errorf("got backend %q, want redis", cfg.Session.Backend)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := kernel.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
