package providers_test

import (
	"testing"

	"github.com/tailored-agentic-units/flora/agent/providers"
	"github.com/tailored-agentic-units/flora/core/protocol"
)

func TestSplitSystem(t *testing.T) {
	msgs := []protocol.Message{
		protocol.NewMessage(protocol.RoleSystem, "rules"),
		protocol.NewMessage(protocol.RoleUser, "hi"),
		protocol.NewMessage(protocol.RoleSystem, "facts"),
		protocol.NewMessage(protocol.RoleAssistant, "hello"),
	}

	system, rest := providers.SplitSystem(msgs)
	if system != "rules\n\nfacts" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 2 || rest[0].Role != protocol.RoleUser || rest[1].Role != protocol.RoleAssistant {
		t.Errorf("rest = %+v", rest)
	}
}

func TestArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"object", `{"address":"Kadıköy","quantity":5}`, 2},
		{"empty", "", 0},
		{"malformed", `{"address"`, 0},
		{"not an object", `[1,2]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := providers.Arguments(tt.raw); len(got) != tt.want {
				t.Errorf("Arguments(%q) = %v, want %d keys", tt.raw, got, tt.want)
			}
		})
	}
}
