// Package providers holds what the reasoning-engine adapters share: error
// classification and transcript shaping.
package providers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

// Sentinel errors returned by provider adapters.
var (
	ErrRateLimited   = errors.New("provider rate limited")
	ErrEmptyResponse = errors.New("provider returned empty response")
	ErrMissingAPIKey = errors.New("provider api key is missing")
)

// SplitSystem separates system messages from the conversation. Hosted
// engines that take the system prompt out of band (Anthropic, Bedrock)
// receive the joined system text and the remaining turns.
func SplitSystem(messages []protocol.Message) (string, []protocol.Message) {
	var system []string
	rest := make([]protocol.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == protocol.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}

// Arguments decodes a tool call's JSON arguments into a map for SDKs that
// take structured tool input. Empty or malformed arguments yield an empty
// object; the registry reports schema violations on the way back.
func Arguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}
