// Package agent provides the reasoning-engine client used by the kernel's
// decision loop. Concrete engines live in subpackages; New selects one from
// configuration.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/flora/agent/anthropic"
	"github.com/tailored-agentic-units/flora/agent/bedrock"
	"github.com/tailored-agentic-units/flora/agent/mock"
	"github.com/tailored-agentic-units/flora/agent/openai"
	"github.com/tailored-agentic-units/flora/core/config"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

// ErrUnknownProvider is returned by New for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown agent provider")

// Agent decides the next step of a conversation. Given the transcript and
// the available tools it returns either a final answer or tool calls.
type Agent interface {
	Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error)
}

// New creates an Agent from cfg. A configured retry policy and rate limit
// wrap the engine, retry outermost so each attempt waits for a token.
func New(ctx context.Context, cfg *config.AgentConfig) (Agent, error) {
	var (
		a   Agent
		err error
	)

	switch strings.ToLower(cfg.Provider.Name) {
	case "openai", "":
		a, err = openai.New(cfg)
	case "anthropic":
		a, err = anthropic.New(cfg)
	case "bedrock":
		a, err = bedrock.New(ctx, cfg)
	case "mock":
		a = mock.New(cfg.Model.Name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider.Name)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit.RequestsPerSecond > 0 {
		a = WithRateLimit(a, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	if cfg.Retry.MaxAttempts > 1 {
		a = WithRetry(a, cfg.Retry)
	}
	return a, nil
}
