// Package anthropic adapts the Anthropic Messages API to the agent
// interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tailored-agentic-units/flora/agent/providers"
	"github.com/tailored-agentic-units/flora/core/config"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

const defaultMaxTokens = 1024

// MessagesClient is the subset of the SDK messages service used by Agent.
// *sdk.MessageService satisfies it.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Agent calls the Anthropic Messages API.
type Agent struct {
	msg         MessagesClient
	model       string
	temperature float64
	maxTokens   int64
}

// New builds an Agent from cfg.
func New(cfg *config.AgentConfig) (*Agent, error) {
	key := cfg.Provider.ResolveAPIKey()
	if key == "" {
		return nil, fmt.Errorf("%w: anthropic", providers.ErrMissingAPIKey)
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Provider.BaseURL))
	}
	client := sdk.NewClient(opts...)
	return NewWithClient(&client.Messages, cfg), nil
}

// NewWithClient builds an Agent around an existing messages client.
func NewWithClient(msg MessagesClient, cfg *config.AgentConfig) *Agent {
	maxTokens := int64(cfg.Model.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Agent{
		msg:         msg,
		model:       cfg.Model.Name,
		temperature: cfg.Model.Temperature,
		maxTokens:   maxTokens,
	}
}

// Tools requests the next decision for messages with tools available.
func (a *Agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	system, rest := providers.SplitSystem(messages)

	params := sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   a.maxTokens,
		Messages:    encodeMessages(rest),
		Temperature: sdk.Float(a.temperature),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = encodeTools(tools)
	}

	msg, err := a.msg.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", providers.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}
	return translateResponse(msg)
}

// encodeMessages maps the transcript onto alternating user and assistant
// turns. Consecutive tool results are folded into one user turn.
func encodeMessages(messages []protocol.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	var results []sdk.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, sdk.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case protocol.RoleTool:
			results = append(results, sdk.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case protocol.RoleUser:
			flush()
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case protocol.RoleAssistant:
			flush()
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(call.ID, providers.Arguments(call.Arguments), call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, sdk.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

func encodeTools(tools []protocol.Tool) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := sdk.ToolInputSchemaParam{
			Properties: t.Properties(),
			Required:   t.Required(),
		}
		u := sdk.ToolUnionParamOfTool(schema, t.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(t.Description)
		}
		out = append(out, u)
	}
	return out
}

func translateResponse(msg *sdk.Message) (*response.ToolsResponse, error) {
	if msg == nil {
		return nil, providers.ErrEmptyResponse
	}

	choice := response.ChoiceMessage{Role: string(protocol.RoleAssistant)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			choice.Content += block.Text
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			choice.ToolCalls = append(choice.ToolCalls, protocol.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	finish := "stop"
	if len(choice.ToolCalls) > 0 {
		finish = "tool_calls"
	}

	return &response.ToolsResponse{
		ID:      msg.ID,
		Model:   string(msg.Model),
		Choices: []response.Choice{{Message: choice, FinishReason: finish}},
		Usage: &response.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}
