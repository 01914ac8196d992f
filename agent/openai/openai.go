// Package openai adapts the OpenAI chat-completions API to the agent
// interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/tailored-agentic-units/flora/agent/providers"
	"github.com/tailored-agentic-units/flora/core/config"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

// ChatClient is the subset of the SDK chat-completions service used by
// Agent. *sdk.ChatCompletionService satisfies it.
type ChatClient interface {
	New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
}

// Agent calls an OpenAI-compatible chat-completions endpoint.
type Agent struct {
	chat        ChatClient
	model       string
	temperature float64
	maxTokens   int
}

// New builds an Agent from cfg. The API key is resolved from the config or
// the environment variable it names.
func New(cfg *config.AgentConfig) (*Agent, error) {
	key := cfg.Provider.ResolveAPIKey()
	if key == "" && cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("%w: openai", providers.ErrMissingAPIKey)
	}

	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Provider.BaseURL))
	}
	client := sdk.NewClient(opts...)
	return NewWithClient(&client.Chat.Completions, cfg), nil
}

// NewWithClient builds an Agent around an existing chat client.
func NewWithClient(chat ChatClient, cfg *config.AgentConfig) *Agent {
	return &Agent{
		chat:        chat,
		model:       cfg.Model.Name,
		temperature: cfg.Model.Temperature,
		maxTokens:   cfg.Model.MaxTokens,
	}
}

// Tools requests the next decision for messages with tools available.
func (a *Agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(a.model),
		Messages:    encodeMessages(messages),
		Temperature: sdk.Float(a.temperature),
	}
	if a.maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(a.maxTokens))
	}
	if len(tools) > 0 {
		params.Tools = encodeTools(tools)
	}

	completion, err := a.chat.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", providers.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	return translateResponse(completion)
}

func encodeMessages(messages []protocol.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case protocol.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case protocol.RoleUser:
			out = append(out, sdk.UserMessage(m.Content))
		case protocol.RoleTool:
			out = append(out, sdk.ToolMessage(m.Content, m.ToolCallID))
		case protocol.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, sdk.AssistantMessage(m.Content))
				continue
			}
			assistant := &sdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content = sdk.ChatCompletionAssistantMessageParamContentUnion{OfString: sdk.String(m.Content)}
			}
			for _, call := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: sdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return out
}

func encodeTools(tools []protocol.Tool) []sdk.ChatCompletionToolParam {
	out := make([]sdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: sdk.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}

func translateResponse(c *sdk.ChatCompletion) (*response.ToolsResponse, error) {
	if c == nil || len(c.Choices) == 0 {
		return nil, providers.ErrEmptyResponse
	}

	resp := &response.ToolsResponse{
		ID:    c.ID,
		Model: c.Model,
		Usage: &response.TokenUsage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		},
	}
	for _, choice := range c.Choices {
		msg := response.ChoiceMessage{
			Role:    string(protocol.RoleAssistant),
			Content: choice.Message.Content,
		}
		for _, tc := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, protocol.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		resp.Choices = append(resp.Choices, response.Choice{
			Index:        int(choice.Index),
			Message:      msg,
			FinishReason: choice.FinishReason,
		})
	}
	return resp, nil
}
