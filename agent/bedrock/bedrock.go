// Package bedrock adapts the AWS Bedrock Converse API to the agent
// interface.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"github.com/tailored-agentic-units/flora/agent/providers"
	"github.com/tailored-agentic-units/flora/core/config"
	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

// RuntimeClient is the subset of the Bedrock runtime client used by Agent.
// *bedrockruntime.Client satisfies it.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Agent calls a Bedrock-hosted model through Converse.
type Agent struct {
	runtime     RuntimeClient
	model       string
	temperature float64
	maxTokens   int
}

// New builds an Agent using the default AWS credential chain.
func New(ctx context.Context, cfg *config.AgentConfig) (*Agent, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Provider.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Provider.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewWithClient builds an Agent around an existing runtime client.
func NewWithClient(runtime RuntimeClient, cfg *config.AgentConfig) *Agent {
	return &Agent{
		runtime:     runtime,
		model:       cfg.Model.Name,
		temperature: cfg.Model.Temperature,
		maxTokens:   cfg.Model.MaxTokens,
	}
}

// Tools requests the next decision for messages with tools available.
func (a *Agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	system, rest := providers.SplitSystem(messages)

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(a.model),
		Messages: encodeMessages(rest),
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(float32(a.temperature)),
		},
	}
	if a.maxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(a.maxTokens))
	}
	if system != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: system}}
	}
	if len(tools) > 0 {
		input.ToolConfig = &brtypes.ToolConfiguration{Tools: encodeTools(tools)}
	}

	output, err := a.runtime.Converse(ctx, input)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", providers.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}
	return translateResponse(output, a.model)
}

// encodeMessages maps the transcript onto Converse messages. Tool results
// travel in user turns; consecutive results share one turn.
func encodeMessages(messages []protocol.Message) []brtypes.Message {
	out := make([]brtypes.Message, 0, len(messages))
	var results []brtypes.ContentBlock

	flush := func() {
		if len(results) > 0 {
			out = append(out, brtypes.Message{Role: brtypes.ConversationRoleUser, Content: results})
			results = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case protocol.RoleTool:
			results = append(results, &brtypes.ContentBlockMemberToolResult{Value: brtypes.ToolResultBlock{
				ToolUseId: aws.String(m.ToolCallID),
				Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: m.Content}},
			}})
		case protocol.RoleUser:
			flush()
			out = append(out, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})
		case protocol.RoleAssistant:
			flush()
			var blocks []brtypes.ContentBlock
			if m.Content != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Content})
			}
			for _, call := range m.ToolCalls {
				args := providers.Arguments(call.Arguments)
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: aws.String(call.ID),
					Name:      aws.String(call.Name),
					Input:     document.NewLazyDocument(&args),
				}})
			}
			if len(blocks) > 0 {
				out = append(out, brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: blocks})
			}
		}
	}
	flush()
	return out
}

func encodeTools(tools []protocol.Tool) []brtypes.Tool {
	out := make([]brtypes.Tool, 0, len(tools))
	for _, t := range tools {
		schema := t.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		out = append(out, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(t.Name),
			Description: aws.String(t.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(&schema)},
		}})
	}
	return out
}

func translateResponse(output *bedrockruntime.ConverseOutput, model string) (*response.ToolsResponse, error) {
	if output == nil {
		return nil, providers.ErrEmptyResponse
	}
	msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, providers.ErrEmptyResponse
	}

	choice := response.ChoiceMessage{Role: string(protocol.RoleAssistant)}
	for _, block := range msg.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			choice.Content += v.Value
		case *brtypes.ContentBlockMemberToolUse:
			choice.ToolCalls = append(choice.ToolCalls, protocol.ToolCall{
				ID:        aws.ToString(v.Value.ToolUseId),
				Name:      aws.ToString(v.Value.Name),
				Arguments: decodeDocument(v.Value.Input),
			})
		}
	}

	finish := "stop"
	if len(choice.ToolCalls) > 0 {
		finish = "tool_calls"
	}

	resp := &response.ToolsResponse{
		Model:   model,
		Choices: []response.Choice{{Message: choice, FinishReason: finish}},
	}
	if u := output.Usage; u != nil {
		resp.Usage = &response.TokenUsage{
			PromptTokens:     int(aws.ToInt32(u.InputTokens)),
			CompletionTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(u.TotalTokens)),
		}
	}
	return resp, nil
}

func decodeDocument(doc document.Interface) string {
	if doc == nil {
		return "{}"
	}
	data, err := doc.MarshalSmithyDocument()
	if err != nil || len(data) == 0 {
		return "{}"
	}
	return string(data)
}

func isRateLimited(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	return false
}
