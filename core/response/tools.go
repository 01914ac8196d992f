// Package response defines the decision envelope returned by a reasoning
// engine: either a final answer or a set of requested tool calls.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

// ToolsResponse is the response to a tool-calling request. It keeps the
// chat-completions shape so that providers returning that format decode
// directly with ParseTools.
type ToolsResponse struct {
	ID      string      `json:"id,omitempty"`
	Model   string      `json:"model"`
	Choices []Choice    `json:"choices"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// Choice is one candidate decision from the engine.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChoiceMessage carries the text and tool calls of a Choice.
type ChoiceMessage struct {
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
}

// TokenUsage reports token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewFinal builds a response holding a final natural-language answer.
func NewFinal(model, content string) *ToolsResponse {
	return &ToolsResponse{
		Model: model,
		Choices: []Choice{{
			Message:      ChoiceMessage{Role: string(protocol.RoleAssistant), Content: content},
			FinishReason: "stop",
		}},
	}
}

// NewToolCalls builds a response requesting the given tool calls.
func NewToolCalls(model, content string, calls ...protocol.ToolCall) *ToolsResponse {
	return &ToolsResponse{
		Model: model,
		Choices: []Choice{{
			Message: ChoiceMessage{
				Role:      string(protocol.RoleAssistant),
				Content:   content,
				ToolCalls: calls,
			},
			FinishReason: "tool_calls",
		}},
	}
}

// ParseTools parses a tools response from JSON bytes.
func ParseTools(body []byte) (*ToolsResponse, error) {
	var response ToolsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}
	return &response, nil
}

// Decision returns the first choice's message. ok is false when the
// response carries no choices.
func (r *ToolsResponse) Decision() (msg ChoiceMessage, ok bool) {
	if r == nil || len(r.Choices) == 0 {
		return ChoiceMessage{}, false
	}
	return r.Choices[0].Message, true
}
