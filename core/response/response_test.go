package response_test

import (
	"testing"

	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

func TestParseTools_ToolCalls(t *testing.T) {
	body := `{
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "find_best_florist", "arguments": "{\"address\":\"Kadıköy\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`

	resp, err := response.ParseTools([]byte(body))
	if err != nil {
		t.Fatalf("ParseTools failed: %v", err)
	}

	msg, ok := resp.Decision()
	if !ok {
		t.Fatal("Decision() ok = false, want true")
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].Name != "find_best_florist" {
		t.Errorf("got name %q, want find_best_florist", msg.ToolCalls[0].Name)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v, want total 15", resp.Usage)
	}
}

func TestParseTools_InvalidJSON(t *testing.T) {
	if _, err := response.ParseTools([]byte(`{`)); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestDecision_Empty(t *testing.T) {
	tests := []struct {
		name string
		resp *response.ToolsResponse
	}{
		{"nil response", nil},
		{"no choices", &response.ToolsResponse{Model: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.resp.Decision(); ok {
				t.Error("Decision() ok = true, want false")
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	final := response.NewFinal("mock", "Your order is placed.")
	msg, _ := final.Decision()
	if msg.Content != "Your order is placed." || len(msg.ToolCalls) != 0 {
		t.Errorf("NewFinal message = %+v", msg)
	}

	call := protocol.ToolCall{ID: "c1", Name: "create_flower_order", Arguments: "{}"}
	calls := response.NewToolCalls("mock", "", call)
	msg, _ = calls.Decision()
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0] != call {
		t.Errorf("NewToolCalls message = %+v", msg)
	}
	if calls.Choices[0].FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q, want tool_calls", calls.Choices[0].FinishReason)
	}
}
