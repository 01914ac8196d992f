package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		name string
		role protocol.Role
		want string
	}{
		{"system", protocol.RoleSystem, "system"},
		{"user", protocol.RoleUser, "user"},
		{"assistant", protocol.RoleAssistant, "assistant"},
		{"tool", protocol.RoleTool, "tool"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.role) != tt.want {
				t.Errorf("got %s, want %s", tt.role, tt.want)
			}
		})
	}
}

func TestMessage_Kind(t *testing.T) {
	call := protocol.ToolCall{ID: "call_1", Name: "find_best_florist", Arguments: "{}"}

	tests := []struct {
		name string
		msg  protocol.Message
		want protocol.Kind
	}{
		{"user", protocol.NewMessage(protocol.RoleUser, "hi"), protocol.KindUserMessage},
		{"assistant answer", protocol.NewMessage(protocol.RoleAssistant, "hello"), protocol.KindAssistantMessage},
		{"assistant tool call", protocol.Message{Role: protocol.RoleAssistant, ToolCalls: []protocol.ToolCall{call}}, protocol.KindToolCall},
		{"tool result", protocol.NewToolResult(call, `{"status":"success"}`), protocol.KindToolResult},
		{"system", protocol.NewMessage(protocol.RoleSystem, "rules"), protocol.KindSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Kind(); got != tt.want {
				t.Errorf("Kind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewToolResult(t *testing.T) {
	call := protocol.ToolCall{ID: "call_9", Name: "create_flower_order"}
	msg := protocol.NewToolResult(call, `{"status":"confirmed"}`)

	if msg.Role != protocol.RoleTool {
		t.Errorf("got role %s, want tool", msg.Role)
	}
	if msg.ToolCallID != "call_9" {
		t.Errorf("got tool_call_id %q, want call_9", msg.ToolCallID)
	}
	if msg.Name != "create_flower_order" {
		t.Errorf("got name %q, want create_flower_order", msg.Name)
	}
}

func TestMessage_Clone(t *testing.T) {
	orig := protocol.Message{
		Role:      protocol.RoleAssistant,
		ToolCalls: []protocol.ToolCall{{ID: "a", Name: "fn"}},
	}

	cp := orig.Clone()
	cp.ToolCalls[0].Name = "mutated"

	if orig.ToolCalls[0].Name != "fn" {
		t.Errorf("clone shares tool calls with original: %q", orig.ToolCalls[0].Name)
	}
}

func TestMessage_JSON_OmitsEmptyToolFields(t *testing.T) {
	data, err := json.Marshal(protocol.NewMessage(protocol.RoleUser, "hello"))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"tool_call_id", "tool_calls", "name"} {
		if _, exists := raw[key]; exists {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
}

func TestMessage_JSON_RoundTrip(t *testing.T) {
	orig := protocol.Message{
		Role:    protocol.RoleAssistant,
		Content: "checking",
		ToolCalls: []protocol.ToolCall{
			{ID: "call_1", Name: "find_best_florist", Arguments: `{"address":"Kadıköy"}`},
		},
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored protocol.Message
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if restored.Content != orig.Content || len(restored.ToolCalls) != 1 {
		t.Fatalf("restored = %+v, want %+v", restored, orig)
	}
	if restored.ToolCalls[0] != orig.ToolCalls[0] {
		t.Errorf("tool call = %+v, want %+v", restored.ToolCalls[0], orig.ToolCalls[0])
	}
}

func TestToolCall_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want protocol.ToolCall
	}{
		{
			name: "nested",
			data: `{"id":"call_123","type":"function","function":{"name":"get_flower_recommendations","arguments":"{\"query\":\"anniversary\"}"}}`,
			want: protocol.ToolCall{ID: "call_123", Name: "get_flower_recommendations", Arguments: `{"query":"anniversary"}`},
		},
		{
			name: "flat",
			data: `{"id":"call_456","name":"find_best_florist","arguments":"{}"}`,
			want: protocol.ToolCall{ID: "call_456", Name: "find_best_florist", Arguments: "{}"},
		},
		{
			name: "empty object",
			data: `{}`,
			want: protocol.ToolCall{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tc protocol.ToolCall
			if err := json.Unmarshal([]byte(tt.data), &tc); err != nil {
				t.Fatalf("UnmarshalJSON failed: %v", err)
			}
			if tc != tt.want {
				t.Errorf("got %+v, want %+v", tc, tt.want)
			}
		})
	}
}

func TestToolCall_UnmarshalJSON_InvalidJSON(t *testing.T) {
	var tc protocol.ToolCall
	if err := json.Unmarshal([]byte(`{invalid}`), &tc); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestToolCall_MarshalJSON_NestedFormat(t *testing.T) {
	tc := protocol.ToolCall{ID: "call_789", Name: "create_flower_order", Arguments: `{"quantity":5}`}

	data, err := json.Marshal(tc)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if raw["type"] != "function" {
		t.Errorf("got type %v, want function", raw["type"])
	}
	fn, ok := raw["function"].(map[string]any)
	if !ok {
		t.Fatalf("function field is not an object: %T", raw["function"])
	}
	if fn["name"] != "create_flower_order" {
		t.Errorf("got function.name %v", fn["name"])
	}
	if _, exists := raw["name"]; exists {
		t.Error("name should not be at top level in nested format")
	}
}

func TestTool_SchemaAccessors(t *testing.T) {
	tool := protocol.Tool{
		Name: "find_best_florist",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"address": map[string]any{"type": "string"},
			},
			"required": []any{"address", 7},
		},
	}

	if _, ok := tool.Properties()["address"]; !ok {
		t.Error("Properties() missing address")
	}
	req := tool.Required()
	if len(req) != 1 || req[0] != "address" {
		t.Errorf("Required() = %v, want [address]", req)
	}

	if (protocol.Tool{}).Properties() != nil {
		t.Error("Properties() of empty tool should be nil")
	}
}
