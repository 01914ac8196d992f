package session

import "github.com/tailored-agentic-units/flora/core/protocol"

// record is the document form of a turn for the MongoDB and DynamoDB
// backends.
type record struct {
	Role       string       `bson:"role" dynamodbav:"role"`
	Content    string       `bson:"content" dynamodbav:"content"`
	Name       string       `bson:"name,omitempty" dynamodbav:"name,omitempty"`
	ToolCallID string       `bson:"tool_call_id,omitempty" dynamodbav:"tool_call_id,omitempty"`
	ToolCalls  []callRecord `bson:"tool_calls,omitempty" dynamodbav:"tool_calls,omitempty"`
}

type callRecord struct {
	ID        string `bson:"id" dynamodbav:"id"`
	Name      string `bson:"name" dynamodbav:"name"`
	Arguments string `bson:"arguments" dynamodbav:"arguments"`
}

func toRecords(msgs []protocol.Message) []record {
	recs := make([]record, len(msgs))
	for i, msg := range msgs {
		recs[i] = record{
			Role:       string(msg.Role),
			Content:    msg.Content,
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			recs[i].ToolCalls = append(recs[i].ToolCalls, callRecord(tc))
		}
	}
	return recs
}

func fromRecords(recs []record) []protocol.Message {
	msgs := make([]protocol.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = protocol.Message{
			Role:       protocol.Role(rec.Role),
			Content:    rec.Content,
			Name:       rec.Name,
			ToolCallID: rec.ToolCallID,
		}
		for _, tc := range rec.ToolCalls {
			msgs[i].ToolCalls = append(msgs[i].ToolCalls, protocol.ToolCall(tc))
		}
	}
	return msgs
}
