// Package mock provides a scripted, offline agent for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/core/response"
)

// Step produces one decision from the transcript the agent was given.
type Step func(messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error)

// Agent replays Steps in order. Once they are exhausted it runs the
// fallback step, which by default answers with an echo of the latest user
// message.
type Agent struct {
	model string

	mu       sync.Mutex
	steps    []Step
	fallback Step
	requests [][]protocol.Message
}

// New creates an Agent that plays steps in order.
func New(model string, steps ...Step) *Agent {
	if model == "" {
		model = "mock"
	}
	a := &Agent{model: model, steps: steps}
	a.fallback = a.echo
	return a
}

// Repeat sets the step run after the script is exhausted.
func (a *Agent) Repeat(step Step) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fallback = step
	return a
}

// Tools runs the next step.
func (a *Agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	snapshot := make([]protocol.Message, len(messages))
	for i, m := range messages {
		snapshot[i] = m.Clone()
	}
	a.requests = append(a.requests, snapshot)

	step := a.fallback
	if len(a.steps) > 0 {
		step = a.steps[0]
		a.steps = a.steps[1:]
	}
	a.mu.Unlock()

	resp, err := step(snapshot, tools)
	if resp != nil && resp.Model == "" {
		resp.Model = a.model
	}
	return resp, err
}

// Requests returns the transcripts the agent has been called with.
func (a *Agent) Requests() [][]protocol.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([][]protocol.Message(nil), a.requests...)
}

func (a *Agent) echo(messages []protocol.Message, _ []protocol.Tool) (*response.ToolsResponse, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == protocol.RoleUser {
			return response.NewFinal(a.model, fmt.Sprintf("You said: %s", messages[i].Content)), nil
		}
	}
	return response.NewFinal(a.model, "How can I help you with flowers today?"), nil
}

// Reply answers with text.
func Reply(text string) Step {
	return func([]protocol.Message, []protocol.Tool) (*response.ToolsResponse, error) {
		return response.NewFinal("", text), nil
	}
}

// Call requests a single tool call.
func Call(id, name, arguments string) Step {
	return Calls(protocol.ToolCall{ID: id, Name: name, Arguments: arguments})
}

// Calls requests several tool calls in one decision.
func Calls(calls ...protocol.ToolCall) Step {
	return func([]protocol.Message, []protocol.Tool) (*response.ToolsResponse, error) {
		return response.NewToolCalls("", "", calls...), nil
	}
}

// Fail returns err.
func Fail(err error) Step {
	return func([]protocol.Message, []protocol.Tool) (*response.ToolsResponse, error) {
		return nil, err
	}
}

// Block waits until ctx ends and returns its error. Used to exercise
// decision timeouts.
func Block(ctx context.Context) Step {
	return func([]protocol.Message, []protocol.Tool) (*response.ToolsResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}
