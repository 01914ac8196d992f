// Package tools provides an immutable registry of callable tools. Each tool
// carries a JSON Schema that arguments are validated against before its
// handler runs.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tailored-agentic-units/flora/core/protocol"
)

// Handler is the function signature for tool implementations.
// Handlers receive the request context and schema-valid JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Result is the tool execution output that feeds back into the next
// reasoning round. IsError marks a domain-level failure reported to the
// engine as fact.
type Result struct {
	Content string
	IsError bool
}

// Entry pairs a tool definition with its handler.
type Entry struct {
	Tool    protocol.Tool
	Handler Handler
}

type compiled struct {
	tool    protocol.Tool
	handler Handler
	schema  *jsonschema.Schema
}

// Registry is a fixed set of tools. It is built once by NewRegistry and has
// no mutating methods, so it is safe for concurrent use without locking.
type Registry struct {
	order   []string
	entries map[string]compiled
}

// NewRegistry validates and compiles entries into a Registry. Construction
// fails on an empty name, a duplicate name, a nil handler or a schema that
// does not compile.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		order:   make([]string, 0, len(entries)),
		entries: make(map[string]compiled, len(entries)),
	}

	for _, e := range entries {
		if e.Tool.Name == "" {
			return nil, ErrEmptyName
		}
		if _, exists := r.entries[e.Tool.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, e.Tool.Name)
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilHandler, e.Tool.Name)
		}

		schema, err := compileSchema(e.Tool)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, e.Tool.Name, err)
		}

		r.order = append(r.order, e.Tool.Name)
		r.entries[e.Tool.Name] = compiled{tool: e.Tool, handler: e.Handler, schema: schema}
	}

	return r, nil
}

func compileSchema(tool protocol.Tool) (*jsonschema.Schema, error) {
	if len(tool.Parameters) == 0 {
		return nil, nil
	}

	// Round-trip through JSON so Go-typed literals ([]string etc.) become
	// the generic values the compiler expects.
	raw, err := json.Marshal(tool.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := tool.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(url)
}

// List returns the tool definitions in registration order.
func (r *Registry) List() []protocol.Tool {
	tools := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.entries[name].tool)
	}
	return tools
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

// Validate checks args against the named tool's schema without running it.
// Returns ErrNotFound or ErrSchemaViolation.
func (r *Registry) Validate(name string, args json.RawMessage) error {
	e, exists := r.entries[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return validate(e, args)
}

func validate(e compiled, args json.RawMessage) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var payload any
	if err := json.Unmarshal(args, &payload); err != nil {
		return fmt.Errorf("%w: %s: arguments are not valid JSON: %v", ErrSchemaViolation, e.tool.Name, err)
	}

	if e.schema == nil {
		return nil
	}
	if err := e.schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, e.tool.Name, err)
	}
	return nil
}

// Execute validates args and dispatches to the named tool's handler.
// Returns ErrNotFound for an unknown name and ErrSchemaViolation for
// arguments that fail the schema. Handler errors are wrapped with the tool
// name for context.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	e, exists := r.entries[name]
	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := validate(e, args); err != nil {
		return Result{}, err
	}

	result, err := e.handler(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s execution failed: %w", name, err)
	}

	return result, nil
}
