// Package mcpserver exposes the tool catalogue as a Model Context Protocol
// server, so MCP clients can call the flower tools directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/tools"
)

// Name is the server name announced to clients.
const Name = "flora"

// Executor lists and runs tools. *tools.Registry satisfies it.
type Executor interface {
	List() []protocol.Tool
	Execute(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

// New builds an MCP server offering every tool of exec. Calls carry no
// session, so redact_pii_and_get_address reports the address without
// binding it anywhere.
func New(exec Executor, version string) (*server.MCPServer, error) {
	s := server.NewMCPServer(Name, version,
		server.WithToolCapabilities(false),
	)

	for _, tool := range exec.List() {
		schema, err := json.Marshal(tool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", tool.Name, err)
		}
		s.AddTool(mcp.NewToolWithRawSchema(tool.Name, tool.Description, schema), handler(exec, tool.Name))
	}
	return s, nil
}

// ServeStdio serves s over standard input and output until the client
// disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func handler(exec Executor, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal arguments: %v", err)), nil
		}

		res, err := exec.Execute(ctx, name, args)
		switch {
		case errors.Is(err, tools.ErrSchemaViolation), errors.Is(err, tools.ErrNotFound):
			return mcp.NewToolResultError(err.Error()), nil
		case err != nil:
			return nil, err
		}

		result := mcp.NewToolResultText(res.Content)
		result.IsError = res.IsError
		return result, nil
	}
}
