// Package assistant exposes the bridge to interactive assistants as an
// MCP server over stdio. Each tool maps 1:1 onto a bridge call; the
// bridge itself stays protocol-agnostic.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Caller is the slice of the connection manager the adapter needs.
type Caller interface {
	Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
	IsConnected() bool
}

// NewServer builds the MCP server with the three Bitwig tools.
func NewServer(c Caller, version string) *server.MCPServer {
	s := server.NewMCPServer("groovelink", version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("bitwig_info",
			mcp.WithDescription("Get Bitwig Studio and controller extension information"),
		),
		relayTool(c, "info.get"),
	)
	s.AddTool(
		mcp.NewTool("bitwig_list_tracks",
			mcp.WithDescription("List all tracks in the current Bitwig project"),
		),
		relayTool(c, "list.tracks"),
	)
	s.AddTool(
		mcp.NewTool("bitwig_status",
			mcp.WithDescription("Check whether Bitwig Studio is connected to the bridge"),
		),
		statusTool(c),
	)
	return s
}

// statusTool reports the device link state without touching the device.
func statusTool(c Caller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(fmt.Sprintf("Bitwig connected: %v", c.IsConnected())), nil
	}
}

// relayTool maps a parameterless tool invocation onto one bridge call.
func relayTool(c Caller, method string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := c.Call(ctx, method, json.RawMessage(`{}`))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(prettyJSON(result)), nil
	}
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout until the
// peer disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
