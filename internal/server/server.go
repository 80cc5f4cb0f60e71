// Package server exposes the tool registry over the Model Context Protocol.
// The transport is stdio: stdout carries protocol frames, so all logging
// must go to stderr.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rootmcp/rootmcp/internal/tools"
)

// Server wraps an MCP server around a tool registry.
type Server struct {
	mcp    *server.MCPServer
	logger *slog.Logger
}

// New creates an MCP server and registers every tool in the registry.
func New(name, version string, registry *tools.Registry, logger *slog.Logger) (*Server, error) {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, tool := range registry.All() {
		schema, err := json.Marshal(tool.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("encoding schema for %s: %w", tool.Name(), err)
		}
		s.AddTool(
			mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema),
			handlerFor(tool, logger),
		)
		logger.Debug("tool registered", slog.String("tool", tool.Name()))
	}

	return &Server{mcp: s, logger: logger}, nil
}

// handlerFor adapts a tools.Tool into an MCP tool handler. Validation and
// execution failures become error results, not protocol errors, so the
// calling model sees them as tool output.
func handlerFor(tool tools.Tool, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := req.GetArguments()

		if err := tool.Validate(params); err != nil {
			logger.WarnContext(ctx, "tool call rejected",
				slog.String("tool", tool.Name()),
				slog.String("error", err.Error()))
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := tool.Execute(ctx, params)
		if err != nil {
			logger.ErrorContext(ctx, "tool call failed",
				slog.String("tool", tool.Name()),
				slog.String("error", err.Error()))
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !result.Success {
			return mcp.NewToolResultError(result.Output), nil
		}
		return mcp.NewToolResultText(result.Output), nil
	}
}

// ServeStdio blocks serving MCP over stdin/stdout until the client
// disconnects or the process is signalled.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcp)
}
