// Package mcpserver exposes the converter over the Model Context
// Protocol: tools for driving conversions, resources for page
// snapshots, and the interpreter prompt templates.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
)

// Version is stamped into the MCP implementation info.
const Version = "1.0.0"

// Server wires the converter services into an MCP server.
type Server struct {
	sessions *session.Registry
	pipeline *pipeline.Pipeline
	prompts  *prompts.Resolver
	logger   *slog.Logger
	srv      *mcp.Server
}

// New builds the MCP server with all tools, resources, and prompts
// registered.
func New(sessions *session.Registry, pl *pipeline.Pipeline, resolver *prompts.Resolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = prompts.NewResolver(logger)
	}
	s := &Server{
		sessions: sessions,
		pipeline: pl,
		prompts:  resolver,
		logger:   logger.With("component", "mcp"),
	}
	s.srv = mcp.NewServer(&mcp.Implementation{Name: "pdf-to-typst", Version: Version}, nil)
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCP returns the underlying SDK server, for tests and embedding.
func (s *Server) MCP() *mcp.Server { return s.srv }

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return s.srv.Run(ctx, &mcp.StdioTransport{})
}

// inputSchema builds a JSON schema object for tool inputs.
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// addTool registers a tool whose handler returns a JSON-marshalable
// response. Handler errors become tool errors, not protocol errors.
func (s *Server) addTool(tool *mcp.Tool, handler func(ctx context.Context, args json.RawMessage) (any, error)) {
	s.srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := handler(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal response: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
