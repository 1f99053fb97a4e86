package mcpserver

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts exposes the embedded interpreter prompts. MCP prompt
// names drop the "interpreter." prefix; session overrides apply when the
// caller passes a session_id argument.
func (s *Server) registerPrompts() {
	for _, p := range s.prompts.List() {
		key := p.Key
		name := strings.TrimPrefix(key, "interpreter.")

		prompt := &mcp.Prompt{
			Name:        name,
			Description: p.Description,
			Arguments: []*mcp.PromptArgument{
				{Name: "session_id", Description: "Apply this session's prompt overrides"},
			},
		}
		s.srv.AddPrompt(prompt, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			sessionID := req.Params.Arguments["session_id"]
			resolved, err := s.prompts.Resolve(key, sessionID)
			if err != nil {
				return nil, err
			}
			return &mcp.GetPromptResult{
				Description: p.Description,
				Messages: []*mcp.PromptMessage{
					{Role: "user", Content: &mcp.TextContent{Text: resolved.Text}},
				},
			}, nil
		})
	}
}
