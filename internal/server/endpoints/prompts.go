package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

var _ api.Endpoint = (*ListPromptsEndpoint)(nil)

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List interpreter prompts
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	Envelope
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"prompts": resolver.List()})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List interpreter prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp struct {
				Prompts []prompts.EmbeddedPrompt `json:"prompts"`
			}
			if err := client.Get(cmd.Context(), "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp.Prompts)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{name}.
type GetPromptEndpoint struct{}

var _ api.Endpoint = (*GetPromptEndpoint)(nil)

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{name}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get an interpreter prompt
//	@Description	Resolve a prompt, applying the session override when session_id is given
//	@Tags			prompts
//	@Produce		json
//	@Param			name		path		string	true	"Prompt key"
//	@Param			session_id	query		string	false	"Session whose override applies"
//	@Success		200			{object}	Envelope
//	@Failure		404			{object}	ErrorResponse
//	@Router			/api/prompts/{name} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resolver := svcctx.PromptsFrom(r.Context())
	if resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt resolver not initialized")
		return
	}
	resolved, err := resolver.Resolve(r.PathValue("name"), r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeData(w, http.StatusOK, resolved)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <name>",
		Short: "Show one interpreter prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resolved prompts.ResolvedPrompt
			if err := client.Get(cmd.Context(), "/api/prompts/"+args[0], &resolved); err != nil {
				return err
			}
			return api.Output(resolved)
		},
	}
}
