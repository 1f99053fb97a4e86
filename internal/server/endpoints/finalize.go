package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// FinalizeRequest is the POST /api/finalize request body.
type FinalizeRequest struct {
	SessionID    string `json:"session_id"`
	TypstContent string `json:"typst_content,omitempty"`
	OutputPath   string `json:"output_path,omitempty"`
}

// FinalizeResponse reports the written document.
type FinalizeResponse struct {
	SessionID  string `json:"session_id"`
	OutputPath string `json:"output_path"`
	Assets     int    `json:"assets"`
	Fragments  int    `json:"fragments"`
	Status     string `json:"status"`
}

// FinalizeEndpoint handles POST /api/finalize.
type FinalizeEndpoint struct{}

var _ api.Endpoint = (*FinalizeEndpoint)(nil)

func (e *FinalizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/finalize", e.handler
}

func (e *FinalizeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Finalize a conversion session
//	@Description	Assemble the session into the final Typst document and write it
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		FinalizeRequest	true	"Finalize request"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/finalize [post]
func (e *FinalizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	sess, err := svcctx.SessionsFrom(r.Context()).Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	res, err := svcctx.PipelineFrom(r.Context()).Finalize(r.Context(), sess, req.TypstContent, req.OutputPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeDataSession(w, http.StatusOK, FinalizeResponse{
		SessionID:  res.SessionID,
		OutputPath: res.OutputPath,
		Assets:     res.AssetCount,
		Fragments:  res.Fragments,
		Status:     string(sess.Status()),
	}, res.SessionID)
}

func (e *FinalizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "finalize <session-id>",
		Short: "Finalize a conversion session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp FinalizeResponse
			req := FinalizeRequest{SessionID: args[0], OutputPath: output}
			if err := client.Post(cmd.Context(), "/api/finalize", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output .typ path on the server")
	return cmd
}
