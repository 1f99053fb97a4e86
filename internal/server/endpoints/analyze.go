package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// AnalyzeRequest is the POST /api/analyze request body.
type AnalyzeRequest struct {
	PDFPath string `json:"pdf_path"`
}

// AnalyzeEndpoint handles POST /api/analyze.
type AnalyzeEndpoint struct{}

var _ api.Endpoint = (*AnalyzeEndpoint)(nil)

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Analyze PDF structure
//	@Description	Extract metadata and per-page statistics without converting
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AnalyzeRequest	true	"Analysis request"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PDFPath == "" {
		writeError(w, http.StatusBadRequest, "pdf_path is required")
		return
	}

	info, err := svcctx.PipelineFrom(r.Context()).Info(r.Context(), req.PDFPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, info)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <pdf-path>",
		Short: "Analyze a PDF's structure on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var info pipeline.DocInfo
			req := AnalyzeRequest{PDFPath: args[0]}
			if err := client.Post(cmd.Context(), "/api/analyze", req, &info); err != nil {
				return err
			}
			return api.Output(info)
		},
	}
}

// PreviewRequest is the POST /api/preview request body.
type PreviewRequest struct {
	PDFPath  string `json:"pdf_path"`
	MaxPages int    `json:"max_pages,omitempty"`
}

// PreviewResponse carries the preview markup.
type PreviewResponse struct {
	Markup      string `json:"markup"`
	Pages       int    `json:"pages"`
	FailedPages []int  `json:"failed_pages,omitempty"`
}

// PreviewEndpoint handles POST /api/preview.
type PreviewEndpoint struct{}

var _ api.Endpoint = (*PreviewEndpoint)(nil)

func (e *PreviewEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/preview", e.handler
}

func (e *PreviewEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Preview Typst output
//	@Description	Convert the first pages of a PDF and return the markup without writing files
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PreviewRequest	true	"Preview request"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/preview [post]
func (e *PreviewEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PDFPath == "" {
		writeError(w, http.StatusBadRequest, "pdf_path is required")
		return
	}
	if req.MaxPages < 1 {
		req.MaxPages = 3
	}

	res, err := svcctx.PipelineFrom(r.Context()).Preview(r.Context(), req.PDFPath, req.MaxPages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, PreviewResponse{
		Markup:      res.Markup,
		Pages:       res.PageCount,
		FailedPages: res.FailedPages,
	})
}

func (e *PreviewEndpoint) Command(getServerURL func() string) *cobra.Command {
	var maxPages int
	cmd := &cobra.Command{
		Use:   "preview <pdf-path>",
		Short: "Preview the Typst output for the first pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PreviewResponse
			req := PreviewRequest{PDFPath: args[0], MaxPages: maxPages}
			if err := client.Post(cmd.Context(), "/api/preview", req, &resp); err != nil {
				return err
			}
			cmd.Println(resp.Markup)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", 3, "Pages to preview")
	return cmd
}
