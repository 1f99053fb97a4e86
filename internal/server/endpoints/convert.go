package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// ConvertRequest is the POST /api/convert request body.
type ConvertRequest struct {
	PDFPath    string `json:"pdf_path"`
	OutputPath string `json:"output_path,omitempty"`
}

// ConvertResponse reports a completed conversion.
type ConvertResponse struct {
	SessionID   string `json:"session_id,omitempty"`
	OutputPath  string `json:"output_path"`
	Pages       int    `json:"pages"`
	FailedPages []int  `json:"failed_pages,omitempty"`
	Assets      int    `json:"assets"`
	DurationMS  int64  `json:"duration_ms"`
}

// ConvertEndpoint handles POST /api/convert.
type ConvertEndpoint struct{}

var _ api.Endpoint = (*ConvertEndpoint)(nil)

func (e *ConvertEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/convert", e.handler
}

func (e *ConvertEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Convert a PDF to Typst
//	@Description	Run the full conversion pipeline over a PDF on the server's filesystem
//	@Tags			convert
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ConvertRequest	true	"Conversion request"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/convert [post]
func (e *ConvertEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PDFPath == "" {
		writeError(w, http.StatusBadRequest, "pdf_path is required")
		return
	}

	out := req.OutputPath
	if out == "" {
		out = strings.TrimSuffix(req.PDFPath, filepath.Ext(req.PDFPath)) + ".typ"
	}

	res, err := svcctx.PipelineFrom(r.Context()).Convert(r.Context(), req.PDFPath, out)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeDataSession(w, http.StatusOK, ConvertResponse{
		SessionID:   res.SessionID,
		OutputPath:  out,
		Pages:       res.PageCount,
		FailedPages: res.FailedPages,
		Assets:      res.AssetCount,
		DurationMS:  res.Duration.Milliseconds(),
	}, res.SessionID)
}

func (e *ConvertEndpoint) Command(getServerURL func() string) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "convert <pdf-path>",
		Short: "Convert a PDF on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ConvertResponse
			req := ConvertRequest{PDFPath: args[0], OutputPath: output}
			if err := client.Post(cmd.Context(), "/api/convert", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output .typ path on the server")
	return cmd
}

// UploadConvertEndpoint handles POST /api/upload-convert with a
// multipart PDF upload.
type UploadConvertEndpoint struct{}

var _ api.Endpoint = (*UploadConvertEndpoint)(nil)

func (e *UploadConvertEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/upload-convert", e.handler
}

func (e *UploadConvertEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload and convert a PDF
//	@Description	Upload a PDF and run the full conversion pipeline over it
//	@Tags			convert
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF file"
//	@Success		200		{object}	Envelope
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/upload-convert [post]
func (e *UploadConvertEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 100 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", header.Filename))
		return
	}

	home := svcctx.HomeFrom(r.Context())
	if home == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}
	if err := home.EnsureExists(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pdfPath := filepath.Join(home.OutputDir(), filepath.Base(header.Filename))
	dst, err := os.Create(pdfPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err))
		return
	}
	dst.Close()

	out := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".typ"
	res, err := svcctx.PipelineFrom(r.Context()).Convert(r.Context(), pdfPath, out)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeDataSession(w, http.StatusOK, ConvertResponse{
		SessionID:   res.SessionID,
		OutputPath:  out,
		Pages:       res.PageCount,
		FailedPages: res.FailedPages,
		Assets:      res.AssetCount,
		DurationMS:  res.Duration.Milliseconds(),
	}, res.SessionID)
}

func (e *UploadConvertEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:    "upload-convert",
		Hidden: true,
		Short:  "Upload and convert a PDF (use the HTTP endpoint directly)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("upload-convert is only available over HTTP")
		},
	}
}
