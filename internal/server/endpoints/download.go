package endpoints

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
)

// DownloadEndpoint handles GET /api/download?path=. Only .typ outputs
// are served; the path is cleaned before use.
type DownloadEndpoint struct{}

var _ api.Endpoint = (*DownloadEndpoint)(nil)

func (e *DownloadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/download", e.handler
}

func (e *DownloadEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Download a finalized document
//	@Tags			sessions
//	@Produce		plain
//	@Param			path	query	string	true	"Path of the .typ output"
//	@Success		200		{file}	binary
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/download [get]
func (e *DownloadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	path := filepath.Clean(raw)
	if filepath.Ext(path) != ".typ" {
		writeError(w, http.StatusBadRequest, "only .typ outputs can be downloaded")
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	http.ServeFile(w, r, path)
}

func (e *DownloadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "download <server-path>",
		Short: "Download a finalized .typ document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, err := client.Download(cmd.Context(), "/api/download?path="+url.QueryEscape(args[0]))
			if err != nil {
				return err
			}
			if outputFile == "" {
				outputFile = filepath.Base(args[0])
			}
			return writeFile(outputFile, data)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Local output file path")
	return cmd
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
