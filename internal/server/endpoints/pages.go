package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/interpreter"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// sessionPage resolves the session and page number from the path.
func sessionPage(r *http.Request) (*session.Session, int, error) {
	sess, err := svcctx.SessionsFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		return nil, 0, err
	}
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 1 {
		return nil, 0, fmt.Errorf("invalid page number %q", r.PathValue("page"))
	}
	return sess, page, nil
}

// PageImageEndpoint handles GET /api/sessions/{id}/page/{page}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/page/{page}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a page snapshot image
//	@Tags			sessions
//	@Produce		png
//	@Param			id		path	string	true	"Session ID"
//	@Param			page	path	int		true	"Page number"
//	@Success		200		{file}	binary
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/page/{page}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, page, err := sessionPage(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	data, ok := sess.PageImage(page)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no snapshot image for page %d", page))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

func (e *PageImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "page-image <session-id> <page>",
		Short: "Download a page snapshot image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/sessions/%s/page/%s/image", args[0], args[1])
			data, err := client.Download(cmd.Context(), path)
			if err != nil {
				return err
			}
			if outputFile == "" {
				outputFile = fmt.Sprintf("page_%s.png", args[1])
			}
			return writeFile(outputFile, data)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path")
	return cmd
}

// PageTextEndpoint handles GET /api/sessions/{id}/page/{page}/text.
type PageTextEndpoint struct{}

var _ api.Endpoint = (*PageTextEndpoint)(nil)

func (e *PageTextEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/page/{page}/text", e.handler
}

func (e *PageTextEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get extracted page content
//	@Description	Positioned runs, tables, and image placements for one page
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			page	path		int		true	"Page number"
//	@Success		200		{object}	Envelope
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/page/{page}/text [get]
func (e *PageTextEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, page, err := sessionPage(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rec := sess.Record(page)
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %s has no page %d", sess.ID, page))
		return
	}
	image, _ := sess.PageImage(page)
	snap := interpreter.SnapshotFromRecord(sess.ID, rec, sess.Meta.Pages, image)
	writeDataSession(w, http.StatusOK, snap, sess.ID)
}

func (e *PageTextEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page-text <session-id> <page>",
		Short: "Show extracted page content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/sessions/%s/page/%s/text", args[0], args[1])
			var snap interpreter.Snapshot
			if err := client.Get(cmd.Context(), path, &snap); err != nil {
				return err
			}
			return api.Output(snap)
		},
	}
}
