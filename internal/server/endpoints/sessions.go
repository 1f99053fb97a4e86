package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// SessionList is a list of session snapshots with table output support.
type SessionList struct {
	Sessions []session.Snapshot `json:"sessions"`
	Count    int                `json:"count"`
}

var _ api.Tabler = (*SessionList)(nil)

func (l *SessionList) TableHeaders() []string {
	return []string{"ID", "STATUS", "PAGES", "PDF", "UPDATED"}
}

func (l *SessionList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Sessions))
	for _, s := range l.Sessions {
		rows = append(rows, []string{
			s.ID,
			string(s.Status),
			fmt.Sprintf("%d", s.Pages),
			s.PDFPath,
			s.UpdatedAt.Format(time.RFC3339),
		})
	}
	return rows
}

// ListSessionsEndpoint handles GET /api/sessions.
type ListSessionsEndpoint struct{}

var _ api.Endpoint = (*ListSessionsEndpoint)(nil)

func (e *ListSessionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions", e.handler
}

func (e *ListSessionsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List conversion sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	Envelope
//	@Router			/api/sessions [get]
func (e *ListSessionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	list := svcctx.SessionsFrom(r.Context()).List()
	if list == nil {
		list = []session.Snapshot{}
	}
	writeData(w, http.StatusOK, SessionList{Sessions: list, Count: len(list)})
}

func (e *ListSessionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversion sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var list SessionList
			if err := client.Get(cmd.Context(), "/api/sessions", &list); err != nil {
				return err
			}
			return api.Output(&list)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{id}.
type GetSessionEndpoint struct{}

var _ api.Endpoint = (*GetSessionEndpoint)(nil)

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	Envelope
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [get]
func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := svcctx.SessionsFrom(r.Context()).Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeDataSession(w, http.StatusOK, sess.Snapshot(), id)
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one conversion session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var snap session.Snapshot
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &snap); err != nil {
				return err
			}
			return api.Output(snap)
		},
	}
}

// DeleteSessionEndpoint handles DELETE /api/sessions/{id}.
type DeleteSessionEndpoint struct{}

var _ api.Endpoint = (*DeleteSessionEndpoint)(nil)

func (e *DeleteSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}", e.handler
}

func (e *DeleteSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	Envelope
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [delete]
func (e *DeleteSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := svcctx.SessionsFrom(r.Context()).Dispose(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if prompts := svcctx.PromptsFrom(r.Context()); prompts != nil {
		prompts.DropSession(id)
	}
	writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

func (e *DeleteSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a conversion session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			cmd.Println("deleted", args[0])
			return nil
		},
	}
}
