package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
)

// ServiceInfo is the GET / response body.
type ServiceInfo struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// RootEndpoint handles GET /.
type RootEndpoint struct {
	Version string
}

func (e *RootEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *RootEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Service info
//	@Description	Identify the service and version
//	@Tags			meta
//	@Produce		json
//	@Success		200	{object}	Envelope
//	@Router			/ [get]
func (e *RootEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	version := e.Version
	if version == "" {
		version = "dev"
	}
	writeData(w, http.StatusOK, ServiceInfo{
		Service:     "pdf2typst",
		Version:     version,
		Description: "PDF to Typst conversion service",
	})
}

func (e *RootEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show service info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var info ServiceInfo
			if err := client.Get(cmd.Context(), "/", &info); err != nil {
				return err
			}
			return api.Output(info)
		},
	}
}

// HealthResponse is the GET /health response body.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Check server health
//	@Tags			meta
//	@Produce		json
//	@Success		200	{object}	Envelope
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if sessions := svcctx.SessionsFrom(r.Context()); sessions != nil {
		resp.Sessions = len(sessions.List())
	}
	writeData(w, http.StatusOK, resp)
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s (%d sessions)\n", resp.Status, resp.Sessions)
			return nil
		},
	}
}
