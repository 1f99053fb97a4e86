package main

import (
	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running pdf2typst server via HTTP.

These commands require a running server (pdf2typst serve).
Use --server to specify a custom server URL.

Examples:
  pdf2typst api health              # Check server health
  pdf2typst api convert book.pdf    # Convert a PDF on the server
  pdf2typst sessions list           # List conversion sessions`,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Conversion session commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8177", "Server URL",
	)
	sessionsCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8177", "Server URL",
	)

	apiCmd.AddCommand((&endpoints.RootEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ConvertEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.PreviewEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.FinalizeEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListPromptsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.GetPromptEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.DownloadEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	// Sessions as a top-level group
	for _, ep := range endpoints.SessionCommands() {
		sessionsCmd.AddCommand(ep.Command(getServerURL))
	}

	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(sessionsCmd)
}
