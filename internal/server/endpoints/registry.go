package endpoints

import (
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	Version         string
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Meta endpoints
		&RootEndpoint{Version: cfg.Version},
		&HealthEndpoint{},

		// Conversion endpoints
		&ConvertEndpoint{},
		&UploadConvertEndpoint{},
		&AnalyzeEndpoint{},
		&PreviewEndpoint{},
		&FinalizeEndpoint{},

		// Session endpoints
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},
		&PageImageEndpoint{},
		&PageTextEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Output download
		&DownloadEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// SessionCommands returns endpoints for session operations, grouped
// under the "sessions" CLI subcommand.
func SessionCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},
		&PageImageEndpoint{},
		&PageTextEndpoint{},
	}
}
