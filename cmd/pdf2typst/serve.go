package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/home"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/interpreter"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/server"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/server/endpoints"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
	"github.com/luoqiao6/pdf-to-typst-mcp/version"
)

var (
	serveHost string
	servePort string
)

// buildServices wires the full service graph for serve and mcp. The
// returned closer releases the session store.
func buildServices(logger *slog.Logger) (*svcctx.Services, *config.Manager, func() error, error) {
	mgr, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, nil, err
	}

	store, err := session.OpenStore(h.SessionDBPath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open session store: %w", err)
	}
	registry, err := session.NewRegistry(store, logger)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	resolver := prompts.NewResolver(logger)
	services := &svcctx.Services{
		Pipeline: pipeline.New(pipeline.FromConfig(cfg), registry, logger),
		Sessions: registry,
		Prompts:  resolver,
		Config:   mgr,
		Home:     h,
		Logger:   logger,
	}
	if cfg.Interpreter.Enabled {
		services.Interpreter = interpreter.NewOpenAI(interpreter.OpenAIConfig{
			APIKey:      config.ResolveEnvVars(cfg.Interpreter.APIKey),
			Model:       cfg.Interpreter.Model,
			BaseURL:     cfg.Interpreter.BaseURL,
			MaxAttempts: cfg.Interpreter.MaxAttempts,
		}, resolver, logger)
	}
	return services, mgr, store.Close, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pdf2typst HTTP server",
	Long: `Start the pdf2typst HTTP server.

The server exposes conversion, session, and prompt endpoints and
persists sessions under the home directory.

Examples:
  pdf2typst serve                    # Start on default port 8177
  pdf2typst serve --port 3000        # Start on custom port
  pdf2typst serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()

		services, mgr, closeStore, err := buildServices(logger)
		if err != nil {
			return err
		}
		defer closeStore()

		mgr.OnChange(func(c *config.Config) {
			logger.Info("configuration reloaded", "log_level", c.LogLevel)
		})
		mgr.WatchConfig()

		host := serveHost
		port := servePort
		if host == "" {
			host = mgr.Get().Server.Host
		}
		if port == "" && mgr.Get().Server.Port != 0 {
			port = fmt.Sprintf("%d", mgr.Get().Server.Port)
		}

		srv, err := server.New(server.Config{
			Host:            host,
			Port:            port,
			Services:        services,
			Version:         version.GitRelease,
			SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
			Logger:          logger,
		})
		if err != nil {
			return err
		}
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: from config)")

	rootCmd.AddCommand(serveCmd)
}
