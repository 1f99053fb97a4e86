package compile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
)

// ErrDisabled is returned by Select when compile checking is turned
// off in the configuration.
var ErrDisabled = fmt.Errorf("compile checking disabled")

// Select picks a Compiler per the configured mode. Mode "auto" prefers
// the local binary and falls back to Docker.
func Select(ctx context.Context, cfg config.CompileConfig, logger *slog.Logger) (Compiler, error) {
	switch cfg.Mode {
	case "off":
		return nil, ErrDisabled

	case "local":
		local := NewLocal(cfg.Binary, logger)
		if !local.Available() {
			return nil, fmt.Errorf("typst binary %q not found on PATH", cfg.Binary)
		}
		return local, nil

	case "docker":
		docker, err := NewDocker(cfg.Image, logger)
		if err != nil {
			return nil, err
		}
		if !docker.Available(ctx) {
			docker.Close()
			return nil, fmt.Errorf("docker daemon not reachable")
		}
		return docker, nil

	case "", "auto":
		local := NewLocal(cfg.Binary, logger)
		if local.Available() {
			return local, nil
		}
		docker, err := NewDocker(cfg.Image, logger)
		if err != nil {
			return nil, err
		}
		if docker.Available(ctx) {
			return docker, nil
		}
		docker.Close()
		return nil, fmt.Errorf("no typst compiler available: no local binary and docker not reachable")

	default:
		return nil, fmt.Errorf("unknown compile mode %q", cfg.Mode)
	}
}
