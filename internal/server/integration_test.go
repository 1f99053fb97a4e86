package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/pipeline"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/prompts"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/svcctx"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/testutil"
)

// TestServerLifecycle starts the server on a real port, hits it over
// the network, and shuts it down via context cancellation.
func TestServerLifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := session.NewRegistry(nil, logger)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	services := &svcctx.Services{
		Pipeline: pipeline.New(pipeline.DefaultOptions(), registry, logger),
		Sessions: registry,
		Prompts:  prompts.NewResolver(logger),
		Logger:   logger,
	}

	port, err := testutil.FindFreePort()
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	srv, err := New(Config{
		Host:     "127.0.0.1",
		Port:     port,
		Services: services,
		Version:  "test",
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%s", port)
	if err := testutil.WaitForHTTP(url+"/health", 10*time.Second); err != nil {
		cancel()
		t.Fatalf("server never became ready: %v", err)
	}

	resp, err := http.Get(url + "/")
	if err != nil {
		cancel()
		t.Fatalf("GET /: %v", err)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode root response: %v", err)
	}
	resp.Body.Close()
	if !env.Success {
		t.Errorf("root endpoint reported failure: %s", env.Error)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v after shutdown", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
