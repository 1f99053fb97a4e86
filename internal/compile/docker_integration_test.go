package compile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/testutil"
)

func TestDockerCompiler_Integration(t *testing.T) {
	_ = testutil.DockerClient(t)

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dc, err := NewDocker("", logger)
	if err != nil {
		t.Fatalf("NewDocker() error = %v", err)
	}
	defer dc.Close()
	dc.Labels = testutil.ContainerLabels(t)

	if !dc.Available(ctx) {
		t.Skip("docker daemon not available")
	}

	dir := t.TempDir()

	t.Run("ValidDocument", func(t *testing.T) {
		path := filepath.Join(dir, "ok.typ")
		doc := "= Heading\n\nBody text with *bold* and _italic_.\n"
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := dc.Check(ctx, path); err != nil {
			t.Errorf("Check() error = %v", err)
		}
	})

	t.Run("BrokenDocument", func(t *testing.T) {
		path := filepath.Join(dir, "broken.typ")
		doc := "#let x = undefined_function()\n"
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		err := dc.Check(ctx, path)
		if err == nil {
			t.Fatal("Check() succeeded on a broken document")
		}
		var ce *CompileError
		if !errors.As(err, &ce) {
			t.Fatalf("Check() error = %T, want *CompileError", err)
		}
		if !strings.Contains(ce.Error(), path) {
			t.Errorf("error %q does not name the document", ce.Error())
		}
	})
}
