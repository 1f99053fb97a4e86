package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
)

func TestDefaultOptionsNormalization(t *testing.T) {
	p := New(Options{}, nil, nil)

	opts := p.Options()
	if opts.Workers < 1 {
		t.Errorf("workers = %d", opts.Workers)
	}
	if opts.MaxFileSize != 100<<20 {
		t.Errorf("max file size = %d", opts.MaxFileSize)
	}
	if opts.PageTimeout != 30*time.Second {
		t.Errorf("page timeout = %s", opts.PageTimeout)
	}
	if opts.HeadingSizeRatio != 1.2 {
		t.Errorf("heading size ratio = %v", opts.HeadingSizeRatio)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.Workers = 3
	cfg.Pipeline.StrictMode = true
	cfg.Pipeline.PageTimeout = 7 * time.Second

	opts := FromConfig(cfg)
	if opts.Workers != 3 || !opts.StrictMode {
		t.Errorf("opts = %+v", opts)
	}
	if opts.PageTimeout != 7*time.Second {
		t.Errorf("page timeout = %s", opts.PageTimeout)
	}
	if opts.SuppressOverlap != 0.95 {
		t.Errorf("suppress overlap = %v", opts.SuppressOverlap)
	}

	if def := FromConfig(nil); def.Workers < 1 {
		t.Errorf("nil config opts = %+v", def)
	}
}

func TestConvertMissingInput(t *testing.T) {
	p := New(Options{}, nil, nil)
	out := filepath.Join(t.TempDir(), "out.typ")

	_, err := p.Convert(context.Background(), "/nonexistent/input.pdf", out)
	var fatal *FatalInputError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalInputError, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("fatal input must not leave partial output")
	}
}

func TestConvertRejectsOversizeFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "big.pdf")
	if err := os.WriteFile(in, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(Options{MaxFileSize: 1024}, nil, nil)
	_, err := p.Convert(context.Background(), in, filepath.Join(dir, "out.typ"))
	var fatal *FatalInputError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalInputError, got %v", err)
	}
}

func TestConvertRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(in, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(Options{}, nil, nil)
	out := filepath.Join(dir, "out.typ")
	_, err := p.Convert(context.Background(), in, out)
	var fatal *FatalInputError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalInputError, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("fatal input must not leave partial output")
	}
}

func TestConvertRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	p := New(Options{}, nil, nil)

	_, err := p.Convert(context.Background(), dir, filepath.Join(dir, "out.typ"))
	var fatal *FatalInputError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalInputError, got %v", err)
	}
}

func TestExtractPagesWorkerOpenFailure(t *testing.T) {
	p := New(Options{Workers: 1}, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.extractPages(context.Background(), "/nonexistent/input.pdf", 3)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an open error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("extractPages did not return after its workers failed to open the document")
	}
}
