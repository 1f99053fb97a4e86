package compile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/config"
)

func TestCompileErrorMessage(t *testing.T) {
	err := &CompileError{
		Path:   "doc.typ",
		Output: "error: unknown variable: foo\n",
		Err:    errors.New("exit code 1"),
	}
	msg := err.Error()
	if !strings.Contains(msg, "doc.typ") || !strings.Contains(msg, "unknown variable") {
		t.Errorf("message missing detail: %q", msg)
	}
	if !strings.Contains(errors.Unwrap(err).Error(), "exit code 1") {
		t.Errorf("unwrap lost cause")
	}

	bare := &CompileError{Path: "doc.typ"}
	if strings.HasSuffix(bare.Error(), ": ") {
		t.Errorf("empty output should not leave trailing separator: %q", bare.Error())
	}
}

func TestLocalCompilerDefaults(t *testing.T) {
	c := NewLocal("", nil)
	if c.Name() != "local:typst" {
		t.Errorf("Name() = %q", c.Name())
	}

	bogus := NewLocal("definitely-not-a-real-binary-7f3a", nil)
	if bogus.Available() {
		t.Errorf("bogus binary reported available")
	}
}

func TestSelect(t *testing.T) {
	ctx := context.Background()

	t.Run("off", func(t *testing.T) {
		_, err := Select(ctx, config.CompileConfig{Mode: "off"}, nil)
		if !errors.Is(err, ErrDisabled) {
			t.Errorf("expected ErrDisabled, got %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := Select(ctx, config.CompileConfig{Mode: "carrier-pigeon"}, nil)
		if err == nil || !strings.Contains(err.Error(), "unknown compile mode") {
			t.Errorf("expected mode error, got %v", err)
		}
	})

	t.Run("local missing binary", func(t *testing.T) {
		cfg := config.CompileConfig{Mode: "local", Binary: "definitely-not-a-real-binary-7f3a"}
		_, err := Select(ctx, cfg, nil)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected lookup error, got %v", err)
		}
	})
}
