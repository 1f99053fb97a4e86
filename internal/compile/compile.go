// Package compile validates generated Typst markup by running the typst
// compiler over it, either a local binary or a one-shot Docker
// container.
package compile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Compiler checks that a .typ file compiles.
type Compiler interface {
	// Check compiles typstPath and returns an error carrying the
	// compiler diagnostics when compilation fails.
	Check(ctx context.Context, typstPath string) error
	// Name identifies the backend for logs and CLI output.
	Name() string
}

// CompileError carries the typst compiler's diagnostics.
type CompileError struct {
	Path   string
	Output string
	Err    error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("typst compile failed for %s", e.Path)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

// LocalCompiler runs a typst binary from the host.
type LocalCompiler struct {
	binary string
	logger *slog.Logger
}

// NewLocal builds a LocalCompiler. An empty binary means "typst" on
// PATH.
func NewLocal(binary string, logger *slog.Logger) *LocalCompiler {
	if binary == "" {
		binary = "typst"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalCompiler{binary: binary, logger: logger.With("component", "compile")}
}

// Name implements Compiler.
func (c *LocalCompiler) Name() string { return "local:" + c.binary }

// Available reports whether the binary resolves on PATH.
func (c *LocalCompiler) Available() bool {
	_, err := exec.LookPath(c.binary)
	return err == nil
}

// Check implements Compiler.
func (c *LocalCompiler) Check(ctx context.Context, typstPath string) error {
	abs, err := filepath.Abs(typstPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", typstPath, err)
	}

	cmd := exec.CommandContext(ctx, c.binary, "compile", abs, "/dev/null")
	cmd.Dir = filepath.Dir(abs)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	c.logger.Debug("compile check", "backend", c.Name(), "file", abs)
	if err := cmd.Run(); err != nil {
		return &CompileError{Path: typstPath, Output: output.String(), Err: err}
	}
	return nil
}
