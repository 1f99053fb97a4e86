package interpreter

import (
	"context"
	"fmt"
)

// Mock is a test interpreter. With no RenderFunc it echoes the run text
// of the snapshot as plain paragraphs.
type Mock struct {
	RenderFunc func(ctx context.Context, snap Snapshot) (Fragment, error)
}

// RenderFragment implements Interpreter.
func (m *Mock) RenderFragment(ctx context.Context, snap Snapshot) (Fragment, error) {
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, snap)
	}
	markup := ""
	for _, run := range snap.Runs {
		markup += run.Text + "\n\n"
	}
	if markup == "" {
		markup = fmt.Sprintf("// page %d empty\n", snap.Page)
	}
	return Fragment{Page: snap.Page, Markup: markup}, nil
}
