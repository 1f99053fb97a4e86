// Package interpreter hands page snapshots to an external layout model
// and collects Typst fragments back. The core pipeline never depends on
// it; a missing or failing interpreter degrades to the core rendering.
package interpreter

import (
	"context"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Snapshot is the read-only view of one extracted page handed to an
// interpreter.
type Snapshot struct {
	SessionID string                `json:"session_id"`
	Page      int                   `json:"page"`
	PageCount int                   `json:"page_count"`
	PageW     float64               `json:"page_w"`
	PageH     float64               `json:"page_h"`
	Runs      []model.UnifiedRun    `json:"runs,omitempty"`
	Tables    []*model.RawTable     `json:"tables,omitempty"`
	Images    []model.RawImageAsset `json:"images,omitempty"`

	// Image is an optional rendered PNG of the page, sent alongside the
	// structured content when present. Excluded from the JSON payload;
	// it travels as an attachment.
	Image []byte `json:"-"`
}

// SnapshotFromRecord builds a snapshot from a reconciled page record.
// Image payload bytes are stripped; the interpreter only needs geometry
// and placement.
func SnapshotFromRecord(sessionID string, rec *model.PageRecord, pageCount int, pageImage []byte) Snapshot {
	snap := Snapshot{
		SessionID: sessionID,
		Page:      rec.Page,
		PageCount: pageCount,
		PageW:     rec.Width,
		PageH:     rec.Height,
		Runs:      rec.Runs,
		Tables:    rec.Tables,
		Image:     pageImage,
	}
	for _, img := range rec.Images {
		stripped := img
		stripped.Data = nil
		snap.Images = append(snap.Images, stripped)
	}
	return snap
}

// Fragment is one page's Typst markup as produced by an interpreter.
type Fragment struct {
	Page   int    `json:"page"`
	Markup string `json:"markup"`
}

// Interpreter renders one page snapshot to a Typst fragment.
type Interpreter interface {
	RenderFragment(ctx context.Context, snap Snapshot) (Fragment, error)
}
