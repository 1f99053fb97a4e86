// Package extract invokes the two per-page extraction backends and
// normalizes their raw output into a single top-left-origin page-point
// coordinate space.
//
// The text backend is authoritative for text segmentation and table
// geometry; the style backend is authoritative for font metadata and
// images. Both read PDF content through pdfcpu; neither exposes backend
// internals past its interface.
package extract

import (
	"context"
	"fmt"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// TextTableBackend extracts positioned text spans and table grids from
// one page. Implementations must be side-effect free and safe to call
// from the page worker that owns the Document handle.
type TextTableBackend interface {
	ExtractTextAndTables(ctx context.Context, doc *Document, page int) ([]model.RawTextSpan, []*model.RawTable, error)
}

// StyleImageBackend extracts style-annotated spans and image assets
// from one page.
type StyleImageBackend interface {
	ExtractStylesAndImages(ctx context.Context, doc *Document, page int) ([]model.RawStyleSpan, []model.RawImageAsset, error)
}

// PageError reports that extraction failed for a single page. The
// document continues with a placeholder record for that page unless
// strict mode escalates it.
type PageError struct {
	Page    int
	Backend model.Backend
	Err     error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("extract page %d (%s backend): %v", e.Page, e.Backend, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PageError) Unwrap() error { return e.Err }
