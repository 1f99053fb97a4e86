package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// CoordinatorConfig controls per-page extraction.
type CoordinatorConfig struct {
	// PageTimeout bounds the combined backend work for one page.
	// Zero means no per-page deadline.
	PageTimeout time.Duration
	SkipTables  bool
	SkipImages  bool
	Logger      *slog.Logger
}

// Coordinator runs both backends for a page and folds the results into
// one PageRecord. A backend error or a page timeout flags the record
// failed; the document always continues here.
type Coordinator struct {
	text   TextTableBackend
	style  StyleImageBackend
	cfg    CoordinatorConfig
	logger *slog.Logger
}

// NewCoordinator wires the default backends. Pass nil backends to use
// the content-stream implementations.
func NewCoordinator(text TextTableBackend, style StyleImageBackend, cfg CoordinatorConfig) *Coordinator {
	if text == nil {
		text = NewTextBackend()
	}
	if style == nil {
		style = NewStyleBackend()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		text:   text,
		style:  style,
		cfg:    cfg,
		logger: logger.With("component", "extract"),
	}
}

type textResult struct {
	spans  []model.RawTextSpan
	tables []*model.RawTable
	err    error
}

type styleResult struct {
	spans  []model.RawStyleSpan
	images []model.RawImageAsset
	err    error
}

// ExtractPage runs the two backends concurrently against the worker's
// Document handle. Both goroutines are always joined before return so
// the caller may reuse the handle for the next page.
func (c *Coordinator) ExtractPage(ctx context.Context, doc *Document, page int) model.PageRecord {
	w, h := doc.PageSize(page)
	rec := model.PageRecord{Page: page, Width: w, Height: h}

	pctx := ctx
	var cancel context.CancelFunc
	if c.cfg.PageTimeout > 0 {
		pctx, cancel = context.WithTimeout(ctx, c.cfg.PageTimeout)
		defer cancel()
	}

	textCh := make(chan textResult, 1)
	styleCh := make(chan styleResult, 1)
	go func() {
		spans, tables, err := c.text.ExtractTextAndTables(pctx, doc, page)
		textCh <- textResult{spans: spans, tables: tables, err: err}
	}()
	go func() {
		spans, images, err := c.style.ExtractStylesAndImages(pctx, doc, page)
		styleCh <- styleResult{spans: spans, images: images, err: err}
	}()

	tr := <-textCh
	sr := <-styleCh

	var pageErr *PageError
	switch {
	case pctx.Err() != nil:
		pageErr = &PageError{Page: page, Backend: model.BackendText, Err: pctx.Err()}
	case tr.err != nil:
		pageErr = &PageError{Page: page, Backend: model.BackendText, Err: tr.err}
	case sr.err != nil:
		pageErr = &PageError{Page: page, Backend: model.BackendStyle, Err: sr.err}
	}
	if pageErr != nil {
		c.logger.Warn("page extraction failed", "page", page, "error", pageErr)
		rec.Failed = true
		rec.FailReason = pageErr.Error()
		return rec
	}

	rec.TextSpans = tr.spans
	rec.StyleSpans = sr.spans
	if !c.cfg.SkipTables {
		rec.Tables = tr.tables
	}
	if !c.cfg.SkipImages {
		rec.Images = sr.images
	}
	c.logger.Debug("page extracted",
		"page", page,
		"text_spans", len(rec.TextSpans),
		"style_spans", len(rec.StyleSpans),
		"tables", len(rec.Tables),
		"images", len(rec.Images))
	return rec
}
