package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/analyze"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/assets"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/doctree"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/integrate"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/interpreter"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/render"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
)

// Start validates the input, extracts and reconciles every page, and
// parks the result on a new session for interactive finishing. Requires
// a session registry.
func (p *Pipeline) Start(ctx context.Context, inputPath string) (*session.Session, error) {
	if p.registry == nil {
		return nil, fmt.Errorf("start conversion: no session registry configured")
	}

	doc, err := p.validateInput(inputPath)
	if err != nil {
		return nil, err
	}
	meta := doc.Meta()
	pageCount := doc.PageCount()
	doc.Close()

	sess, err := p.registry.Create(inputPath, meta)
	if err != nil {
		return nil, err
	}
	if err := sess.Advance(session.StatusExtracting); err != nil {
		return nil, err
	}
	p.persist(sess)

	pages, err := p.extractPages(ctx, inputPath, pageCount)
	if err != nil {
		if ferr := sess.Fail(err.Error()); ferr == nil {
			p.persist(sess)
		}
		return nil, err
	}

	records := make([]*model.PageRecord, len(pages))
	for i := range pages {
		records[i] = pages[i].rec
	}
	sess.SetRecords(records)
	if err := sess.Advance(session.StatusReconciling); err == nil {
		_ = sess.Advance(session.StatusStructuring)
	}
	p.persist(sess)
	for _, rec := range records {
		if err := p.registry.PersistPage(sess, rec.Page); err != nil {
			p.logger.Warn("persist page", "session", sess.ID, "page", rec.Page, "error", err)
		}
	}

	p.logger.Info("conversion started",
		"session", sess.ID,
		"input", inputPath,
		"pages", pageCount)
	return sess, nil
}

// FinalizeResult is the outcome of finalizing a session.
type FinalizeResult struct {
	SessionID  string
	OutputPath string
	Markup     string
	AssetCount int
	Fragments  int
	Duration   time.Duration
}

// Finalize assembles the session into the final document and writes it.
// fullContent, when non-empty, replaces assembly entirely. Fragments
// submitted on the session win page by page; the core rendering fills
// the rest.
func (p *Pipeline) Finalize(ctx context.Context, sess *session.Session, fullContent, outputPath string) (*FinalizeResult, error) {
	start := time.Now()
	if sess.Status() == session.StatusStructuring {
		if err := sess.Advance(session.StatusRendering); err == nil {
			p.persist(sess)
		}
	}

	fail := func(err error) (*FinalizeResult, error) {
		if ferr := sess.Fail(err.Error()); ferr == nil {
			p.persist(sess)
		}
		return nil, err
	}

	fragments := sess.Fragments()
	store := assets.NewStore()
	markup := fullContent
	if markup == "" {
		records := sess.Records()
		if len(records) == 0 {
			return fail(fmt.Errorf("finalize session %s: no extracted pages", sess.ID))
		}

		integCfg := integrate.DefaultConfig()
		integCfg.SuppressOverlap = p.opts.SuppressOverlap
		integrator := integrate.New(integCfg, p.logger)
		analyzerCfg := analyze.DefaultConfig()
		analyzerCfg.HeadingSizeRatio = p.opts.HeadingSizeRatio

		pages := make([]analyze.Page, len(records))
		for i, rec := range records {
			pages[i] = analyze.Page{Record: rec, Items: integrator.Integrate(rec)}
		}
		classified := analyze.New(analyzerCfg, p.logger).Analyze(pages)
		tree := doctree.New(p.logger).Build(classified, sess.Meta)
		if err := doctree.Verify(tree, classified); err != nil {
			return fail(fmt.Errorf("tree verification: %w", err))
		}

		prelude, bodies, err := render.New(store, p.logger).RenderPages(tree)
		if err != nil {
			return fail(fmt.Errorf("render session %s: %w", sess.ID, err))
		}
		markup = interpreter.NewAssembler(p.logger).Assemble(prelude, len(records), fragments, bodies)
	}

	if outputPath == "" {
		outputPath = defaultOutputPath(sess.PDFPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fail(fmt.Errorf("create output dir: %w", err))
	}
	if err := os.WriteFile(outputPath, []byte(markup), 0o644); err != nil {
		return fail(fmt.Errorf("write %s: %w", outputPath, err))
	}
	if err := store.WriteDir(filepath.Join(filepath.Dir(outputPath), "assets")); err != nil {
		return fail(fmt.Errorf("write assets: %w", err))
	}

	if err := sess.Advance(session.StatusFinalized); err == nil {
		p.persist(sess)
	}
	p.logger.Info("session finalized",
		"session", sess.ID,
		"output", outputPath,
		"fragments", len(fragments),
		"assets", store.Len())
	return &FinalizeResult{
		SessionID:  sess.ID,
		OutputPath: outputPath,
		Markup:     markup,
		AssetCount: store.Len(),
		Fragments:  len(fragments),
		Duration:   time.Since(start),
	}, nil
}

// defaultOutputPath puts OUTPUT.typ next to the source PDF.
func defaultOutputPath(pdfPath string) string {
	base := pdfPath[:len(pdfPath)-len(filepath.Ext(pdfPath))]
	return base + ".typ"
}
