// Package pipeline orchestrates a conversion end to end: bounded page
// workers for extraction and reconciliation, then the sequential
// analyze, tree-build, and render stages.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/analyze"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/assets"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/doctree"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/extract"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/integrate"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/reconcile"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/render"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
)

// FatalInputError means the input file cannot be processed at all. No
// partial output is produced.
type FatalInputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FatalInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("input %s: %s", e.Path, e.Reason)
}

func (e *FatalInputError) Unwrap() error { return e.Err }

// Stats holds per-stage wall-clock timings.
type Stats struct {
	Extract time.Duration `json:"extract"`
	Analyze time.Duration `json:"analyze"`
	Render  time.Duration `json:"render"`
}

// Result is the outcome of one conversion.
type Result struct {
	Tree        *model.DocumentTree
	Markup      string
	SessionID   string
	PageCount   int
	FailedPages []int
	AssetCount  int
	Duration    time.Duration
	Stats       Stats
}

// Pipeline runs conversions. It is safe for concurrent use; each run
// carries its own state.
type Pipeline struct {
	opts     Options
	registry *session.Registry
	logger   *slog.Logger
}

// New builds a pipeline. registry may be nil for one-shot CLI runs.
func New(opts Options, registry *session.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		opts:     opts.normalized(),
		registry: registry,
		logger:   logger.With("component", "pipeline"),
	}
}

// Options returns the pipeline's normalized options.
func (p *Pipeline) Options() Options { return p.opts }

// Convert runs the full pipeline on inputPath and writes the Typst
// markup to outputPath with an assets/ directory alongside.
func (p *Pipeline) Convert(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	res, store, err := p.run(ctx, inputPath, 0)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, []byte(res.Markup), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", outputPath, err)
	}
	if err := store.WriteDir(filepath.Join(filepath.Dir(outputPath), "assets")); err != nil {
		return nil, fmt.Errorf("write assets for %s: %w", outputPath, err)
	}

	if sess := p.lookup(res.SessionID); sess != nil {
		if err := sess.Advance(session.StatusFinalized); err == nil {
			p.persist(sess)
		}
	}
	p.logger.Info("conversion finished",
		"input", inputPath,
		"output", outputPath,
		"pages", res.PageCount,
		"failed_pages", len(res.FailedPages),
		"assets", res.AssetCount,
		"duration", res.Duration)
	return res, nil
}

// Preview runs the pipeline on the first maxPages pages only, without
// writing any output.
func (p *Pipeline) Preview(ctx context.Context, inputPath string, maxPages int) (*Result, error) {
	if maxPages < 1 {
		maxPages = 1
	}
	res, _, err := p.run(ctx, inputPath, maxPages)
	if err != nil {
		return nil, err
	}
	if sess := p.lookup(res.SessionID); sess != nil {
		if err := sess.Advance(session.StatusFinalized); err == nil {
			p.persist(sess)
		}
	}
	return res, nil
}

// run executes validate → extract → reconcile → integrate → analyze →
// build → render. maxPages of 0 means all pages.
func (p *Pipeline) run(ctx context.Context, inputPath string, maxPages int) (*Result, *assets.Store, error) {
	start := time.Now()

	doc, err := p.validateInput(inputPath)
	if err != nil {
		return nil, nil, err
	}
	meta := doc.Meta()
	pageCount := doc.PageCount()
	doc.Close()

	if maxPages > 0 && maxPages < pageCount {
		pageCount = maxPages
	}

	var sess *session.Session
	if p.registry != nil {
		sess, err = p.registry.Create(inputPath, meta)
		if err != nil {
			return nil, nil, err
		}
		if err := sess.Advance(session.StatusExtracting); err != nil {
			return nil, nil, err
		}
		p.persist(sess)
	}

	fail := func(reason string, err error) (*Result, *assets.Store, error) {
		if sess != nil {
			if ferr := sess.Fail(reason); ferr == nil {
				p.persist(sess)
			}
		}
		return nil, nil, err
	}

	extractStart := time.Now()
	pages, err := p.extractPages(ctx, inputPath, pageCount)
	if err != nil {
		return fail(err.Error(), err)
	}
	extractDur := time.Since(extractStart)

	var failedPages []int
	for _, pg := range pages {
		if pg.rec.Failed {
			failedPages = append(failedPages, pg.rec.Page)
		}
	}
	if p.opts.StrictMode && len(failedPages) > 0 {
		err := fmt.Errorf("strict mode: %d page(s) failed extraction: %v", len(failedPages), failedPages)
		return fail(err.Error(), err)
	}

	if sess != nil {
		records := make([]*model.PageRecord, len(pages))
		for i := range pages {
			records[i] = pages[i].rec
		}
		sess.SetRecords(records)
		if err := sess.Advance(session.StatusReconciling); err == nil {
			_ = sess.Advance(session.StatusStructuring)
		}
		p.persist(sess)
	}

	analyzeStart := time.Now()
	analyzerCfg := analyze.DefaultConfig()
	analyzerCfg.HeadingSizeRatio = p.opts.HeadingSizeRatio
	analyzerInput := make([]analyze.Page, len(pages))
	for i, pg := range pages {
		analyzerInput[i] = analyze.Page{Record: pg.rec, Items: pg.items}
	}
	classified := analyze.New(analyzerCfg, p.logger).Analyze(analyzerInput)

	tree := doctree.New(p.logger).Build(classified, meta)
	if err := doctree.Verify(tree, classified); err != nil {
		err = fmt.Errorf("tree verification: %w", err)
		return fail(err.Error(), err)
	}
	if p.logger.Enabled(ctx, slog.LevelDebug) {
		records := make([]*model.PageRecord, len(pages))
		for i := range pages {
			records[i] = pages[i].rec
		}
		p.logger.Debug("content coverage", "ratio", doctree.Coverage(tree, records))
	}
	analyzeDur := time.Since(analyzeStart)

	if sess != nil {
		if err := sess.Advance(session.StatusRendering); err == nil {
			p.persist(sess)
		}
	}

	renderStart := time.Now()
	store := assets.NewStore()
	markup, err := render.New(store, p.logger).Render(tree)
	if err != nil {
		return fail(err.Error(), fmt.Errorf("render %s: %w", inputPath, err))
	}
	renderDur := time.Since(renderStart)

	res := &Result{
		Tree:        tree,
		Markup:      markup,
		PageCount:   pageCount,
		FailedPages: failedPages,
		AssetCount:  store.Len(),
		Duration:    time.Since(start),
		Stats: Stats{
			Extract: extractDur,
			Analyze: analyzeDur,
			Render:  renderDur,
		},
	}
	if sess != nil {
		res.SessionID = sess.ID
	}
	return res, store, nil
}

// validateInput checks existence, size, and PDF validity before any
// page work starts.
func (p *Pipeline) validateInput(path string) (*extract.Document, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &FatalInputError{Path: path, Reason: "not readable", Err: err}
	}
	if fi.IsDir() {
		return nil, &FatalInputError{Path: path, Reason: "is a directory"}
	}
	if fi.Size() > p.opts.MaxFileSize {
		return nil, &FatalInputError{Path: path,
			Reason: fmt.Sprintf("file size %d exceeds limit %d", fi.Size(), p.opts.MaxFileSize)}
	}

	doc, err := extract.Open(path)
	if err != nil {
		return nil, &FatalInputError{Path: path, Reason: "not a valid PDF", Err: err}
	}
	return doc, nil
}

// pageResult carries one page through the worker pool.
type pageResult struct {
	rec   *model.PageRecord
	items []integrate.Item
}

// extractPages runs extraction, reconciliation, and integration over a
// bounded worker pool. Each worker holds its own Document handle.
func (p *Pipeline) extractPages(ctx context.Context, path string, pageCount int) ([]pageResult, error) {
	workers := p.opts.Workers
	if workers > pageCount {
		workers = pageCount
	}
	if workers < 1 {
		workers = 1
	}

	reconCfg := reconcile.DefaultConfig()
	reconCfg.ColumnGapMin = p.opts.ColumnGapMin
	integCfg := integrate.DefaultConfig()
	integCfg.SuppressOverlap = p.opts.SuppressOverlap

	coord := extract.NewCoordinator(nil, nil, extract.CoordinatorConfig{
		PageTimeout: p.opts.PageTimeout,
		SkipTables:  p.opts.SkipTables,
		SkipImages:  p.opts.SkipImages,
		Logger:      p.logger,
	})
	reconciler := reconcile.New(reconCfg, p.logger)
	integrator := integrate.New(integCfg, p.logger)

	pageCh := make(chan int)
	results := make([]pageResult, pageCount)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := extract.Open(path)
			if err != nil {
				errCh <- fmt.Errorf("open worker document: %w", err)
				return
			}
			defer doc.Close()

			for page := range pageCh {
				rec := coord.ExtractPage(ctx, doc, page)
				reconciler.Reconcile(&rec)
				items := integrator.Integrate(&rec)
				results[page-1] = pageResult{rec: &rec, items: items}
			}
		}()
	}

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	// Stop scheduling un-started pages once the context is cancelled
	// or every worker has exited (all of them failing to open the
	// document); in-flight pages drain through the coordinator's own
	// deadline.
schedule:
	for page := 1; page <= pageCount; page++ {
		select {
		case pageCh <- page:
		case <-workersDone:
			break schedule
		case <-ctx.Done():
			break schedule
		}
	}
	close(pageCh)
	<-workersDone
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	// Workers fill by index, so order is already by page; a nil record
	// would mean a scheduling bug.
	for i := range results {
		if results[i].rec == nil {
			return nil, fmt.Errorf("page %d was never extracted", i+1)
		}
	}
	return results, nil
}

func (p *Pipeline) lookup(sessionID string) *session.Session {
	if p.registry == nil || sessionID == "" {
		return nil
	}
	sess, err := p.registry.Get(sessionID)
	if err != nil {
		return nil
	}
	return sess
}

func (p *Pipeline) persist(sess *session.Session) {
	if p.registry == nil {
		return
	}
	if err := p.registry.Persist(sess); err != nil {
		p.logger.Warn("persist session", "id", sess.ID, "error", err)
	}
}

// PageSummary is one page's extraction counts for Info.
type PageSummary struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Spans  int     `json:"spans"`
	Tables int     `json:"tables"`
	Images int     `json:"images"`
	Failed bool    `json:"failed,omitempty"`
}

// DocInfo summarizes a document without producing markup.
type DocInfo struct {
	Path          string        `json:"path"`
	Meta          model.DocMeta `json:"meta"`
	Pages         int           `json:"pages"`
	ModalFontSize float64       `json:"modal_font_size"`
	PageSummaries []PageSummary `json:"page_summaries"`
}

// Info extracts metadata and per-page structure counts for the info
// command and the structure-analysis tool.
func (p *Pipeline) Info(ctx context.Context, path string) (*DocInfo, error) {
	doc, err := p.validateInput(path)
	if err != nil {
		return nil, err
	}
	meta := doc.Meta()
	pageCount := doc.PageCount()
	doc.Close()

	pages, err := p.extractPages(ctx, path, pageCount)
	if err != nil {
		return nil, err
	}

	info := &DocInfo{
		Path:  path,
		Meta:  meta,
		Pages: pageCount,
	}
	sizeCounts := make(map[int]int)
	for _, pg := range pages {
		rec := pg.rec
		info.PageSummaries = append(info.PageSummaries, PageSummary{
			Page:   rec.Page,
			Width:  rec.Width,
			Height: rec.Height,
			Spans:  len(rec.TextSpans),
			Tables: len(rec.Tables),
			Images: len(rec.Images),
			Failed: rec.Failed,
		})
		for _, span := range rec.TextSpans {
			if span.Font.Size > 0 {
				sizeCounts[int(span.Font.Size*2+0.5)]++
			}
		}
	}

	var buckets []int
	for b := range sizeCounts {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)
	best, bestCount := 0, 0
	for _, b := range buckets {
		if sizeCounts[b] > bestCount {
			best, bestCount = b, sizeCounts[b]
		}
	}
	info.ModalFontSize = float64(best) / 2
	return info, nil
}
