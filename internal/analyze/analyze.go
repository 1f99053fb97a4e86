// Package analyze classifies the integrated item sequence into typed
// structural nodes through an ordered rule chain, then groups adjacent
// paragraph and list runs. Classification never drops content: every
// item ends up in exactly one node.
package analyze

import (
	"log/slog"
	"math"
	"sort"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/integrate"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Config holds the classification thresholds.
type Config struct {
	// HeadingSizeRatio is the factor over the modal body size that
	// makes a run a heading candidate.
	HeadingSizeRatio float64
	// FootnoteBandRatio is the bottom fraction of the page claimed by
	// the footnote rule.
	FootnoteBandRatio float64
	// ParagraphGap is the largest vertical gap, in points, merged into
	// one paragraph.
	ParagraphGap float64
	// IndentDelta is the largest left-edge shift merged into one
	// paragraph.
	IndentDelta float64
	// EquationSymbolDensity is the math-symbol fraction above which a
	// short centered run is a display equation.
	EquationSymbolDensity float64
	// EquationMaxLen bounds display equation candidates, in runes.
	EquationMaxLen int
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		HeadingSizeRatio:      1.2,
		FootnoteBandRatio:     0.08,
		ParagraphGap:          5.0,
		IndentDelta:           20.0,
		EquationSymbolDensity: 0.3,
		EquationMaxLen:        120,
	}
}

// Page is one page's input to the analyzer.
type Page struct {
	Record *model.PageRecord
	Items  []integrate.Item
}

// ClassifiedPage is one page's grouped structural nodes in reading
// order.
type ClassifiedPage struct {
	Record *model.PageRecord
	Nodes  []*model.StructuralNode
}

// Analyzer runs the rule chain over whole documents. It is stateful
// for one Analyze call only (reference mode, heading size table) and
// safe to reuse sequentially.
type Analyzer struct {
	cfg    Config
	rules  []Rule
	logger *slog.Logger
}

// New returns an Analyzer with the default rule chain. A zero Config
// is replaced by defaults.
func New(cfg Config, logger *slog.Logger) *Analyzer {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cfg: cfg, rules: defaultRules(), logger: logger.With("component", "analyze")}
}

// classified pairs an item with its rule outcome before grouping.
type classified struct {
	item integrate.Item
	cls  Classification
}

// Analyze classifies and groups all pages in document order.
func (a *Analyzer) Analyze(pages []Page) []ClassifiedPage {
	bodySize := modalBodySize(pages)

	inReferences := false
	flat := make([][]classified, len(pages))
	for i, pg := range pages {
		if pg.Record.Failed {
			continue
		}
		pc := &PageContext{
			PageWidth:  pg.Record.Width,
			PageHeight: pg.Record.Height,
			BodySize:   bodySize,
			cfg:        a.cfg,
		}
		for _, it := range pg.Items {
			pc.InReferences = inReferences
			cls := a.classify(pc, it)
			if cls.Kind == model.KindHeading && referencesHeadingRe.MatchString(model.NormalizedText(runText(it))) {
				inReferences = true
			}
			flat[i] = append(flat[i], classified{item: it, cls: cls})
		}
	}

	levels := headingLevels(flat)

	out := make([]ClassifiedPage, len(pages))
	for i, pg := range pages {
		out[i] = ClassifiedPage{
			Record: pg.Record,
			Nodes:  a.group(flat[i], pg.Record.Page, levels),
		}
	}
	a.logger.Debug("document analyzed",
		"pages", len(pages),
		"body_size", bodySize,
		"heading_levels", len(levels))
	return out
}

// classify runs one item through the chain. Tables and images carry
// their kind already; runs fall through to Paragraph.
func (a *Analyzer) classify(pc *PageContext, it integrate.Item) Classification {
	switch {
	case it.Table != nil:
		return Classification{Kind: model.KindTable}
	case it.Image != nil:
		return Classification{Kind: model.KindImage}
	}
	for _, rule := range a.rules {
		if cls, ok := rule.Match(pc, it); ok {
			return cls
		}
	}
	return Classification{Kind: model.KindParagraph}
}

func runText(it integrate.Item) string {
	if it.Run == nil {
		return ""
	}
	return it.Run.Text
}

// sizeBucket groups font sizes for the modal body computation.
const (
	bodySizeBucket    = 0.5
	headingSizeBucket = 0.1
	maxHeadingLevel   = 6
)

// modalBodySize returns the most common run font size across the
// document, in half-point buckets.
func modalBodySize(pages []Page) float64 {
	counts := make(map[int]int)
	for _, pg := range pages {
		for _, it := range pg.Items {
			if it.Run == nil || it.Run.Font.Size <= 0 {
				continue
			}
			counts[int(math.Round(it.Run.Font.Size/bodySizeBucket))]++
		}
	}
	best, bestCount := 0, 0
	for bucket, n := range counts {
		if n > bestCount || (n == bestCount && bucket < best) {
			best, bestCount = bucket, n
		}
	}
	return float64(best) * bodySizeBucket
}

// headingLevels maps distinct heading font sizes, largest first, to
// levels 1..6.
func headingLevels(flat [][]classified) map[int]int {
	seen := make(map[int]bool)
	for _, page := range flat {
		for _, c := range page {
			if c.cls.Kind != model.KindHeading || c.item.Run == nil {
				continue
			}
			seen[int(math.Round(c.item.Run.Font.Size/headingSizeBucket))] = true
		}
	}
	buckets := make([]int, 0, len(seen))
	for b := range seen {
		buckets = append(buckets, b)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(buckets)))

	levels := make(map[int]int, len(buckets))
	for i, b := range buckets {
		level := i + 1
		if level > maxHeadingLevel {
			level = maxHeadingLevel
		}
		levels[b] = level
	}
	return levels
}

// group folds a page's classified items into structural nodes:
// consecutive paragraphs merge when close enough, consecutive list
// items form one list subtree, everything else maps one to one.
func (a *Analyzer) group(items []classified, page int, levels map[int]int) []*model.StructuralNode {
	var nodes []*model.StructuralNode
	var para *model.StructuralNode
	var list *model.StructuralNode

	closePara := func() { para = nil }
	closeList := func() { list = nil }

	for _, c := range items {
		if c.cls.Kind != model.KindParagraph {
			closePara()
		}
		if c.cls.Kind != model.KindListItem {
			closeList()
		}

		switch c.cls.Kind {
		case model.KindParagraph:
			run := *c.item.Run
			if para != nil && a.sameParagraph(para, run) {
				para.Runs = append(para.Runs, run)
				continue
			}
			para = &model.StructuralNode{
				Kind: model.KindParagraph,
				Runs: []model.UnifiedRun{run},
				Page: page,
				Style: model.StyleHints{
					Bold:   run.Font.Bold,
					Italic: run.Font.Italic,
				},
			}
			nodes = append(nodes, para)

		case model.KindListItem:
			item := &model.StructuralNode{
				Kind:  model.KindListItem,
				Depth: c.cls.Depth,
				Runs:  []model.UnifiedRun{*c.item.Run},
				Page:  page,
			}
			if list == nil {
				list = &model.StructuralNode{Kind: model.KindList, Page: page}
				nodes = append(nodes, list)
			}
			list.Children = append(list.Children, item)

		case model.KindHeading:
			run := *c.item.Run
			level := levels[int(math.Round(run.Font.Size/headingSizeBucket))]
			if level == 0 {
				level = maxHeadingLevel
			}
			nodes = append(nodes, &model.StructuralNode{
				Kind:  model.KindHeading,
				Level: level,
				Runs:  []model.UnifiedRun{run},
				Page:  page,
				Style: model.StyleHints{Bold: run.Font.Bold, Italic: run.Font.Italic},
			})

		case model.KindTable:
			nodes = append(nodes, &model.StructuralNode{
				Kind:  model.KindTable,
				Table: c.item.Table,
				Page:  page,
			})

		case model.KindImage:
			nodes = append(nodes, &model.StructuralNode{
				Kind:  model.KindImage,
				Image: c.item.Image,
				Page:  page,
			})

		default:
			nodes = append(nodes, &model.StructuralNode{
				Kind:   c.cls.Kind,
				EqKind: c.cls.EqKind,
				Runs:   []model.UnifiedRun{*c.item.Run},
				Page:   page,
			})
		}
	}
	return nodes
}

// sameParagraph reports whether run continues the open paragraph: same
// column, small vertical gap, small indent shift.
func (a *Analyzer) sameParagraph(para *model.StructuralNode, run model.UnifiedRun) bool {
	last := para.Runs[len(para.Runs)-1]
	if last.Column != run.Column {
		return false
	}
	gap := run.BBox.Top() - last.BBox.Bottom()
	if gap < 0 {
		gap = 0
	}
	if gap > a.cfg.ParagraphGap {
		return false
	}
	indent := math.Abs(run.BBox.X - last.BBox.X)
	return indent <= a.cfg.IndentDelta
}
