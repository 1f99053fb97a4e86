// Package reconcile merges the two backends' raw spans into unified
// runs and assigns reading-order columns. The text backend's
// segmentation wins; the style backend contributes font metadata by
// geometric overlap.
package reconcile

import (
	"log/slog"
	"math"
	"sort"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Config holds the matching and ordering thresholds.
type Config struct {
	// MatchIoU accepts a style span whose IoU with the text span
	// reaches this value.
	MatchIoU float64
	// MatchContainment accepts a style span when either box is mostly
	// contained in the other, for partial overlaps IoU misses.
	MatchContainment float64
	// DuplicateIoU collapses run pairs above this IoU when their
	// normalized text is identical.
	DuplicateIoU float64
	// ColumnGapMin is the narrowest whitespace gap treated as a column
	// separator, in points.
	ColumnGapMin float64
	// ColumnGapHeightRatio is the fraction of the text band a gap must
	// span unblocked.
	ColumnGapHeightRatio float64
	// MinColumnWidth drops detected columns narrower than this.
	MinColumnWidth float64
	// MaxColumns caps detection; further gaps are ignored.
	MaxColumns int
}

// DefaultConfig returns the thresholds used by the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MatchIoU:             0.5,
		MatchContainment:     0.9,
		DuplicateIoU:         0.8,
		ColumnGapMin:         30.0,
		ColumnGapHeightRatio: 0.5,
		MinColumnWidth:       50.0,
		MaxColumns:           4,
	}
}

// Reconciler pairs spans and orders runs for one page at a time.
type Reconciler struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Reconciler. A zero Config is replaced by defaults.
func New(cfg Config, logger *slog.Logger) *Reconciler {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{cfg: cfg, logger: logger.With("component", "reconcile")}
}

// Reconcile fills rec.Runs and rec.Columns from the raw spans. Failed
// pages pass through untouched.
func (r *Reconciler) Reconcile(rec *model.PageRecord) {
	if rec.Failed {
		return
	}
	runs := r.matchSpans(rec)
	runs = r.collapseDuplicates(runs)
	rec.Columns = r.assignColumns(runs, rec.Width, rec.Height)
	orderRuns(runs)
	rec.Runs = runs

	low := 0
	for _, run := range runs {
		if run.LowConfidence {
			low++
		}
	}
	r.logger.Debug("page reconciled",
		"page", rec.Page,
		"runs", len(runs),
		"columns", rec.Columns,
		"low_confidence", low)
}

// matchSpans builds one unified run per text span, annotated with the
// best-overlapping style span's font.
func (r *Reconciler) matchSpans(rec *model.PageRecord) []model.UnifiedRun {
	runs := make([]model.UnifiedRun, 0, len(rec.TextSpans))
	for _, ts := range rec.TextSpans {
		run := model.UnifiedRun{
			Text: ts.Text,
			BBox: ts.BBox,
			Font: ts.Font,
			Page: rec.Page,
			Sources: []model.SpanRef{
				{Backend: model.BackendText, Page: ts.Page, Index: ts.Index},
			},
		}
		if best, ok := r.bestStyleMatch(ts, rec.StyleSpans); ok {
			ss := rec.StyleSpans[best]
			size := run.Font.Size
			run.Font = ss.Font
			if run.Font.Size == 0 {
				run.Font.Size = size
			}
			run.Sources = append(run.Sources, model.SpanRef{
				Backend: model.BackendStyle, Page: ss.Page, Index: ss.Index,
			})
		} else {
			run.LowConfidence = true
		}
		runs = append(runs, run)
	}
	return runs
}

// bestStyleMatch returns the index of the style span with the largest
// overlap area above the acceptance thresholds; ties go to the closer
// centroid.
func (r *Reconciler) bestStyleMatch(ts model.RawTextSpan, styles []model.RawStyleSpan) (int, bool) {
	best := -1
	var bestArea, bestDist float64
	for i, ss := range styles {
		if !r.accepts(ts.BBox, ss.BBox) {
			continue
		}
		area := ts.BBox.Intersection(ss.BBox).Area()
		dist := centroidDistance(ts.BBox, ss.BBox)
		if best < 0 || area > bestArea || (area == bestArea && dist < bestDist) {
			best, bestArea, bestDist = i, area, dist
		}
	}
	return best, best >= 0
}

// accepts applies the IoU-or-containment match rule.
func (r *Reconciler) accepts(a, b model.BBox) bool {
	if a.IoU(b) >= r.cfg.MatchIoU {
		return true
	}
	return a.OverlapRatio(b) >= r.cfg.MatchContainment
}

func centroidDistance(a, b model.BBox) float64 {
	return math.Hypot(a.CenterX()-b.CenterX(), a.CenterY()-b.CenterY())
}

// collapseDuplicates removes near-identical runs the two segmentations
// both produced, keeping the first and merging provenance.
func (r *Reconciler) collapseDuplicates(runs []model.UnifiedRun) []model.UnifiedRun {
	out := runs[:0]
	for _, run := range runs {
		dup := -1
		for i := range out {
			if out[i].BBox.IoU(run.BBox) >= r.cfg.DuplicateIoU &&
				model.NormalizedText(out[i].Text) == model.NormalizedText(run.Text) {
				dup = i
				break
			}
		}
		if dup >= 0 {
			out[dup].Sources = append(out[dup].Sources, run.Sources...)
			out[dup].LowConfidence = out[dup].LowConfidence && run.LowConfidence
			continue
		}
		out = append(out, run)
	}
	return out
}

// orderRuns sorts by column, then top edge, then left edge.
func orderRuns(runs []model.UnifiedRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Column != runs[j].Column {
			return runs[i].Column < runs[j].Column
		}
		if runs[i].BBox.Y != runs[j].BBox.Y {
			return runs[i].BBox.Y < runs[j].BBox.Y
		}
		return runs[i].BBox.X < runs[j].BBox.X
	})
}
