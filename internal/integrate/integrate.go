// Package integrate folds tables and images back into the unified run
// sequence: runs living inside a table or image box are suppressed so
// their text only appears once, and the survivors interleave with
// table/image items in reading order.
package integrate

import (
	"log/slog"
	"math"
	"sort"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// Item is one element of the per-page reading sequence. Exactly one of
// the pointers is set.
type Item struct {
	Run   *model.UnifiedRun
	Table *model.RawTable
	Image *model.RawImageAsset

	column int
}

// BBox returns the item's box regardless of kind.
func (it Item) BBox() model.BBox {
	switch {
	case it.Run != nil:
		return it.Run.BBox
	case it.Table != nil:
		return it.Table.BBox
	case it.Image != nil:
		return it.Image.BBox
	}
	return model.BBox{}
}

// Column returns the reading-order column the item was assigned to.
func (it Item) Column() int { return it.column }

// Config holds the suppression threshold.
type Config struct {
	// SuppressOverlap is the fraction of a run's area that must lie
	// inside a table or image box for the run to be suppressed.
	SuppressOverlap float64
}

// DefaultConfig returns the pipeline default.
func DefaultConfig() Config {
	return Config{SuppressOverlap: 0.95}
}

// Integrator builds per-page item sequences.
type Integrator struct {
	cfg    Config
	logger *slog.Logger
}

// New returns an Integrator. A zero Config is replaced by defaults.
func New(cfg Config, logger *slog.Logger) *Integrator {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Integrator{cfg: cfg, logger: logger.With("component", "integrate")}
}

// Integrate returns the page's interleaved item sequence. Table cell
// text is kept verbatim on the table; the runs it came from are
// dropped from the flow.
func (g *Integrator) Integrate(rec *model.PageRecord) []Item {
	if rec.Failed {
		return nil
	}

	boxes := make([]model.BBox, 0, len(rec.Tables)+len(rec.Images))
	for _, t := range rec.Tables {
		boxes = append(boxes, t.BBox)
	}
	for i := range rec.Images {
		boxes = append(boxes, rec.Images[i].BBox)
	}

	items := make([]Item, 0, len(rec.Runs)+len(boxes))
	suppressed := 0
	for i := range rec.Runs {
		run := &rec.Runs[i]
		if g.contained(run.BBox, boxes) {
			suppressed++
			continue
		}
		items = append(items, Item{Run: run, column: run.Column})
	}

	ranges := columnRanges(rec.Runs, rec.Columns)
	for _, t := range rec.Tables {
		items = append(items, Item{Table: t, column: columnOf(ranges, t.BBox.CenterX())})
	}
	for i := range rec.Images {
		img := &rec.Images[i]
		items = append(items, Item{Image: img, column: columnOf(ranges, img.BBox.CenterX())})
	}

	sort.SliceStable(items, func(a, b int) bool {
		if items[a].column != items[b].column {
			return items[a].column < items[b].column
		}
		ba, bb := items[a].BBox(), items[b].BBox()
		if ba.Y != bb.Y {
			return ba.Y < bb.Y
		}
		return ba.X < bb.X
	})

	g.logger.Debug("page integrated",
		"page", rec.Page,
		"items", len(items),
		"suppressed_runs", suppressed)
	return items
}

// contained reports whether the run box lies inside any of the given
// boxes above the suppression threshold.
func (g *Integrator) contained(run model.BBox, boxes []model.BBox) bool {
	if run.Area() == 0 {
		return false
	}
	for _, b := range boxes {
		if run.Intersection(b).Area()/run.Area() >= g.cfg.SuppressOverlap {
			return true
		}
	}
	return false
}

// columnRange is the horizontal extent one column's runs cover.
type columnRange struct {
	center float64
	set    bool
}

// columnRanges derives per-column center positions from the assigned
// runs, so boxes with no run of their own can still be placed.
func columnRanges(runs []model.UnifiedRun, columns int) []columnRange {
	if columns < 1 {
		columns = 1
	}
	ranges := make([]columnRange, columns)
	counts := make([]int, columns)
	for _, run := range runs {
		c := run.Column
		if c < 0 || c >= columns {
			continue
		}
		ranges[c].center += run.BBox.CenterX()
		counts[c]++
	}
	for i := range ranges {
		if counts[i] > 0 {
			ranges[i].center /= float64(counts[i])
			ranges[i].set = true
		}
	}
	return ranges
}

// columnOf picks the column whose run population centers closest to x.
func columnOf(ranges []columnRange, x float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, r := range ranges {
		if !r.set {
			continue
		}
		if d := math.Abs(r.center - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
