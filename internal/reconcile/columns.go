package reconcile

import (
	"sort"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// slabMergeTolerance merges x-extents separated by less than this many
// points into one covered region.
const slabMergeTolerance = 5.0

// slab is a horizontal range covered by text.
type slab struct {
	left, right float64
}

// gap is a vertical whitespace channel between covered regions.
type gap struct {
	left, right float64
}

func (g gap) center() float64 { return (g.left + g.right) / 2 }
func (g gap) width() float64  { return g.right - g.left }

// assignColumns detects the column count by whitespace gap analysis,
// writes each run's Column index, and returns the count. Single-column
// pages (and empty ones) report 1.
func (r *Reconciler) assignColumns(runs []model.UnifiedRun, pageW, pageH float64) int {
	if len(runs) == 0 {
		return 1
	}

	gaps := r.findColumnGaps(runs, pageH)
	if len(gaps) == 0 {
		for i := range runs {
			runs[i].Column = 0
		}
		return 1
	}

	// Split at gap centers; a run belongs to the column holding its
	// horizontal center.
	bounds := make([]float64, 0, len(gaps))
	for _, g := range gaps {
		bounds = append(bounds, g.center())
	}
	for i := range runs {
		col := 0
		cx := runs[i].BBox.CenterX()
		for _, b := range bounds {
			if cx >= b {
				col++
			}
		}
		runs[i].Column = col
	}
	return len(bounds) + 1
}

// findColumnGaps merges run x-extents into covered slabs and keeps the
// whitespace between them that is wide enough and mostly unblocked
// across the text band.
func (r *Reconciler) findColumnGaps(runs []model.UnifiedRun, pageH float64) []gap {
	slabs := make([]slab, 0, len(runs))
	for _, run := range runs {
		slabs = append(slabs, slab{left: run.BBox.Left(), right: run.BBox.Right()})
	}
	sort.Slice(slabs, func(i, j int) bool { return slabs[i].left < slabs[j].left })

	merged := []slab{slabs[0]}
	for _, s := range slabs[1:] {
		last := &merged[len(merged)-1]
		if s.left <= last.right+slabMergeTolerance {
			if s.right > last.right {
				last.right = s.right
			}
			continue
		}
		merged = append(merged, s)
	}

	bandTop, bandBottom := textBand(runs)
	var gaps []gap
	for i := 0; i < len(merged)-1; i++ {
		g := gap{left: merged[i].right, right: merged[i+1].left}
		if g.width() < r.cfg.ColumnGapMin {
			continue
		}
		if merged[i].right-merged[i].left < r.cfg.MinColumnWidth ||
			merged[i+1].right-merged[i+1].left < r.cfg.MinColumnWidth {
			continue
		}
		if gapUnblockedRatio(runs, g, bandTop, bandBottom) < r.cfg.ColumnGapHeightRatio {
			continue
		}
		gaps = append(gaps, g)
	}
	if max := r.cfg.MaxColumns - 1; max >= 0 && len(gaps) > max {
		gaps = gaps[:max]
	}
	return gaps
}

// textBand returns the vertical extent the page's runs cover.
func textBand(runs []model.UnifiedRun) (top, bottom float64) {
	top, bottom = runs[0].BBox.Top(), runs[0].BBox.Bottom()
	for _, run := range runs[1:] {
		if t := run.BBox.Top(); t < top {
			top = t
		}
		if b := run.BBox.Bottom(); b > bottom {
			bottom = b
		}
	}
	return top, bottom
}

// gapUnblockedRatio measures the fraction of the text band where no
// run crosses the gap horizontally.
func gapUnblockedRatio(runs []model.UnifiedRun, g gap, bandTop, bandBottom float64) float64 {
	band := bandBottom - bandTop
	if band <= 0 {
		return 0
	}

	type yRange struct{ top, bottom float64 }
	var crossing []yRange
	for _, run := range runs {
		if run.BBox.Right() > g.left && run.BBox.Left() < g.right {
			crossing = append(crossing, yRange{top: run.BBox.Top(), bottom: run.BBox.Bottom()})
		}
	}
	if len(crossing) == 0 {
		return 1
	}

	sort.Slice(crossing, func(i, j int) bool { return crossing[i].top < crossing[j].top })
	mergedY := []yRange{crossing[0]}
	for _, cur := range crossing[1:] {
		last := &mergedY[len(mergedY)-1]
		if cur.top <= last.bottom {
			if cur.bottom > last.bottom {
				last.bottom = cur.bottom
			}
			continue
		}
		mergedY = append(mergedY, cur)
	}

	blocked := 0.0
	for _, r := range mergedY {
		blocked += r.bottom - r.top
	}
	return (band - blocked) / band
}
