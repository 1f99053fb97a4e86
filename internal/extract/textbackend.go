package extract

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

// glyphDescentRatio approximates how far glyph boxes extend below the
// baseline as a fraction of the font size.
const glyphDescentRatio = 0.2

// Table detection geometry, in page points.
const (
	lineBandTolerance    = 3.0
	columnAlignTolerance = 5.0
	minTableRows         = 2
	minTableCols         = 2
)

// TextBackend extracts positioned text spans and table grids by
// walking the page content stream. It is authoritative for text
// segmentation and table geometry.
type TextBackend struct{}

// NewTextBackend returns the content-stream text backend.
func NewTextBackend() *TextBackend { return &TextBackend{} }

// ExtractTextAndTables implements TextTableBackend.
func (b *TextBackend) ExtractTextAndTables(ctx context.Context, doc *Document, page int) ([]model.RawTextSpan, []*model.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	data, err := doc.pageContent(page)
	if err != nil {
		return nil, nil, err
	}
	pc := parseContent(ctx, data)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	pageW, pageH := doc.PageSize(page)
	llx, lly := doc.pageOrigin(page)
	fonts := doc.pageFonts(page)

	spans := make([]model.RawTextSpan, 0, len(pc.pieces))
	for _, piece := range pc.pieces {
		if strings.TrimSpace(piece.text) == "" {
			continue
		}
		bbox := pieceBBox(piece, llx, lly, pageW, pageH)
		if bbox.IsEmpty() {
			continue
		}
		font := model.FontDescriptor{Family: piece.font, Size: piece.size}
		if fi, ok := fonts[piece.font]; ok {
			if fi.base != "" {
				font.Family = fi.base
			}
			font.Bold = fi.bold
			font.Italic = fi.italic
		} else {
			font.Bold, font.Italic = model.StyleFromFontName(piece.font)
		}
		spans = append(spans, model.RawTextSpan{
			Text:  piece.text,
			BBox:  bbox,
			Font:  font,
			Page:  page,
			Index: len(spans),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return spans, detectTables(spans, page), nil
}

// pieceBBox converts a baseline-anchored piece in PDF user space to a
// top-left-origin box clamped to the page.
func pieceBBox(piece textPiece, llx, lly, pageW, pageH float64) model.BBox {
	size := piece.size
	if size <= 0 {
		size = 1
	}
	w := piece.w
	if w <= 0 {
		w = float64(len([]rune(piece.text))) * averageGlyphWidth * size
	}
	x := piece.x - llx
	bottom := piece.y - lly - glyphDescentRatio*size
	bbox := model.NewBBox(x, pageH-bottom-size, w, size)
	return bbox.Clamp(pageW, pageH)
}

// textLine is a Y-band of spans used by table detection.
type textLine struct {
	top   float64
	spans []model.RawTextSpan
}

// detectTables finds grid-aligned span clusters: consecutive lines
// whose cell start positions align column-wise, at least 2x2. Cells
// keep verbatim text; spans stay in the page record and are suppressed
// downstream by geometry.
func detectTables(spans []model.RawTextSpan, page int) []*model.RawTable {
	lines := groupLines(spans)
	if len(lines) < minTableRows {
		return nil
	}

	var tables []*model.RawTable
	i := 0
	for i < len(lines) {
		cols := lineStarts(lines[i])
		if len(cols) < minTableCols {
			i++
			continue
		}
		// Grow the block while following lines align on the same columns.
		j := i + 1
		for j < len(lines) && startsAlign(cols, lineStarts(lines[j])) {
			j++
		}
		if j-i >= minTableRows {
			tables = append(tables, buildTable(lines[i:j], cols, page))
			i = j
			continue
		}
		i++
	}
	return tables
}

// groupLines buckets spans into baseline bands sorted top to bottom,
// left to right.
func groupLines(spans []model.RawTextSpan) []textLine {
	sorted := make([]model.RawTextSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].BBox.Y != sorted[b].BBox.Y {
			return sorted[a].BBox.Y < sorted[b].BBox.Y
		}
		return sorted[a].BBox.X < sorted[b].BBox.X
	})

	var lines []textLine
	for _, s := range sorted {
		if n := len(lines); n > 0 && math.Abs(s.BBox.Y-lines[n-1].top) <= lineBandTolerance {
			lines[n-1].spans = append(lines[n-1].spans, s)
			continue
		}
		lines = append(lines, textLine{top: s.BBox.Y, spans: []model.RawTextSpan{s}})
	}
	for i := range lines {
		sort.SliceStable(lines[i].spans, func(a, b int) bool {
			return lines[i].spans[a].BBox.X < lines[i].spans[b].BBox.X
		})
	}
	return lines
}

// lineStarts returns the distinct left edges of a line's spans.
func lineStarts(ln textLine) []float64 {
	var starts []float64
	for _, s := range ln.spans {
		if n := len(starts); n > 0 && s.BBox.X-starts[n-1] <= columnAlignTolerance {
			continue
		}
		starts = append(starts, s.BBox.X)
	}
	return starts
}

// startsAlign reports whether two lines share the same column grid.
func startsAlign(a, b []float64) bool {
	if len(a) != len(b) || len(a) < minTableCols {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > columnAlignTolerance {
			return false
		}
	}
	return true
}

// buildTable assembles the cell grid for an aligned block of lines.
func buildTable(lines []textLine, cols []float64, page int) *model.RawTable {
	t := &model.RawTable{Page: page}
	for r, ln := range lines {
		row := make([]model.RawTableCell, len(cols))
		for c := range row {
			row[c] = model.RawTableCell{Row: r, Col: c}
		}
		for _, s := range ln.spans {
			c := nearestColumn(cols, s.BBox.X)
			cell := &row[c]
			if cell.Text != "" {
				cell.Text += " "
			}
			cell.Text += s.Text
			if cell.BBox.IsEmpty() {
				cell.BBox = s.BBox
			} else {
				cell.BBox = cell.BBox.Union(s.BBox)
			}
			if t.BBox.IsEmpty() {
				t.BBox = s.BBox
			} else {
				t.BBox = t.BBox.Union(s.BBox)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// nearestColumn returns the index of the column start closest to x.
func nearestColumn(cols []float64, x float64) int {
	best := 0
	bestDist := math.Abs(cols[0] - x)
	for i := 1; i < len(cols); i++ {
		if d := math.Abs(cols[i] - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
