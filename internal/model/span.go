package model

import "strings"

// Backend identifies which extraction backend produced a raw record.
type Backend string

const (
	// BackendText is the text/table geometry backend.
	BackendText Backend = "text"
	// BackendStyle is the font/style/image backend.
	BackendStyle Backend = "style"
)

// FontDescriptor describes the typeface of a span. The style backend
// produces authoritative family names and weight flags; the text backend
// falls back to resource names and size only.
type FontDescriptor struct {
	Family string  `json:"family"`
	Size   float64 `json:"size"`
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
	Color  string  `json:"color,omitempty"`
}

// boldMarkers and italicMarkers are the font-name substrings that signal
// weight and slant when no descriptor flags are available.
var (
	boldMarkers   = []string{"bold", "black", "heavy", "semibold", "demibold"}
	italicMarkers = []string{"italic", "oblique"}
)

// StyleFromFontName infers bold/italic from a PostScript font name such
// as "TimesNewRomanPS-BoldItalicMT".
func StyleFromFontName(name string) (bold, italic bool) {
	lower := strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(lower, m) {
			bold = true
			break
		}
	}
	for _, m := range italicMarkers {
		if strings.Contains(lower, m) {
			italic = true
			break
		}
	}
	return bold, italic
}

// RawTextSpan is a positioned text fragment from the text backend.
type RawTextSpan struct {
	Text  string         `json:"text"`
	BBox  BBox           `json:"bbox"`
	Font  FontDescriptor `json:"font"`
	Page  int            `json:"page"`
	Index int            `json:"index"`
}

// RawStyleSpan is a positioned text fragment from the style backend. The
// geometry fields match RawTextSpan; the font metadata is more reliable
// but the text segmentation is coarser.
type RawStyleSpan struct {
	Text  string         `json:"text"`
	BBox  BBox           `json:"bbox"`
	Font  FontDescriptor `json:"font"`
	Page  int            `json:"page"`
	Index int            `json:"index"`
}

// RawTableCell is one cell of a detected table.
type RawTableCell struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	RowSpan int    `json:"row_span,omitempty"`
	ColSpan int    `json:"col_span,omitempty"`
	Text    string `json:"text"`
	BBox    BBox   `json:"bbox"`
}

// RawTable is a detected table with its verbatim cell grid. Rows is
// row-major; every row has the same length once spans are accounted for.
type RawTable struct {
	Rows [][]RawTableCell `json:"rows"`
	BBox BBox             `json:"bbox"`
	Page int              `json:"page"`
}

// RowCount returns the number of rows in the grid.
func (t *RawTable) RowCount() int { return len(t.Rows) }

// ColCount returns the width of the widest row.
func (t *RawTable) ColCount() int {
	max := 0
	for _, r := range t.Rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// CellCount returns the total number of cells across all rows.
func (t *RawTable) CellCount() int {
	n := 0
	for _, r := range t.Rows {
		n += len(r)
	}
	return n
}

// RawImageAsset is an extracted image with its placement box and pixel
// dimensions. Data holds the encoded payload; Ext is the file extension
// without the dot ("png", "jpg").
type RawImageAsset struct {
	BBox  BBox   `json:"bbox"`
	PxW   int    `json:"px_w"`
	PxH   int    `json:"px_h"`
	Data  []byte `json:"-"`
	Ext   string `json:"ext"`
	Page  int    `json:"page"`
	Index int    `json:"index"`
}

// SpanRef points back at the raw span a unified run was derived from.
type SpanRef struct {
	Backend Backend `json:"backend"`
	Page    int     `json:"page"`
	Index   int     `json:"index"`
}

// UnifiedRun is a reconciled text run: the text backend's segmentation
// annotated with the best-matching style backend metadata. Column is
// assigned during ordering. LowConfidence marks runs whose style could
// not be resolved above the match threshold.
type UnifiedRun struct {
	Text          string         `json:"text"`
	BBox          BBox           `json:"bbox"`
	Font          FontDescriptor `json:"font"`
	Page          int            `json:"page"`
	Column        int            `json:"column"`
	Sources       []SpanRef      `json:"sources,omitempty"`
	LowConfidence bool           `json:"low_confidence,omitempty"`
}

// NormalizedText returns the run text with all whitespace collapsed to
// single spaces, for duplicate comparison.
func NormalizedText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
