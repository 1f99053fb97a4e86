package extract

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

func span(text string, x, y, w, h float64) model.RawTextSpan {
	return model.RawTextSpan{Text: text, BBox: model.NewBBox(x, y, w, h)}
}

func TestPieceBBoxFlipsOrigin(t *testing.T) {
	// Baseline at 700 in a 792pt page: top of a 12pt box sits at
	// 792 - (700 - 0.2*12) - 12 = 82.4.
	piece := textPiece{text: "x", x: 72, y: 700, w: 30, size: 12}
	bbox := pieceBBox(piece, 0, 0, 612, 792)

	if bbox.X != 72 {
		t.Errorf("X = %v, want 72", bbox.X)
	}
	want := 792 - (700 - glyphDescentRatio*12) - 12
	if diff := bbox.Y - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Y = %v, want %v", bbox.Y, want)
	}
	if bbox.W != 30 || bbox.H != 12 {
		t.Errorf("size = (%v, %v), want (30, 12)", bbox.W, bbox.H)
	}
}

func TestPieceBBoxClampsToPage(t *testing.T) {
	piece := textPiece{text: "x", x: 600, y: 5, w: 100, size: 12}
	bbox := pieceBBox(piece, 0, 0, 612, 792)

	if bbox.Right() > 612 {
		t.Errorf("right edge %v exceeds page width", bbox.Right())
	}
	if bbox.Bottom() > 792 {
		t.Errorf("bottom edge %v exceeds page height", bbox.Bottom())
	}
}

func TestDetectTablesAlignedGrid(t *testing.T) {
	// Three rows sharing three column starts at 50, 200, 350.
	var spans []model.RawTextSpan
	for row, y := range []float64{100, 120, 140} {
		texts := [][]string{
			{"Name", "Qty", "Price"},
			{"Widget", "2", "9.99"},
			{"Gadget", "1", "19.99"},
		}[row]
		for col, x := range []float64{50, 200, 350} {
			spans = append(spans, span(texts[col], x, y, 60, 10))
		}
	}

	tables := detectTables(spans, 1)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tab := tables[0]
	if tab.RowCount() != 3 || tab.ColCount() != 3 {
		t.Fatalf("grid = %dx%d, want 3x3", tab.RowCount(), tab.ColCount())
	}
	if got := tab.Rows[1][2].Text; got != "9.99" {
		t.Errorf("cell (1,2) = %q, want %q", got, "9.99")
	}
	if tab.Page != 1 {
		t.Errorf("page = %d, want 1", tab.Page)
	}
	if tab.BBox.IsEmpty() {
		t.Error("table bbox is empty")
	}
}

func TestDetectTablesIgnoresProse(t *testing.T) {
	// Ragged left edges: ordinary paragraph lines, one span each.
	spans := []model.RawTextSpan{
		span("This is the first line of a paragraph", 72, 100, 400, 10),
		span("and this is the second, slightly shorter.", 72, 112, 360, 10),
		span("A third line ends the paragraph here.", 72, 124, 340, 10),
	}
	if tables := detectTables(spans, 1); len(tables) != 0 {
		t.Errorf("expected no tables, got %d", len(tables))
	}
}

func TestDetectTablesRequiresMinimumGrid(t *testing.T) {
	// Two aligned columns but only one row.
	spans := []model.RawTextSpan{
		span("a", 50, 100, 40, 10),
		span("b", 200, 100, 40, 10),
	}
	if tables := detectTables(spans, 1); len(tables) != 0 {
		t.Errorf("expected no tables for a single row, got %d", len(tables))
	}
}

func TestMergeStyleSpansJoinsSameLine(t *testing.T) {
	pieces := []textPiece{
		{text: "Hello", x: 72, y: 700, w: 30, size: 12, font: "F1"},
		{text: "world", x: 106, y: 700, w: 30, size: 12, font: "F1"},
		{text: "next line", x: 72, y: 686, w: 50, size: 12, font: "F1"},
	}
	fonts := map[string]fontInfo{"F1": {base: "Times-Roman"}}

	spans := mergeStyleSpans(pieces, fonts, 0, 0, 612, 792, 1)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if got := spans[0].Text; got != "Hello world" {
		t.Errorf("merged text = %q, want %q", got, "Hello world")
	}
	if spans[0].Font.Family != "Times-Roman" {
		t.Errorf("family = %q, want Times-Roman", spans[0].Font.Family)
	}
	if spans[1].Text != "next line" {
		t.Errorf("second span = %q", spans[1].Text)
	}
}

func TestMergeStyleSpansBreaksOnFontChange(t *testing.T) {
	pieces := []textPiece{
		{text: "normal", x: 72, y: 700, w: 40, size: 12, font: "F1"},
		{text: "bold", x: 116, y: 700, w: 30, size: 12, font: "F2"},
	}
	fonts := map[string]fontInfo{
		"F1": {base: "Helvetica"},
		"F2": {base: "Helvetica-Bold", bold: true},
	}

	spans := mergeStyleSpans(pieces, fonts, 0, 0, 612, 792, 1)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Font.Bold {
		t.Error("first span should not be bold")
	}
	if !spans[1].Font.Bold {
		t.Error("second span should be bold")
	}
}

func TestPlaceImagesMatchesDraws(t *testing.T) {
	draws := []drawRect{
		{name: "Im1", x: 100, y: 400, w: 200, h: 150},
		{name: "Missing", x: 0, y: 0, w: 10, h: 10},
	}
	objects := map[string]imageObject{
		"Im1": {name: "Im1", pxW: 640, pxH: 480, data: []byte{1}, ext: "png"},
	}

	assets := placeImages(draws, objects, 0, 0, 612, 792, 3)
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}
	a := assets[0]
	if a.PxW != 640 || a.PxH != 480 || a.Ext != "png" || a.Page != 3 {
		t.Errorf("asset = %+v", a)
	}
	// Bottom-left (100,400) with height 150 flips to top 792-400-150.
	if want := 792.0 - 400 - 150; a.BBox.Y != want {
		t.Errorf("Y = %v, want %v", a.BBox.Y, want)
	}
}

func TestSamplesToPNGRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		components int
		samples    []byte
	}{
		{"gray", 1, []byte{0, 64, 128, 255}},
		{"rgb", 3, bytes.Repeat([]byte{10, 20, 30}, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := samplesToPNG(tt.samples, 2, 2, tt.components)
			if err != nil {
				t.Fatalf("samplesToPNG: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
				t.Errorf("bounds = %v, want 2x2", b)
			}
		})
	}
}

func TestSamplesToPNGShortData(t *testing.T) {
	if _, err := samplesToPNG([]byte{1, 2}, 2, 2, 1); err == nil {
		t.Error("expected error for short sample data")
	}
}

// stubText and stubStyle drive the coordinator without a real PDF.
type stubText struct {
	spans  []model.RawTextSpan
	tables []*model.RawTable
	err    error
}

func (s *stubText) ExtractTextAndTables(ctx context.Context, doc *Document, page int) ([]model.RawTextSpan, []*model.RawTable, error) {
	return s.spans, s.tables, s.err
}

type stubStyle struct {
	spans  []model.RawStyleSpan
	images []model.RawImageAsset
	err    error
}

func (s *stubStyle) ExtractStylesAndImages(ctx context.Context, doc *Document, page int) ([]model.RawStyleSpan, []model.RawImageAsset, error) {
	return s.spans, s.images, s.err
}

func testDoc() *Document {
	return &Document{pages: []pageInfo{{width: 612, height: 792}}}
}

func TestCoordinatorMergesBackends(t *testing.T) {
	text := &stubText{
		spans:  []model.RawTextSpan{span("hello", 72, 100, 40, 12)},
		tables: []*model.RawTable{{Page: 1}},
	}
	style := &stubStyle{
		spans:  []model.RawStyleSpan{{Text: "hello"}},
		images: []model.RawImageAsset{{Page: 1, Ext: "png"}},
	}
	c := NewCoordinator(text, style, CoordinatorConfig{})

	rec := c.ExtractPage(context.Background(), testDoc(), 1)
	if rec.Failed {
		t.Fatalf("unexpected failure: %s", rec.FailReason)
	}
	if rec.Width != 612 || rec.Height != 792 {
		t.Errorf("page size = (%v, %v)", rec.Width, rec.Height)
	}
	if len(rec.TextSpans) != 1 || len(rec.StyleSpans) != 1 || len(rec.Tables) != 1 || len(rec.Images) != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestCoordinatorBackendErrorFlagsPage(t *testing.T) {
	boom := errors.New("boom")
	c := NewCoordinator(&stubText{err: boom}, &stubStyle{}, CoordinatorConfig{})

	rec := c.ExtractPage(context.Background(), testDoc(), 1)
	if !rec.Failed {
		t.Fatal("expected failed record")
	}
	if !strings.Contains(rec.FailReason, "boom") {
		t.Errorf("fail reason = %q", rec.FailReason)
	}
	if !strings.Contains(rec.FailReason, "text") {
		t.Errorf("fail reason should name the backend: %q", rec.FailReason)
	}
}

func TestCoordinatorSkipFlags(t *testing.T) {
	text := &stubText{tables: []*model.RawTable{{Page: 1}}}
	style := &stubStyle{images: []model.RawImageAsset{{Page: 1}}}
	c := NewCoordinator(text, style, CoordinatorConfig{SkipTables: true, SkipImages: true})

	rec := c.ExtractPage(context.Background(), testDoc(), 1)
	if rec.Failed {
		t.Fatalf("unexpected failure: %s", rec.FailReason)
	}
	if len(rec.Tables) != 0 || len(rec.Images) != 0 {
		t.Errorf("skip flags ignored: %d tables, %d images", len(rec.Tables), len(rec.Images))
	}
}

func TestCoordinatorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCoordinator(&stubText{}, &stubStyle{}, CoordinatorConfig{})

	rec := c.ExtractPage(ctx, testDoc(), 1)
	if !rec.Failed {
		t.Fatal("expected failed record for cancelled context")
	}
}
