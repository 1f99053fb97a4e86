package model

import (
	"testing"
)

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		kind NodeKind
		want string
	}{
		{KindRoot, "root"},
		{KindHeading, "heading"},
		{KindParagraph, "paragraph"},
		{KindList, "list"},
		{KindListItem, "list_item"},
		{KindCitation, "citation"},
		{KindReference, "reference"},
		{KindFootnote, "footnote"},
		{KindEquation, "equation"},
		{KindTable, "table"},
		{KindImage, "image"},
		{NodeKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("NodeKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestStyleFromFontName(t *testing.T) {
	tests := []struct {
		name       string
		font       string
		wantBold   bool
		wantItalic bool
	}{
		{"plain", "Times-Roman", false, false},
		{"bold suffix", "Helvetica-Bold", true, false},
		{"italic suffix", "Helvetica-Oblique", false, true},
		{"bold italic", "TimesNewRomanPS-BoldItalicMT", true, true},
		{"black weight", "Arial-Black", true, false},
		{"heavy weight", "HelveticaNeue-Heavy", true, false},
		{"case insensitive", "ARIAL-BOLDMT", true, false},
		{"embedded subset", "ABCDEF+Calibri-Italic", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bold, italic := StyleFromFontName(tt.font)
			if bold != tt.wantBold || italic != tt.wantItalic {
				t.Errorf("StyleFromFontName(%q) = (%v, %v), want (%v, %v)",
					tt.font, bold, italic, tt.wantBold, tt.wantItalic)
			}
		})
	}
}

func TestStructuralNodeText(t *testing.T) {
	n := &StructuralNode{
		Kind: KindParagraph,
		Runs: []UnifiedRun{
			{Text: "Hello"},
			{Text: ""},
			{Text: "world."},
		},
	}
	if got := n.Text(); got != "Hello world." {
		t.Errorf("Text() = %q, want %q", got, "Hello world.")
	}

	empty := &StructuralNode{Kind: KindParagraph}
	if got := empty.Text(); got != "" {
		t.Errorf("empty Text() = %q, want empty", got)
	}
}

func TestStructuralNodeBBox(t *testing.T) {
	n := &StructuralNode{
		Kind: KindParagraph,
		Runs: []UnifiedRun{
			{Text: "a", BBox: BBox{10, 10, 20, 10}},
			{Text: "b", BBox: BBox{10, 30, 40, 10}},
		},
	}
	want := BBox{10, 10, 40, 30}
	if got := n.BBox(); got != want {
		t.Errorf("BBox() = %+v, want %+v", got, want)
	}
}

func TestDocumentTreeWalkOrder(t *testing.T) {
	tree := NewDocumentTree()
	h := &StructuralNode{Kind: KindHeading, Level: 1}
	p := &StructuralNode{Kind: KindParagraph}
	list := &StructuralNode{Kind: KindList}
	item1 := &StructuralNode{Kind: KindListItem, Depth: 1}
	item2 := &StructuralNode{Kind: KindListItem, Depth: 1}
	list.Children = []*StructuralNode{item1, item2}
	tree.Root.Children = []*StructuralNode{h, p, list}

	var kinds []NodeKind
	tree.Walk(func(n *StructuralNode) bool {
		kinds = append(kinds, n.Kind)
		return true
	})

	want := []NodeKind{KindRoot, KindHeading, KindParagraph, KindList, KindListItem, KindListItem}
	if len(kinds) != len(want) {
		t.Fatalf("Walk visited %d nodes, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Walk order[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}

	leaves := tree.Leaves()
	if len(leaves) != 4 {
		t.Errorf("Leaves() = %d nodes, want 4", len(leaves))
	}
}

func TestDocumentTreeWalkStops(t *testing.T) {
	tree := NewDocumentTree()
	tree.Root.Children = []*StructuralNode{
		{Kind: KindParagraph},
		{Kind: KindParagraph},
		{Kind: KindParagraph},
	}

	visited := 0
	tree.Walk(func(n *StructuralNode) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("Walk visited %d nodes after stop, want 2", visited)
	}
}

func TestRawTableCounts(t *testing.T) {
	tbl := &RawTable{
		Rows: [][]RawTableCell{
			{{Row: 0, Col: 0, Text: "a"}, {Row: 0, Col: 1, Text: "b"}},
			{{Row: 1, Col: 0, Text: "c"}, {Row: 1, Col: 1, Text: "d"}},
			{{Row: 2, Col: 0, Text: "e"}, {Row: 2, Col: 1, Text: "f"}},
		},
	}
	if got := tbl.RowCount(); got != 3 {
		t.Errorf("RowCount() = %d, want 3", got)
	}
	if got := tbl.ColCount(); got != 2 {
		t.Errorf("ColCount() = %d, want 2", got)
	}
	if got := tbl.CellCount(); got != 6 {
		t.Errorf("CellCount() = %d, want 6", got)
	}
}

func TestNormalizedText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello  world", "hello world"},
		{"  leading and trailing  ", "leading and trailing"},
		{"line\nbreaks\tand tabs", "line breaks and tabs"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizedText(tt.in); got != tt.want {
			t.Errorf("NormalizedText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPageRecordRawCharCount(t *testing.T) {
	rec := &PageRecord{
		TextSpans: []RawTextSpan{
			{Text: "abc"},
			{Text: "de  f"},
		},
	}
	// "abc" (3) + "de f" (4 after normalization).
	if got := rec.RawCharCount(); got != 7 {
		t.Errorf("RawCharCount() = %d, want 7", got)
	}
}
