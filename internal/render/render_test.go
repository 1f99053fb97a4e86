package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/assets"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"#heading", "\\#heading"},
		{"price $5", "price \\$5"},
		{"a*b", "a\\*b"},
		{"snake_case", "snake\\_case"},
		{"`code`", "\\`code\\`"},
		{"[link]", "\\[link\\]"},
		{"<tag>", "\\<tag\\>"},
		{"user@host", "user\\@host"},
		{`back\slash`, `back\\slash`},
		{`mix\#$`, `mix\\\#\$`},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func tree(nodes ...*model.StructuralNode) *model.DocumentTree {
	tr := model.NewDocumentTree()
	tr.Root.Children = nodes
	pages := map[int]bool{}
	for _, n := range nodes {
		if !pages[n.Page] {
			pages[n.Page] = true
			tr.Pages = append(tr.Pages, model.PageMeta{Index: n.Page, Width: 612, Height: 792, Columns: 1})
		}
	}
	return tr
}

func para(page int, text string) *model.StructuralNode {
	return &model.StructuralNode{
		Kind: model.KindParagraph,
		Runs: []model.UnifiedRun{{Text: text, Page: page, Font: model.FontDescriptor{Size: 11}}},
		Page: page,
	}
}

func render(t *testing.T, tr *model.DocumentTree) string {
	t.Helper()
	out, err := New(assets.NewStore(), nil).Render(tr)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestRenderPrelude(t *testing.T) {
	out := render(t, tree(para(1, "hello")))

	if !strings.Contains(out, "#set page(width: 215.9mm, height: 279.4mm, margin: 2cm)") {
		t.Errorf("missing page setup:\n%s", out)
	}
	if !strings.Contains(out, "#set text(size: 11.0pt)") {
		t.Errorf("missing text setup:\n%s", out)
	}
	if !strings.Contains(out, "#set par(justify: true, leading: 0.65em)") {
		t.Errorf("missing par setup:\n%s", out)
	}
}

func TestRenderHeadingLevels(t *testing.T) {
	out := render(t, tree(
		&model.StructuralNode{Kind: model.KindHeading, Level: 1,
			Runs: []model.UnifiedRun{{Text: "Top"}}, Page: 1},
		&model.StructuralNode{Kind: model.KindHeading, Level: 3,
			Runs: []model.UnifiedRun{{Text: "Deep"}}, Page: 1},
	))

	if !strings.Contains(out, "= Top\n") {
		t.Errorf("missing level-1 heading:\n%s", out)
	}
	if !strings.Contains(out, "=== Deep\n") {
		t.Errorf("missing level-3 heading:\n%s", out)
	}
}

func TestRenderHeadingLevelOutOfRange(t *testing.T) {
	tr := tree(&model.StructuralNode{Kind: model.KindHeading, Level: 7,
		Runs: []model.UnifiedRun{{Text: "bad"}}, Page: 2})

	_, err := New(assets.NewStore(), nil).Render(tr)
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rerr.Page != 2 {
		t.Errorf("error page = %d, want 2", rerr.Page)
	}
}

func TestRenderParagraphEscapes(t *testing.T) {
	out := render(t, tree(para(1, "cost is $10 #now")))

	if !strings.Contains(out, `cost is \$10 \#now`) {
		t.Errorf("text not escaped:\n%s", out)
	}
}

func TestRenderPagebreakBetweenPages(t *testing.T) {
	out := render(t, tree(para(1, "one"), para(2, "two")))

	i := strings.Index(out, "one")
	j := strings.Index(out, "#pagebreak()")
	k := strings.Index(out, "two")
	if i < 0 || j < 0 || k < 0 || !(i < j && j < k) {
		t.Errorf("pagebreak misplaced:\n%s", out)
	}
}

func TestRenderMultiColumnWrap(t *testing.T) {
	tr := tree(para(1, "columned"))
	tr.Pages[0].Columns = 2

	out := render(t, tr)
	if !strings.Contains(out, "#columns(2, gutter: 1em)[") {
		t.Errorf("missing column wrap:\n%s", out)
	}
}

func TestRenderList(t *testing.T) {
	list := &model.StructuralNode{Kind: model.KindList, Page: 1, Children: []*model.StructuralNode{
		{Kind: model.KindListItem, Depth: 1, Runs: []model.UnifiedRun{{Text: "- outer item"}}, Page: 1},
		{Kind: model.KindListItem, Depth: 2, Runs: []model.UnifiedRun{{Text: "- inner item"}}, Page: 1},
	}}

	out := render(t, tree(list))
	if !strings.Contains(out, "- outer item\n") {
		t.Errorf("missing outer item:\n%s", out)
	}
	if !strings.Contains(out, "  - inner item\n") {
		t.Errorf("missing indented inner item:\n%s", out)
	}
}

func TestRenderNumberedList(t *testing.T) {
	list := &model.StructuralNode{Kind: model.KindList, Page: 1, Children: []*model.StructuralNode{
		{Kind: model.KindListItem, Depth: 1, Runs: []model.UnifiedRun{{Text: "1. first step"}}, Page: 1},
	}}

	out := render(t, tree(list))
	if !strings.Contains(out, "+ first step\n") {
		t.Errorf("numbered item should use +:\n%s", out)
	}
}

func TestRenderTable(t *testing.T) {
	table := &model.RawTable{
		Rows: [][]model.RawTableCell{
			{{Text: "Name"}, {Text: "Qty"}},
			{{Text: "Widget"}}, // short row gets padded
		},
		Page: 1,
	}
	out := render(t, tree(&model.StructuralNode{Kind: model.KindTable, Table: table, Page: 1}))

	if !strings.Contains(out, "columns: (auto, auto)") {
		t.Errorf("missing column spec:\n%s", out)
	}
	if !strings.Contains(out, "stroke: 0.5pt") {
		t.Errorf("missing stroke:\n%s", out)
	}
	if !strings.Contains(out, "[Widget], [],") {
		t.Errorf("short row not padded:\n%s", out)
	}
}

func TestRenderTableEmptyGridFatal(t *testing.T) {
	tr := tree(&model.StructuralNode{Kind: model.KindTable, Table: &model.RawTable{}, Page: 1})
	if _, err := New(assets.NewStore(), nil).Render(tr); err == nil {
		t.Error("expected error for empty table grid")
	}
}

func TestRenderImageUsesStoreName(t *testing.T) {
	img := &model.RawImageAsset{
		Page: 2, Index: 0, Ext: "png", Data: []byte{1, 2, 3},
		PxW: 10, PxH: 10,
	}
	store := assets.NewStore()
	r := New(store, nil)
	out, err := r.Render(tree(&model.StructuralNode{Kind: model.KindImage, Image: img, Page: 2}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !strings.Contains(out, `#figure(image("assets/image_p2_0.png", width: 80%), caption: [])`) {
		t.Errorf("missing figure:\n%s", out)
	}
	if store.Len() != 1 {
		t.Errorf("store len = %d, want 1", store.Len())
	}
}

func TestRenderNilImageFatal(t *testing.T) {
	tr := tree(&model.StructuralNode{Kind: model.KindImage, Page: 1})
	if _, err := New(assets.NewStore(), nil).Render(tr); err == nil {
		t.Error("expected error for image node without asset")
	}
}

func TestRenderEquations(t *testing.T) {
	out := render(t, tree(
		&model.StructuralNode{Kind: model.KindEquation, EqKind: model.EqInline,
			Runs: []model.UnifiedRun{{Text: "$x + y$"}}, Page: 1},
		&model.StructuralNode{Kind: model.KindEquation, EqKind: model.EqBlock,
			Runs: []model.UnifiedRun{{Text: "E = m c^2"}}, Page: 1},
	))

	if !strings.Contains(out, "$x + y$\n") {
		t.Errorf("missing inline equation:\n%s", out)
	}
	if !strings.Contains(out, "$ E = m c^2 $\n") {
		t.Errorf("missing block equation:\n%s", out)
	}
}

func TestRenderFootnote(t *testing.T) {
	out := render(t, tree(&model.StructuralNode{Kind: model.KindFootnote,
		Runs: []model.UnifiedRun{{Text: "1. see appendix"}}, Page: 1}))

	if !strings.Contains(out, "#footnote[1. see appendix]") {
		t.Errorf("missing footnote:\n%s", out)
	}
}

func TestRenderDeterministic(t *testing.T) {
	build := func() *model.DocumentTree {
		return tree(
			&model.StructuralNode{Kind: model.KindHeading, Level: 1,
				Runs: []model.UnifiedRun{{Text: "Title"}}, Page: 1},
			para(1, "body"),
			para(2, "more"),
		)
	}
	a := render(t, build())
	b := render(t, build())
	if a != b {
		t.Error("same tree rendered differently")
	}
}
