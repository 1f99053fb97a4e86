package doctree

import (
	"reflect"
	"strings"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/analyze"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

func paraNode(page int, text string) *model.StructuralNode {
	return &model.StructuralNode{
		Kind: model.KindParagraph,
		Runs: []model.UnifiedRun{{Text: text, Page: page}},
		Page: page,
	}
}

func classifiedPages() []analyze.ClassifiedPage {
	return []analyze.ClassifiedPage{
		{
			Record: &model.PageRecord{Page: 1, Width: 612, Height: 792, Columns: 1},
			Nodes: []*model.StructuralNode{
				{Kind: model.KindHeading, Level: 1, Runs: []model.UnifiedRun{{Text: "Title", Page: 1}}, Page: 1},
				paraNode(1, "first page body"),
			},
		},
		{
			Record: &model.PageRecord{Page: 2, Width: 612, Height: 792, Columns: 2},
			Nodes:  []*model.StructuralNode{paraNode(2, "second page body")},
		},
	}
}

func TestBuildPreservesPageOrder(t *testing.T) {
	pages := classifiedPages()
	tree := New(nil).Build(pages, model.DocMeta{Title: "Doc", Pages: 2})

	if tree.Meta.Title != "Doc" {
		t.Errorf("meta title = %q", tree.Meta.Title)
	}
	if len(tree.Pages) != 2 {
		t.Fatalf("page metas = %d, want 2", len(tree.Pages))
	}
	if tree.Pages[1].Columns != 2 {
		t.Errorf("page 2 columns = %d, want 2", tree.Pages[1].Columns)
	}

	var order []string
	tree.Walk(func(n *model.StructuralNode) bool {
		if n.Kind != model.KindRoot {
			order = append(order, n.Text())
		}
		return true
	})
	want := []string{"Title", "first page body", "second page body"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("walk order = %v, want %v", order, want)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := New(nil).Build(classifiedPages(), model.DocMeta{Pages: 2})
	b := New(nil).Build(classifiedPages(), model.DocMeta{Pages: 2})

	var ta, tb []string
	a.Walk(func(n *model.StructuralNode) bool { ta = append(ta, n.Kind.String()+":"+n.Text()); return true })
	b.Walk(func(n *model.StructuralNode) bool { tb = append(tb, n.Kind.String()+":"+n.Text()); return true })
	if !reflect.DeepEqual(ta, tb) {
		t.Errorf("builds differ:\n%v\n%v", ta, tb)
	}
}

func TestBuildFailedPagePlaceholder(t *testing.T) {
	pages := []analyze.ClassifiedPage{
		{Record: &model.PageRecord{Page: 1, Failed: true, FailReason: "timeout"}},
	}
	tree := New(nil).Build(pages, model.DocMeta{Pages: 1})

	if !tree.Pages[0].Failed {
		t.Error("page meta should carry the failure flag")
	}
	if tree.NodeCount() != 1 {
		t.Fatalf("node count = %d, want 1 placeholder", tree.NodeCount())
	}
	leaf := tree.Leaves()[0]
	if !strings.Contains(leaf.Text(), "timeout") {
		t.Errorf("placeholder text = %q, want the failure reason", leaf.Text())
	}
	if err := Verify(tree, pages); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestBuildDegeneratePage(t *testing.T) {
	pages := []analyze.ClassifiedPage{
		{Record: &model.PageRecord{Page: 1, Width: 612, Height: 792, Columns: 1}},
	}
	tree := New(nil).Build(pages, model.DocMeta{Pages: 1})

	if tree.NodeCount() != 0 {
		t.Errorf("empty page should add no nodes, got %d", tree.NodeCount())
	}
	if len(tree.Pages) != 1 {
		t.Errorf("empty page must still have metadata")
	}
	if err := Verify(tree, pages); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyConservation(t *testing.T) {
	pages := classifiedPages()
	tree := New(nil).Build(pages, model.DocMeta{Pages: 2})

	if err := Verify(tree, pages); err != nil {
		t.Fatalf("Verify on a faithful tree: %v", err)
	}

	// Drop a node behind the builder's back: Verify must notice.
	tree.Root.Children = tree.Root.Children[:len(tree.Root.Children)-1]
	if err := Verify(tree, pages); err == nil {
		t.Error("Verify should fail after a node is dropped")
	}
}

func TestVerifyNilTree(t *testing.T) {
	if err := Verify(nil, nil); err == nil {
		t.Error("expected error for nil tree")
	}
}

func TestCoverage(t *testing.T) {
	pages := classifiedPages()
	tree := New(nil).Build(pages, model.DocMeta{Pages: 2})
	records := []*model.PageRecord{pages[0].Record, pages[1].Record}

	if got := Coverage(tree, records); got != 1 {
		t.Errorf("coverage with no raw spans = %v, want 1", got)
	}

	records[0].TextSpans = []model.RawTextSpan{
		{Text: "Title", Page: 1},
		{Text: "first page body", Page: 1},
	}
	records[1].TextSpans = []model.RawTextSpan{
		{Text: "second page body", Page: 2},
	}
	if got := Coverage(tree, records); got != 1 {
		t.Errorf("coverage with matching raw spans = %v, want 1", got)
	}

	// A raw span dropped by dedup lowers the ratio below 1.
	records[1].TextSpans = append(records[1].TextSpans,
		model.RawTextSpan{Text: "second page body", Page: 2})
	got := Coverage(tree, records)
	if got >= 1 || got <= 0 {
		t.Errorf("coverage with a deduplicated raw span = %v, want in (0, 1)", got)
	}
}
