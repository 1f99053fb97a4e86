package reconcile

import (
	"fmt"
	"testing"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/model"
)

func textSpan(idx int, text string, x, y, w, h float64) model.RawTextSpan {
	return model.RawTextSpan{Text: text, BBox: model.NewBBox(x, y, w, h), Page: 1, Index: idx,
		Font: model.FontDescriptor{Family: "F0", Size: h}}
}

func styleSpan(idx int, text string, x, y, w, h float64, font model.FontDescriptor) model.RawStyleSpan {
	return model.RawStyleSpan{Text: text, BBox: model.NewBBox(x, y, w, h), Page: 1, Index: idx, Font: font}
}

func page(texts []model.RawTextSpan, styles []model.RawStyleSpan) *model.PageRecord {
	return &model.PageRecord{Page: 1, Width: 612, Height: 792, TextSpans: texts, StyleSpans: styles}
}

func TestReconcileAppliesStyleFont(t *testing.T) {
	bold := model.FontDescriptor{Family: "Helvetica-Bold", Size: 12, Bold: true}
	rec := page(
		[]model.RawTextSpan{textSpan(0, "Heading", 72, 100, 120, 12)},
		[]model.RawStyleSpan{styleSpan(0, "Heading", 72, 100, 120, 12, bold)},
	)

	New(Config{}, nil).Reconcile(rec)

	if len(rec.Runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(rec.Runs))
	}
	run := rec.Runs[0]
	if !run.Font.Bold || run.Font.Family != "Helvetica-Bold" {
		t.Errorf("font = %+v, want style backend's bold font", run.Font)
	}
	if run.LowConfidence {
		t.Error("matched run should not be low confidence")
	}
	if len(run.Sources) != 2 {
		t.Errorf("sources = %d, want both backends", len(run.Sources))
	}
}

func TestReconcileNoMatchKeepsOwnFont(t *testing.T) {
	rec := page(
		[]model.RawTextSpan{textSpan(0, "orphan", 72, 100, 80, 12)},
		[]model.RawStyleSpan{styleSpan(0, "elsewhere", 400, 600, 80, 12, model.FontDescriptor{Family: "Times"})},
	)

	New(Config{}, nil).Reconcile(rec)

	run := rec.Runs[0]
	if !run.LowConfidence {
		t.Error("unmatched run should be low confidence")
	}
	if run.Font.Family != "F0" {
		t.Errorf("family = %q, want text backend's F0", run.Font.Family)
	}
}

func TestReconcileTieBreaksByCentroid(t *testing.T) {
	// Two style spans fully containing the text span with equal overlap
	// area; the one centered on the text span must win.
	target := textSpan(0, "x", 100, 100, 20, 10)
	centered := styleSpan(0, "x", 100, 100, 20, 10, model.FontDescriptor{Family: "Centered"})
	rec := page(
		[]model.RawTextSpan{target},
		[]model.RawStyleSpan{
			styleSpan(1, "x", 95, 95, 30, 20, model.FontDescriptor{Family: "Shifted"}),
			centered,
		},
	)

	r := New(Config{}, nil)
	best, ok := r.bestStyleMatch(target, rec.StyleSpans)
	if !ok {
		t.Fatal("expected a match")
	}
	if got := rec.StyleSpans[best].Font.Family; got != "Centered" {
		t.Errorf("matched %q, want Centered", got)
	}
}

func TestReconcileCollapsesDuplicates(t *testing.T) {
	rec := page(
		[]model.RawTextSpan{
			textSpan(0, "same  text", 72, 100, 100, 12),
			textSpan(1, "same text", 73, 100.5, 100, 12),
		},
		nil,
	)

	New(Config{}, nil).Reconcile(rec)

	if len(rec.Runs) != 1 {
		t.Fatalf("expected duplicate collapse to 1 run, got %d", len(rec.Runs))
	}
	if len(rec.Runs[0].Sources) != 2 {
		t.Errorf("collapsed run should carry both sources, got %d", len(rec.Runs[0].Sources))
	}
}

func TestReconcileKeepsDistinctText(t *testing.T) {
	rec := page(
		[]model.RawTextSpan{
			textSpan(0, "alpha", 72, 100, 100, 12),
			textSpan(1, "beta", 73, 100.5, 100, 12),
		},
		nil,
	)

	New(Config{}, nil).Reconcile(rec)

	if len(rec.Runs) != 2 {
		t.Fatalf("overlapping but different text must not collapse, got %d runs", len(rec.Runs))
	}
}

func TestTwoColumnReadingOrder(t *testing.T) {
	// Left column x=50..250, right column x=350..550, 100pt gap.
	var texts []model.RawTextSpan
	idx := 0
	for _, x := range []float64{50, 350} {
		for _, y := range []float64{100, 300, 500, 700} {
			texts = append(texts, textSpan(idx, fmt.Sprintf("x%v y%v", x, y), x, y, 200, 12))
			idx++
		}
	}
	rec := page(texts, nil)

	New(Config{}, nil).Reconcile(rec)

	if rec.Columns != 2 {
		t.Fatalf("columns = %d, want 2", rec.Columns)
	}
	// The bottom of the left column reads before the top of the right.
	var leftBottom, rightTop int
	for i, run := range rec.Runs {
		if run.BBox.X == 50 && run.BBox.Y == 700 {
			leftBottom = i
		}
		if run.BBox.X == 350 && run.BBox.Y == 100 {
			rightTop = i
		}
	}
	if leftBottom > rightTop {
		t.Errorf("left column bottom (pos %d) must precede right column top (pos %d)", leftBottom, rightTop)
	}
	for i, run := range rec.Runs[:4] {
		if run.Column != 0 {
			t.Errorf("run %d column = %d, want 0", i, run.Column)
		}
	}
	for i, run := range rec.Runs[4:] {
		if run.Column != 1 {
			t.Errorf("run %d column = %d, want 1", i+4, run.Column)
		}
	}
}

func TestSingleColumnWhenGapBlocked(t *testing.T) {
	// A full-width heading blocks the gap over most of the band.
	texts := []model.RawTextSpan{
		textSpan(0, "left", 50, 300, 200, 12),
		textSpan(1, "right", 350, 300, 200, 12),
		textSpan(2, "wide heading spanning everything", 50, 100, 500, 200),
	}
	rec := page(texts, nil)

	New(Config{}, nil).Reconcile(rec)

	if rec.Columns != 1 {
		t.Errorf("columns = %d, want 1 when the gap is mostly blocked", rec.Columns)
	}
}

func TestColumnCapRespected(t *testing.T) {
	// Six narrow columns of text; detection must stop at MaxColumns.
	var texts []model.RawTextSpan
	idx := 0
	for _, x := range []float64{0, 100, 200, 300, 400, 500} {
		for _, y := range []float64{100, 400, 700} {
			texts = append(texts, textSpan(idx, "cell", x, y, 60, 12))
			idx++
		}
	}
	rec := page(texts, nil)

	New(Config{}, nil).Reconcile(rec)

	if rec.Columns > 4 {
		t.Errorf("columns = %d, want at most 4", rec.Columns)
	}
}

func TestReconcileFailedPageUntouched(t *testing.T) {
	rec := &model.PageRecord{Page: 1, Failed: true, FailReason: "timeout"}
	New(Config{}, nil).Reconcile(rec)
	if rec.Runs != nil || rec.Columns != 0 {
		t.Errorf("failed page must pass through untouched: %+v", rec)
	}
}
