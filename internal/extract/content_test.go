package extract

import (
	"context"
	"math"
	"strings"
	"testing"
)

func TestParseContentSimpleText(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf 72 700 Td (Hello World) Tj ET`)
	pc := parseContent(context.Background(), stream)

	if len(pc.pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pc.pieces))
	}
	p := pc.pieces[0]
	if p.text != "Hello World" {
		t.Errorf("text = %q, want %q", p.text, "Hello World")
	}
	if p.x != 72 || p.y != 700 {
		t.Errorf("position = (%v, %v), want (72, 700)", p.x, p.y)
	}
	if p.size != 12 {
		t.Errorf("size = %v, want 12", p.size)
	}
	if p.font != "F1" {
		t.Errorf("font = %q, want F1", p.font)
	}
}

func TestParseContentTJWordGap(t *testing.T) {
	stream := []byte(`BT /F1 10 Tf 50 600 Td [(Hel) 20 (lo) -250 (world)] TJ ET`)
	pc := parseContent(context.Background(), stream)

	if len(pc.pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pc.pieces))
	}
	if got := pc.pieces[0].text; got != "Hello world" {
		t.Errorf("text = %q, want %q", got, "Hello world")
	}
}

func TestParseContentMultipleLines(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf 14 TL 72 700 Td (first) Tj 0 -14 Td (second) Tj T* (third) Tj ET`)
	pc := parseContent(context.Background(), stream)

	if len(pc.pieces) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(pc.pieces))
	}
	if pc.pieces[0].y != 700 {
		t.Errorf("first y = %v, want 700", pc.pieces[0].y)
	}
	if pc.pieces[1].y != 686 {
		t.Errorf("second y = %v, want 686", pc.pieces[1].y)
	}
	if pc.pieces[2].y != 672 {
		t.Errorf("third y = %v, want 672", pc.pieces[2].y)
	}
}

func TestParseContentTextMatrix(t *testing.T) {
	// Tm at 2x scale doubles the effective font size.
	stream := []byte(`BT /F1 10 Tf 2 0 0 2 100 500 Tm (big) Tj ET`)
	pc := parseContent(context.Background(), stream)

	if len(pc.pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pc.pieces))
	}
	p := pc.pieces[0]
	if p.x != 100 || p.y != 500 {
		t.Errorf("position = (%v, %v), want (100, 500)", p.x, p.y)
	}
	if math.Abs(p.size-20) > 1e-9 {
		t.Errorf("size = %v, want 20", p.size)
	}
}

func TestParseContentXObjectPlacement(t *testing.T) {
	stream := []byte(`q 200 0 0 150 100 400 cm /Im1 Do Q BT /F1 9 Tf (after) Tj ET`)
	pc := parseContent(context.Background(), stream)

	if len(pc.draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(pc.draws))
	}
	d := pc.draws[0]
	if d.name != "Im1" {
		t.Errorf("name = %q, want Im1", d.name)
	}
	if d.x != 100 || d.y != 400 || d.w != 200 || d.h != 150 {
		t.Errorf("rect = (%v, %v, %v, %v), want (100, 400, 200, 150)", d.x, d.y, d.w, d.h)
	}
	if len(pc.pieces) != 1 || pc.pieces[0].text != "after" {
		t.Errorf("text after Q not recovered: %+v", pc.pieces)
	}
}

func TestParseContentEscapesAndHex(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{"paren escape", `BT /F1 10 Tf ((a\(b\)c)) Tj ET`, "(a(b)c)"},
		{"octal escape", `BT /F1 10 Tf (a\040b) Tj ET`, "a b"},
		{"hex string", `BT /F1 10 Tf <48656C6C6F> Tj ET`, "Hello"},
		{"odd hex padded", `BT /F1 10 Tf <48656C6C6F2> Tj ET`, "Hello "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := parseContent(context.Background(), []byte(tt.stream))
			if len(pc.pieces) != 1 {
				t.Fatalf("expected 1 piece, got %d", len(pc.pieces))
			}
			if pc.pieces[0].text != tt.want {
				t.Errorf("text = %q, want %q", pc.pieces[0].text, tt.want)
			}
		})
	}
}

func TestParseContentSkipsInlineImage(t *testing.T) {
	stream := []byte("BT /F1 10 Tf (before) Tj ET BI /W 4 /H 4 ID \x00\x01\x02\x03 EI BT /F1 10 Tf (after) Tj ET")
	pc := parseContent(context.Background(), stream)

	if len(pc.pieces) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(pc.pieces))
	}
	if pc.pieces[0].text != "before" || pc.pieces[1].text != "after" {
		t.Errorf("pieces = %q, %q", pc.pieces[0].text, pc.pieces[1].text)
	}
}

func TestParseContentMalformedNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("Q Q Q ET"),
		[]byte("(unterminated"),
		[]byte("<< /Broken"),
		[]byte("BT [ (open array) Tj"),
		[]byte("1 2 cm"),
		[]byte("% just a comment"),
	}
	for _, in := range inputs {
		pc := parseContent(context.Background(), in)
		if pc == nil {
			t.Fatalf("parseContent(%q) returned nil", in)
		}
	}
}

func TestParseContentStopsWhenCancelled(t *testing.T) {
	stream := []byte(strings.Repeat("BT (a) Tj ET ", 3000))

	full := parseContent(context.Background(), stream)
	if len(full.pieces) != 3000 {
		t.Fatalf("full parse pieces = %d, want 3000", len(full.pieces))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	partial := parseContent(ctx, stream)
	if len(partial.pieces) >= len(full.pieces) {
		t.Errorf("cancelled parse pieces = %d, want fewer than %d",
			len(partial.pieces), len(full.pieces))
	}
}
