package model

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBBoxEdges(t *testing.T) {
	b := BBox{X: 10, Y: 20, W: 30, H: 40}

	if got := b.Left(); got != 10 {
		t.Errorf("Left() = %v, want 10", got)
	}
	if got := b.Right(); got != 40 {
		t.Errorf("Right() = %v, want 40", got)
	}
	if got := b.Top(); got != 20 {
		t.Errorf("Top() = %v, want 20", got)
	}
	if got := b.Bottom(); got != 60 {
		t.Errorf("Bottom() = %v, want 60", got)
	}
	if got := b.CenterX(); got != 25 {
		t.Errorf("CenterX() = %v, want 25", got)
	}
	if got := b.CenterY(); got != 40 {
		t.Errorf("CenterY() = %v, want 40", got)
	}
	if got := b.Area(); got != 1200 {
		t.Errorf("Area() = %v, want 1200", got)
	}
}

func TestNewBBoxNormalizes(t *testing.T) {
	b := NewBBox(40, 60, 10, 20)
	want := BBox{X: 10, Y: 20, W: 30, H: 40}
	if b != want {
		t.Errorf("NewBBox = %+v, want %+v", b, want)
	}
}

func TestBBoxIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b BBox
		want bool
	}{
		{"overlapping", BBox{0, 0, 10, 10}, BBox{5, 5, 10, 10}, true},
		{"contained", BBox{0, 0, 100, 100}, BBox{10, 10, 5, 5}, true},
		{"disjoint", BBox{0, 0, 10, 10}, BBox{20, 20, 10, 10}, false},
		{"edge touching", BBox{0, 0, 10, 10}, BBox{10, 0, 10, 10}, false},
		{"vertical only", BBox{0, 0, 10, 10}, BBox{0, 20, 10, 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Intersects(tt.a); got != tt.want {
				t.Errorf("Intersects() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBBoxIntersection(t *testing.T) {
	a := BBox{0, 0, 10, 10}
	b := BBox{5, 5, 10, 10}

	got := a.Intersection(b)
	want := BBox{5, 5, 5, 5}
	if got != want {
		t.Errorf("Intersection() = %+v, want %+v", got, want)
	}

	if got := a.Intersection(BBox{50, 50, 5, 5}); !got.IsEmpty() {
		t.Errorf("disjoint Intersection() = %+v, want empty", got)
	}
}

func TestBBoxUnion(t *testing.T) {
	a := BBox{0, 0, 10, 10}
	b := BBox{20, 5, 10, 10}

	got := a.Union(b)
	want := BBox{0, 0, 30, 15}
	if got != want {
		t.Errorf("Union() = %+v, want %+v", got, want)
	}

	if got := a.Union(BBox{}); got != a {
		t.Errorf("Union with empty = %+v, want %+v", got, a)
	}
	if got := (BBox{}).Union(b); got != b {
		t.Errorf("empty Union = %+v, want %+v", got, b)
	}
}

func TestBBoxIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b BBox
		want float64
	}{
		{"identical", BBox{0, 0, 10, 10}, BBox{0, 0, 10, 10}, 1},
		{"half overlap", BBox{0, 0, 10, 10}, BBox{5, 0, 10, 10}, 50.0 / 150.0},
		{"disjoint", BBox{0, 0, 10, 10}, BBox{30, 30, 10, 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.IoU(tt.b); !almostEqual(got, tt.want) {
				t.Errorf("IoU() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBBoxOverlapRatio(t *testing.T) {
	big := BBox{0, 0, 100, 100}
	small := BBox{10, 10, 10, 10}

	if got := big.OverlapRatio(small); !almostEqual(got, 1) {
		t.Errorf("OverlapRatio(contained) = %v, want 1", got)
	}
	if got := small.OverlapRatio(big); !almostEqual(got, 1) {
		t.Errorf("OverlapRatio symmetric = %v, want 1", got)
	}

	a := BBox{0, 0, 10, 10}
	b := BBox{5, 0, 10, 10}
	if got := a.OverlapRatio(b); !almostEqual(got, 0.5) {
		t.Errorf("OverlapRatio(half) = %v, want 0.5", got)
	}
}

func TestBBoxContainedIn(t *testing.T) {
	run := BBox{10, 10, 10, 10}
	table := BBox{0, 0, 100, 100}

	if got := run.ContainedIn(table); !almostEqual(got, 1) {
		t.Errorf("ContainedIn(full) = %v, want 1", got)
	}

	straddling := BBox{95, 10, 10, 10}
	if got := straddling.ContainedIn(table); !almostEqual(got, 0.5) {
		t.Errorf("ContainedIn(straddling) = %v, want 0.5", got)
	}
}

func TestBBoxContains(t *testing.T) {
	outer := BBox{10, 10, 100, 100}

	tests := []struct {
		name  string
		inner BBox
		eps   float64
		want  bool
	}{
		{"fully inside", BBox{20, 20, 10, 10}, 0, true},
		{"exact fit", BBox{10, 10, 100, 100}, 0, true},
		{"poking out", BBox{105, 20, 10, 10}, 0, false},
		{"within slack", BBox{9.5, 10, 100, 100}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.Contains(tt.inner, tt.eps); got != tt.want {
				t.Errorf("Contains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBBoxClamp(t *testing.T) {
	tests := []struct {
		name string
		in   BBox
		want BBox
	}{
		{"inside untouched", BBox{10, 10, 50, 50}, BBox{10, 10, 50, 50}},
		{"negative origin", BBox{-5, -5, 50, 50}, BBox{0, 0, 45, 45}},
		{"overflows page", BBox{550, 750, 100, 100}, BBox{550, 750, 50, 50}},
		{"fully outside", BBox{700, 900, 10, 10}, BBox{600, 800, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(600, 800); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBBoxCenterDistance(t *testing.T) {
	a := BBox{0, 0, 10, 10}
	b := BBox{30, 40, 10, 10}
	if got := a.CenterDistance(b); !almostEqual(got, 50) {
		t.Errorf("CenterDistance() = %v, want 50", got)
	}
}
