// Package model defines the data types shared by every pipeline stage:
// page geometry, raw extraction records, reconciled runs, structural nodes
// and the document tree.
package model

import "math"

// BBox is an axis-aligned rectangle in page points with the origin at the
// top-left corner of the page. W and H are always non-negative.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// NewBBox builds a box from two corner points, normalizing so that W and H
// are non-negative regardless of argument order.
func NewBBox(x0, y0, x1, y1 float64) BBox {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return BBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Left returns the x coordinate of the left edge.
func (b BBox) Left() float64 { return b.X }

// Right returns the x coordinate of the right edge.
func (b BBox) Right() float64 { return b.X + b.W }

// Top returns the y coordinate of the top edge.
func (b BBox) Top() float64 { return b.Y }

// Bottom returns the y coordinate of the bottom edge.
func (b BBox) Bottom() float64 { return b.Y + b.H }

// CenterX returns the x coordinate of the box center.
func (b BBox) CenterX() float64 { return b.X + b.W/2 }

// CenterY returns the y coordinate of the box center.
func (b BBox) CenterY() float64 { return b.Y + b.H/2 }

// Area returns the area of the box.
func (b BBox) Area() float64 { return b.W * b.H }

// IsEmpty reports whether the box has zero area.
func (b BBox) IsEmpty() bool { return b.W <= 0 || b.H <= 0 }

// Intersects reports whether b and other overlap.
func (b BBox) Intersects(other BBox) bool {
	return b.X < other.Right() && b.Right() > other.X &&
		b.Y < other.Bottom() && b.Bottom() > other.Y
}

// Intersection returns the overlapping region of b and other, or a zero
// box when they do not overlap.
func (b BBox) Intersection(other BBox) BBox {
	x0 := math.Max(b.X, other.X)
	y0 := math.Max(b.Y, other.Y)
	x1 := math.Min(b.Right(), other.Right())
	y1 := math.Min(b.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return BBox{}
	}
	return BBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest box containing both b and other.
func (b BBox) Union(other BBox) BBox {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	x0 := math.Min(b.X, other.X)
	y0 := math.Min(b.Y, other.Y)
	x1 := math.Max(b.Right(), other.Right())
	y1 := math.Max(b.Bottom(), other.Bottom())
	return BBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// IoU returns intersection area over union area, in [0, 1].
func (b BBox) IoU(other BBox) float64 {
	inter := b.Intersection(other).Area()
	if inter <= 0 {
		return 0
	}
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// OverlapRatio returns the intersection area divided by the smaller of the
// two box areas. A value of 1 means the smaller box lies entirely inside
// the larger one.
func (b BBox) OverlapRatio(other BBox) float64 {
	inter := b.Intersection(other).Area()
	if inter <= 0 {
		return 0
	}
	minArea := math.Min(b.Area(), other.Area())
	if minArea <= 0 {
		return 0
	}
	return inter / minArea
}

// ContainedIn returns the fraction of b's own area that lies inside other.
func (b BBox) ContainedIn(other BBox) float64 {
	if b.Area() <= 0 {
		return 0
	}
	return b.Intersection(other).Area() / b.Area()
}

// Contains reports whether other lies entirely within b, allowing eps
// points of slack on every edge.
func (b BBox) Contains(other BBox, eps float64) bool {
	return other.X >= b.X-eps && other.Y >= b.Y-eps &&
		other.Right() <= b.Right()+eps && other.Bottom() <= b.Bottom()+eps
}

// ContainsPoint reports whether the point (x, y) lies within b.
func (b BBox) ContainsPoint(x, y float64) bool {
	return x >= b.X && x <= b.Right() && y >= b.Y && y <= b.Bottom()
}

// CenterDistance returns the euclidean distance between the centers of
// b and other.
func (b BBox) CenterDistance(other BBox) float64 {
	dx := b.CenterX() - other.CenterX()
	dy := b.CenterY() - other.CenterY()
	return math.Sqrt(dx*dx + dy*dy)
}

// Clamp confines the box to the page rectangle [0,0,pageW,pageH] and
// clips negative extents to zero.
func (b BBox) Clamp(pageW, pageH float64) BBox {
	x0 := math.Max(0, math.Min(b.X, pageW))
	y0 := math.Max(0, math.Min(b.Y, pageH))
	x1 := math.Max(x0, math.Min(b.Right(), pageW))
	y1 := math.Max(y0, math.Min(b.Bottom(), pageH))
	return BBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
