// Package images - Box geometry shared by anchor matching and proposal decoding.
package images

import "math"

// iouEpsilon keeps the IoU division finite when both boxes collapse to a point.
const iouEpsilon = 1e-6

// Box is an axis-aligned box in a stated coordinate space.
type Box struct {
	// X1,Y1 is the top-left corner, X2,Y2 the bottom-right corner.
	X1, Y1, X2, Y2 float64
}

// Delta is the regression target that transforms an anchor into a ground-truth box.
type Delta struct {
	// DX, DY are the center offsets normalized by the anchor width and height.
	DX, DY float64
	// DW, DH are the natural log of the box/anchor width and height ratios.
	DW, DH float64
}

// Degenerate reports whether the box has no positive extent on either axis.
func (b Box) Degenerate() bool {
	return b.X1 >= b.X2 || b.Y1 >= b.Y2
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the area of the box, or 0 for a degenerate box.
func (b Box) Area() float64 {
	if b.Degenerate() {
		return 0
	}
	return b.Width() * b.Height()
}

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Scale returns the box with each axis multiplied independently.
func (b Box) Scale(sx, sy float64) Box {
	return Box{X1: b.X1 * sx, Y1: b.Y1 * sy, X2: b.X2 * sx, Y2: b.Y2 * sy}
}

// Within reports whether the box lies entirely inside [0, width] x [0, height].
func (b Box) Within(width, height float64) bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X2 <= width && b.Y2 <= height
}

// CalculateIoU measures the overlap of two boxes as intersection over union.
//
// The result is in [0, 1]. Degenerate boxes and disjoint boxes (including boxes
// that only share an edge) yield 0. The union is padded by a small epsilon, so
// identical boxes score just under 1.
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - float64: The IoU score. CalculateIoU(a, b) == CalculateIoU(b, a).
//
// Example Usage:
// ```go
//
//	a := Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Box{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	score := CalculateIoU(a, b) // intersection 25, union 175, score ~0.142857
//
// ```
func CalculateIoU(a, b Box) float64 {
	if a.Degenerate() || b.Degenerate() {
		return 0
	}

	// The overlap starts where both boxes have begun and ends where the first one ends.
	interW := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	interH := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	// Inclusion-exclusion: Union(A, B) = Area(A) + Area(B) - Intersection(A, B).
	union := a.Area() + b.Area() - inter

	return inter / (union + iouEpsilon)
}

// RegressionDelta computes the target that moves and rescales anchor onto box.
//
// The anchor must have strictly positive width and height; anchors produced by
// the enumerator always do.
//
// Arguments:
//   - anchor: The reference anchor box.
//   - box: The ground-truth box, in the same coordinate space.
//
// Returns:
//   - Delta: Center offsets normalized by anchor size and log size ratios.
func RegressionDelta(anchor, box Box) Delta {
	acx, acy := anchor.Center()
	cx, cy := box.Center()
	aw, ah := anchor.Width(), anchor.Height()

	return Delta{
		DX: (cx - acx) / aw,
		DY: (cy - acy) / ah,
		DW: math.Log(box.Width() / aw),
		DH: math.Log(box.Height() / ah),
	}
}

// ApplyDelta decodes a regression delta against an anchor, the inverse of RegressionDelta.
func ApplyDelta(anchor Box, d Delta) Box {
	acx, acy := anchor.Center()
	aw, ah := anchor.Width(), anchor.Height()

	cx := d.DX*aw + acx
	cy := d.DY*ah + acy
	w := math.Exp(d.DW) * aw
	h := math.Exp(d.DH) * ah

	return Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}
