package rpn

import "github.com/nvr-ai/go-rpn/images"

// Anchor is one candidate box of the lattice, identified by its feature-map cell and type.
type Anchor struct {
	Row, Col, Type int
	// Box is the anchor geometry in resized image coordinates.
	Box images.Box
}

// EnumerateAnchors generates every anchor that lies fully inside the resized image.
//
// Anchors are centered on stride*(index+0.5) of each feature-map cell. Any
// anchor with an edge outside [0, width] x [0, height] is dropped, never
// clipped, so partially visible anchors take no part in matching.
//
// Arguments:
//   - resized: The resized image dimensions.
//   - stride: The feature-map downsampling ratio.
//   - spec: The anchor sizes and ratios.
//
// Returns:
//   - []Anchor: Surviving anchors ordered by row, column, then anchor type.
func EnumerateAnchors(resized images.Size, stride int, spec AnchorSpec) []Anchor {
	if stride <= 0 || !resized.Valid() {
		return nil
	}
	rows, cols := resized.Height/stride, resized.Width/stride
	types := spec.Types()
	w, h := float64(resized.Width), float64(resized.Height)

	anchors := make([]Anchor, 0, rows*cols*types)
	for jy := 0; jy < rows; jy++ {
		cy := float64(stride) * (float64(jy) + 0.5)
		for ix := 0; ix < cols; ix++ {
			cx := float64(stride) * (float64(ix) + 0.5)
			for t := 0; t < types; t++ {
				aw, ah := spec.Extent(t)
				box := images.Box{X1: cx - aw/2, Y1: cy - ah/2, X2: cx + aw/2, Y2: cy + ah/2}
				if !box.Within(w, h) {
					continue
				}
				anchors = append(anchors, Anchor{Row: jy, Col: ix, Type: t, Box: box})
			}
		}
	}

	return anchors
}
