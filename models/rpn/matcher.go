package rpn

import "github.com/nvr-ai/go-rpn/images"

// noOwner marks a grid cell whose delta does not point at any ground-truth box.
const noOwner = -1

// MatchGrid holds the per-anchor assignment state for one image.
//
// Cells are laid out row-major over (row, column, anchor type). Cells of
// anchors dropped by the enumerator stay negative with validity 0.
type MatchGrid struct {
	Rows, Cols, Types int
	// Valid is 1 where the cell contributes to the loss.
	Valid []uint8
	// Labels is the assigned label of each cell.
	Labels []Label
	// Deltas is the regression target of positive cells.
	Deltas []images.Delta
	// Owner is the index of the ground-truth box a positive cell regresses to, or -1.
	Owner []int
}

// NewMatchGrid allocates an all-negative, all-invalid grid.
func NewMatchGrid(rows, cols, types int) *MatchGrid {
	n := rows * cols * types
	owner := make([]int, n)
	for i := range owner {
		owner[i] = noOwner
	}
	return &MatchGrid{
		Rows:   rows,
		Cols:   cols,
		Types:  types,
		Valid:  make([]uint8, n),
		Labels: make([]Label, n),
		Deltas: make([]images.Delta, n),
		Owner:  owner,
	}
}

// Index returns the cell index of (row, col, anchor type).
func (g *MatchGrid) Index(row, col, t int) int {
	return (row*g.Cols+col)*g.Types + t
}

// Cells returns the number of cells in the grid.
func (g *MatchGrid) Cells() int {
	return len(g.Labels)
}

// Count returns the number of cells with the given label and validity.
func (g *MatchGrid) Count(label Label, valid bool) int {
	n := 0
	for i, l := range g.Labels {
		if l == label && (g.Valid[i] == 1) == valid {
			n++
		}
	}
	return n
}

// BestMatch is the highest-overlap anchor seen for one ground-truth box, at any threshold.
type BestMatch struct {
	IoU float64
	// Cell is the grid index of the anchor that reached IoU.
	Cell  int
	Delta images.Delta
	// Found is false until some anchor overlaps the box.
	Found bool
}

// matchResult carries the per-box bookkeeping produced by the matcher.
type matchResult struct {
	best []BestMatch
}

// matchAnchors labels every anchor against every eligible ground-truth box.
//
// An anchor's label is the highest label any box gives it, so the result does
// not depend on box order. A positive anchor regresses to the box with the
// highest IoU among the ones that made it positive.
func matchAnchors(grid *MatchGrid, anchors []Anchor, boxes []NormalizedBox, cfg Config) matchResult {
	res := matchResult{
		best: make([]BestMatch, len(boxes)),
	}

	for _, a := range anchors {
		cell := grid.Index(a.Row, a.Col, a.Type)
		label := LabelNegative
		bestIoU := 0.0
		owner := noOwner
		var delta images.Delta

		for i, b := range boxes {
			if b.Excluded {
				continue
			}
			iou := images.CalculateIoU(a.Box, b.Box)
			if iou == 0 {
				continue
			}
			d := images.RegressionDelta(a.Box, b.Box)

			if iou > res.best[i].IoU {
				res.best[i] = BestMatch{IoU: iou, Cell: cell, Delta: d, Found: true}
			}

			level := labelForIoU(iou, cfg.MinOverlap, cfg.MaxOverlap)
			if level == LabelPositive && iou > bestIoU {
				bestIoU, owner, delta = iou, i, d
			}
			label = label.Promote(level)
		}

		grid.Labels[cell] = label
		if label != LabelNeutral {
			grid.Valid[cell] = 1
		}
		if label == LabelPositive {
			grid.Deltas[cell] = delta
			grid.Owner[cell] = owner
		}
	}

	return res
}
