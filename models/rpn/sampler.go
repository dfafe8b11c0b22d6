package rpn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// sampleRegions caps the number of cells that contribute to the loss.
//
// At most regionCap/2 positives stay valid; negatives then fill the rest of the
// budget. Surplus cells are chosen uniformly without replacement from src and
// only lose their validity, their labels are kept. Neutral cells are never
// touched and no cell becomes valid.
//
// Returns:
//   - demoted: The number of cells whose validity was cleared.
func sampleRegions(grid *MatchGrid, regionCap int, src rand.Source) int {
	var pos, neg []int
	for cell, l := range grid.Labels {
		if grid.Valid[cell] != 1 {
			continue
		}
		switch l {
		case LabelPositive:
			pos = append(pos, cell)
		case LabelNegative:
			neg = append(neg, cell)
		}
	}

	demoted := 0
	numPos := len(pos)
	if half := regionCap / 2; numPos > half {
		demoted += invalidate(grid, pos, numPos-half, src)
		numPos = half
	}
	if excess := len(neg) + numPos - regionCap; excess > 0 {
		demoted += invalidate(grid, neg, excess, src)
	}

	return demoted
}

// invalidate clears the validity of n cells drawn uniformly from cells.
func invalidate(grid *MatchGrid, cells []int, n int, src rand.Source) int {
	idx := make([]int, n)
	sampleuv.WithoutReplacement(idx, len(cells), src)
	for _, i := range idx {
		grid.Valid[cells[i]] = 0
	}
	return n
}
