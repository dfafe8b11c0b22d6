package rpn

import "github.com/nvr-ai/go-rpn/images"

// assignFallback makes sure every ground-truth box ends up as the regression
// target of at least one positive anchor: its best match at any threshold.
// This covers boxes no anchor matched above MaxOverlap and boxes whose
// positive anchors all regress to another box with a higher IoU.
//
// The best anchor takes the positive label and the box's delta whatever it held
// before, unless it is the only cell regressing to another box. In that case
// the next best anchor not holding another box's only target is used. Boxes
// no anchor overlaps are left unmatched.
//
// Returns:
//   - assigned: The number of boxes that received a fallback anchor.
//   - unmatched: The number of eligible boxes left without a positive anchor.
func assignFallback(grid *MatchGrid, anchors []Anchor, boxes []NormalizedBox, res matchResult) (assigned, unmatched int) {
	owned := make([]int, len(boxes))
	for _, o := range grid.Owner {
		if o != noOwner {
			owned[o]++
		}
	}

	for i, b := range boxes {
		if b.Excluded || owned[i] > 0 {
			continue
		}

		m := res.best[i]
		if !m.Found {
			unmatched++
			continue
		}
		if !claimable(grid, owned, m.Cell) {
			var ok bool
			if m, ok = bestClaimable(grid, owned, anchors, b.Box); !ok {
				unmatched++
				continue
			}
		}

		if prev := grid.Owner[m.Cell]; prev != noOwner {
			owned[prev]--
		}
		grid.Valid[m.Cell] = 1
		grid.Labels[m.Cell] = LabelPositive
		grid.Deltas[m.Cell] = m.Delta
		grid.Owner[m.Cell] = i
		owned[i]++
		assigned++
	}

	return assigned, unmatched
}

// claimable reports whether taking cell leaves its current owner, if any, with another target.
func claimable(grid *MatchGrid, owned []int, cell int) bool {
	o := grid.Owner[cell]
	return o == noOwner || owned[o] > 1
}

func bestClaimable(grid *MatchGrid, owned []int, anchors []Anchor, box images.Box) (BestMatch, bool) {
	var best BestMatch
	for _, a := range anchors {
		cell := grid.Index(a.Row, a.Col, a.Type)
		if !claimable(grid, owned, cell) {
			continue
		}
		if iou := images.CalculateIoU(a.Box, box); iou > best.IoU {
			best = BestMatch{IoU: iou, Cell: cell, Delta: images.RegressionDelta(a.Box, box), Found: true}
		}
	}
	return best, best.Found
}
