package rpn

import "gorgonia.org/tensor"

// encodeTargets packs the grid into the classification and regression tensors.
//
// With A anchor types per cell the classification tensor is [rows, cols, 2A]:
// validity bits for every type, then the positive-label bits. The regression
// tensor is [rows, cols, 8A]: a loss mask repeated four times per type, then
// the four deltas per type. The mask is set only for valid positive cells.
func encodeTargets(grid *MatchGrid, scale float64) (*tensor.Dense, *tensor.Dense) {
	a := grid.Types
	cls := make([]float32, grid.Rows*grid.Cols*2*a)
	regr := make([]float32, grid.Rows*grid.Cols*8*a)

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			pos := row*grid.Cols + col
			clsBase := pos * 2 * a
			regrBase := pos * 8 * a

			for t := 0; t < a; t++ {
				cell := grid.Index(row, col, t)
				valid := grid.Valid[cell] == 1
				positive := grid.Labels[cell] == LabelPositive

				if valid {
					cls[clsBase+t] = 1
				}
				if positive {
					cls[clsBase+a+t] = 1
				}
				if valid && positive {
					for k := 0; k < 4; k++ {
						regr[regrBase+4*t+k] = 1
					}
				}
				if positive {
					d := grid.Deltas[cell]
					off := regrBase + 4*a + 4*t
					regr[off] = float32(d.DX * scale)
					regr[off+1] = float32(d.DY * scale)
					regr[off+2] = float32(d.DW * scale)
					regr[off+3] = float32(d.DH * scale)
				}
			}
		}
	}

	clsT := tensor.New(tensor.WithShape(grid.Rows, grid.Cols, 2*a), tensor.WithBacking(cls))
	regrT := tensor.New(tensor.WithShape(grid.Rows, grid.Cols, 8*a), tensor.WithBacking(regr))
	return clsT, regrT
}
