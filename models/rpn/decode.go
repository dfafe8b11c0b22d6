package rpn

import (
	"github.com/nvr-ai/go-rpn/images"
	"github.com/nvr-ai/go-rpn/models/postprocess"
)

// DecodeTargets turns the positive cells of the packed tensors back into boxes.
//
// Every anchor whose positive bit is set is shifted by its stored delta, after
// dividing out the regression scale. The score of a proposal is the IoU between
// the anchor and the decoded box, so non-maximum suppression keeps the best
// matching anchor of each ground-truth box.
//
// Arguments:
//   - t: Targets returned by Calculate.
//   - cfg: The configuration t was calculated with.
//
// Returns:
//   - The decoded proposals in anchor enumeration order.
func DecodeTargets(t *Targets, cfg Config) []postprocess.Proposal {
	cls := t.Classification.Data().([]float32)
	regr := t.Regression.Data().([]float32)
	a := t.Grid.Types
	scale := cfg.regressionScale()

	var proposals []postprocess.Proposal
	for _, anchor := range t.Anchors {
		pos := anchor.Row*t.Grid.Cols + anchor.Col
		if cls[pos*2*a+a+anchor.Type] != 1 {
			continue
		}

		off := pos*8*a + 4*a + 4*anchor.Type
		d := images.Delta{
			DX: float64(regr[off]) / scale,
			DY: float64(regr[off+1]) / scale,
			DW: float64(regr[off+2]) / scale,
			DH: float64(regr[off+3]) / scale,
		}
		box := images.ApplyDelta(anchor.Box, d)
		proposals = append(proposals, postprocess.Proposal{
			Box:   box,
			Score: images.CalculateIoU(anchor.Box, box),
			Row:   anchor.Row,
			Col:   anchor.Col,
			Type:  anchor.Type,
		})
	}
	return proposals
}

// RecoverBoxes decodes the targets and suppresses duplicate proposals, which
// leaves one box per covered ground-truth box when the boxes do not overlap.
func RecoverBoxes(t *Targets, cfg Config, iouThreshold float64) []images.Box {
	kept := postprocess.ApplyGreedyNMS(DecodeTargets(t, cfg), &postprocess.NMSConfig{IoUThreshold: iouThreshold})
	boxes := make([]images.Box, len(kept))
	for i, p := range kept {
		boxes[i] = p.Box
	}
	return boxes
}
