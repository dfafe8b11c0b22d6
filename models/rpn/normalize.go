package rpn

import (
	"github.com/nvr-ai/go-rpn/dataset"
	"github.com/nvr-ai/go-rpn/images"
)

// NormalizedBox is a ground-truth box rescaled to resized image coordinates.
type NormalizedBox struct {
	// Index is the position of the box in the annotation.
	Index int
	Class string
	Box   images.Box
	// Excluded is set for background and degenerate boxes, which never match.
	Excluded bool
}

// NormalizeBoxes rescales ground-truth boxes from original to resized coordinates.
//
// Each axis is scaled independently. The result keeps one entry per input box
// so that per-box bookkeeping stays aligned with the annotation.
//
// Arguments:
//   - ann: The image descriptor with boxes in original pixel coordinates.
//   - resized: The resized image dimensions.
//   - background: The class tag that marks background boxes.
//
// Returns:
//   - []NormalizedBox: The rescaled boxes, in annotation order.
func NormalizeBoxes(ann dataset.Annotation, resized images.Size, background string) []NormalizedBox {
	sx := float64(resized.Width) / float64(ann.Width)
	sy := float64(resized.Height) / float64(ann.Height)

	boxes := make([]NormalizedBox, len(ann.Boxes))
	for i, gt := range ann.Boxes {
		box := gt.Box().Scale(sx, sy)
		boxes[i] = NormalizedBox{
			Index:    i,
			Class:    gt.Class,
			Box:      box,
			Excluded: gt.Class == background || box.Degenerate(),
		}
	}

	return boxes
}
