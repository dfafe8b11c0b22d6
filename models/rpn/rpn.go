package rpn

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-rpn/dataset"
	"github.com/nvr-ai/go-rpn/images"
)

// Stats summarizes the targets produced for one image.
type Stats struct {
	// Boxes is the number of ground-truth boxes eligible for matching.
	Boxes int `json:"boxes"`
	// Anchors is the number of anchors that survived the image-bounds check.
	Anchors int `json:"anchors"`
	// Positive and Negative count the valid cells of each label after sampling.
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	// Neutral counts the cells excluded by the overlap thresholds.
	Neutral int `json:"neutral"`
	// Fallback is the number of boxes covered by the fallback pass.
	Fallback int `json:"fallback"`
	// Unmatched is the number of eligible boxes no anchor could cover.
	Unmatched int `json:"unmatched"`
	// Sampled is the number of cells the sampler removed from the loss.
	Sampled int `json:"sampled"`
}

// Targets is the result of Calculate for one image.
type Targets struct {
	// Classification is the [rows, cols, 2A] float32 tensor.
	Classification *tensor.Dense
	// Regression is the [rows, cols, 8A] float32 tensor.
	Regression *tensor.Dense
	// Grid is the per-cell assignment the tensors were packed from.
	Grid *MatchGrid
	// Anchors are the surviving anchors, in enumeration order.
	Anchors []Anchor
	// Boxes are the ground-truth boxes in resized coordinates.
	Boxes []NormalizedBox
	Stats Stats
}

// NewSource returns a deterministic random source for one labeling call.
//
// A batch derives one stream per image from a shared seed, so results do not
// depend on the order images are scheduled in.
func NewSource(seed, stream uint64) rand.Source {
	return rand.NewPCG(seed, stream)
}

// Calculate computes the RPN training targets for one image.
//
// The ground-truth boxes are rescaled to the resized image, matched against the
// anchor lattice, topped up by the fallback pass so every reachable box has a
// positive anchor, subsampled to the region cap and packed into tensors.
//
// Arguments:
//   - ann: The image descriptor, boxes in original pixel coordinates.
//   - resized: The dimensions the image is resized to before entering the network.
//   - cfg: The anchor and threshold configuration.
//   - src: The random source driving the sampler.
//
// Returns:
//   - *Targets: The classification and regression tensors with their grid.
//   - error: ErrInvalidConfig, wrapped, when cfg or the image dimensions are rejected.
//
// @example
//
//	cfg := rpn.DefaultConfig()
//	targets, err := rpn.Calculate(ann, images.Size{Width: 800, Height: 600}, cfg, rpn.NewSource(42, 0))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(targets.Classification.Shape()) // (37, 50, 18)
func Calculate(ann dataset.Annotation, resized images.Size, cfg Config, src rand.Source) (*Targets, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateImage(ann, resized); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "random source is required")
	}

	fm := cfg.FeatureMapSize(resized)
	boxes := NormalizeBoxes(ann, resized, cfg.backgroundClass())
	anchors := EnumerateAnchors(resized, cfg.Stride, cfg.Anchors)

	grid := NewMatchGrid(fm.Height, fm.Width, cfg.Anchors.Types())
	res := matchAnchors(grid, anchors, boxes, cfg)
	assigned, unmatched := assignFallback(grid, anchors, boxes, res)
	sampled := sampleRegions(grid, cfg.RegionCap, src)
	cls, regr := encodeTargets(grid, cfg.regressionScale())

	eligible := 0
	for _, b := range boxes {
		if !b.Excluded {
			eligible++
		}
	}

	return &Targets{
		Classification: cls,
		Regression:     regr,
		Grid:           grid,
		Anchors:        anchors,
		Boxes:          boxes,
		Stats: Stats{
			Boxes:     eligible,
			Anchors:   len(anchors),
			Positive:  grid.Count(LabelPositive, true),
			Negative:  grid.Count(LabelNegative, true),
			Neutral:   grid.Count(LabelNeutral, false),
			Fallback:  assigned,
			Unmatched: unmatched,
			Sampled:   sampled,
		},
	}, nil
}
