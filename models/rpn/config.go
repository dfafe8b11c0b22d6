// Package rpn - Anchor target generation for region proposal network training.
//
// Calculate turns the ground-truth boxes of one image into the classification
// and regression tensors consumed by an anchor-based detection head. The
// transform is pure: all state is local to the call and randomness comes from
// the supplied source, so images can be labeled in parallel.
package rpn

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-rpn/dataset"
	"github.com/nvr-ai/go-rpn/images"
)

// ErrInvalidConfig is returned, wrapped with the offending field, when a
// configuration or image descriptor is rejected before matching begins.
var ErrInvalidConfig = errors.New("invalid rpn config")

// Ratio is an anchor aspect expressed as width and height fractions of the anchor size.
type Ratio struct {
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// AnchorSpec lists the anchor sizes and aspect ratios placed on every feature-map cell.
//
// The anchor-type index is sizeIndex*len(Ratios)+ratioIndex. That layout is
// part of the tensor contract with the model consuming the targets.
type AnchorSpec struct {
	Sizes  []float64 `json:"sizes"  yaml:"sizes"`
	Ratios []Ratio   `json:"ratios" yaml:"ratios"`
}

// Types returns the number of anchor types per feature-map cell.
func (s AnchorSpec) Types() int {
	return len(s.Sizes) * len(s.Ratios)
}

// TypeIndex returns the depth index of the anchor built from Sizes[size] and Ratios[ratio].
func (s AnchorSpec) TypeIndex(size, ratio int) int {
	return size*len(s.Ratios) + ratio
}

// Extent returns the width and height of an anchor type.
func (s AnchorSpec) Extent(t int) (float64, float64) {
	size := s.Sizes[t/len(s.Ratios)]
	ratio := s.Ratios[t%len(s.Ratios)]
	return size * ratio.W, size * ratio.H
}

// Config is the immutable per-call configuration of the target generator.
type Config struct {
	// Anchors describes the anchor lattice.
	Anchors AnchorSpec `json:"anchors" yaml:"anchors"`
	// Stride is the downsampling ratio between the resized image and the feature map.
	Stride int `json:"stride" yaml:"stride"`
	// MinOverlap is the IoU at or below which an anchor stays negative.
	MinOverlap float64 `json:"rpn_min_overlap" yaml:"rpn_min_overlap"`
	// MaxOverlap is the IoU above which an anchor becomes positive.
	MaxOverlap float64 `json:"rpn_max_overlap" yaml:"rpn_max_overlap"`
	// RegionCap is the number of anchors allowed to contribute to the loss.
	RegionCap int `json:"region_cap" yaml:"region_cap"`
	// BackgroundClass is the class tag excluded from matching. Empty means dataset.BackgroundClass.
	BackgroundClass string `json:"background_class,omitempty" yaml:"background_class,omitempty"`
	// RegressionScale multiplies the encoded deltas. Zero means unscaled.
	RegressionScale float64 `json:"regression_scale,omitempty" yaml:"regression_scale,omitempty"`
}

// DefaultConfig returns the conventional Faster R-CNN settings for a stride-16 backbone.
//
// Returns:
//   - Config: Three sizes, three ratios, 0.3/0.7 overlap thresholds and a 256 region cap.
func DefaultConfig() Config {
	return Config{
		Anchors: AnchorSpec{
			Sizes: []float64{128, 256, 512},
			Ratios: []Ratio{
				{W: 1, H: 1},
				{W: 1 / math.Sqrt2, H: 2 / math.Sqrt2},
				{W: 2 / math.Sqrt2, H: 1 / math.Sqrt2},
			},
		},
		Stride:     16,
		MinOverlap: 0.3,
		MaxOverlap: 0.7,
		RegionCap:  256,
	}
}

// Validate rejects configurations that cannot produce well-formed targets.
func (c Config) Validate() error {
	if len(c.Anchors.Sizes) == 0 {
		return errors.Wrap(ErrInvalidConfig, "anchor sizes must not be empty")
	}
	if len(c.Anchors.Ratios) == 0 {
		return errors.Wrap(ErrInvalidConfig, "anchor ratios must not be empty")
	}
	for i, size := range c.Anchors.Sizes {
		if !positiveFinite(size) {
			return errors.Wrapf(ErrInvalidConfig, "anchor size %d is %v, must be positive", i, size)
		}
	}
	for i, r := range c.Anchors.Ratios {
		if !positiveFinite(r.W) || !positiveFinite(r.H) {
			return errors.Wrapf(ErrInvalidConfig, "anchor ratio %d is %vx%v, both fractions must be positive", i, r.W, r.H)
		}
	}
	if c.Stride <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "stride %d must be positive", c.Stride)
	}
	if !(c.MinOverlap >= 0 && c.MinOverlap < c.MaxOverlap && c.MaxOverlap <= 1) {
		return errors.Wrapf(ErrInvalidConfig, "overlap thresholds min=%v max=%v must satisfy 0 <= min < max <= 1",
			c.MinOverlap, c.MaxOverlap)
	}
	if c.RegionCap <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "region cap %d must be positive", c.RegionCap)
	}
	if c.RegressionScale < 0 || math.IsNaN(c.RegressionScale) || math.IsInf(c.RegressionScale, 0) {
		return errors.Wrapf(ErrInvalidConfig, "regression scale %v must be positive", c.RegressionScale)
	}
	return nil
}

// FeatureMapSize returns the feature-map dimensions for a resized image, using floor division.
func (c Config) FeatureMapSize(resized images.Size) images.Size {
	if c.Stride <= 0 {
		return images.Size{}
	}
	return images.Size{Width: resized.Width / c.Stride, Height: resized.Height / c.Stride}
}

func (c Config) validateImage(ann dataset.Annotation, resized images.Size) error {
	if !ann.Size().Valid() {
		return errors.Wrapf(ErrInvalidConfig, "image %q has invalid size %s", ann.Path, ann.Size())
	}
	if !resized.Valid() {
		return errors.Wrapf(ErrInvalidConfig, "image %q has invalid resized size %s", ann.Path, resized)
	}
	if !c.FeatureMapSize(resized).Valid() {
		return errors.Wrapf(ErrInvalidConfig, "resized size %s is smaller than stride %d", resized, c.Stride)
	}
	return nil
}

func (c Config) backgroundClass() string {
	if c.BackgroundClass == "" {
		return dataset.BackgroundClass
	}
	return c.BackgroundClass
}

func (c Config) regressionScale() float64 {
	if c.RegressionScale == 0 {
		return 1
	}
	return c.RegressionScale
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
