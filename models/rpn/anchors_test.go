package rpn

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-rpn/images"
)

func TestAnchorSpec_Layout(t *testing.T) {
	spec := AnchorSpec{
		Sizes:  []float64{10, 20},
		Ratios: []Ratio{{W: 1, H: 1}, {W: 2, H: 1}, {W: 1, H: 2}},
	}

	assert.Equal(t, 6, spec.Types())
	assert.Equal(t, 0, spec.TypeIndex(0, 0))
	assert.Equal(t, 2, spec.TypeIndex(0, 2))
	assert.Equal(t, 3, spec.TypeIndex(1, 0))
	assert.Equal(t, 5, spec.TypeIndex(1, 2))

	tests := []struct {
		t    int
		w, h float64
	}{
		{0, 10, 10},
		{1, 20, 10},
		{2, 10, 20},
		{3, 20, 20},
		{4, 40, 20},
		{5, 20, 40},
	}
	for _, tt := range tests {
		w, h := spec.Extent(tt.t)
		assert.Equal(t, tt.w, w, "type %d width", tt.t)
		assert.Equal(t, tt.h, h, "type %d height", tt.t)
	}
}

func TestEnumerateAnchors_DiscardsOutOfBounds(t *testing.T) {
	cfg := smallConfig()

	anchors := EnumerateAnchors(smallSize, cfg.Stride, cfg.Anchors)

	want := []Anchor{
		{Row: 1, Col: 1, Type: 0, Box: images.Box{X1: 8, Y1: 8, X2: 40, Y2: 40}},
		{Row: 1, Col: 2, Type: 0, Box: images.Box{X1: 24, Y1: 8, X2: 56, Y2: 40}},
		{Row: 2, Col: 1, Type: 0, Box: images.Box{X1: 8, Y1: 24, X2: 40, Y2: 56}},
		{Row: 2, Col: 2, Type: 0, Box: images.Box{X1: 24, Y1: 24, X2: 56, Y2: 56}},
	}
	if diff := cmp.Diff(want, anchors); diff != "" {
		t.Errorf("anchors mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateAnchors_EdgeTouchingSurvives(t *testing.T) {
	spec := AnchorSpec{Sizes: []float64{16}, Ratios: []Ratio{{W: 1, H: 1}}}

	// Stride-sized anchors tile the image exactly, every edge lands on a bound.
	anchors := EnumerateAnchors(images.Size{Width: 64, Height: 32}, 16, spec)

	assert.Len(t, anchors, 8)
	assert.Equal(t, images.Box{X1: 0, Y1: 0, X2: 16, Y2: 16}, anchors[0].Box)
	assert.Equal(t, images.Box{X1: 48, Y1: 16, X2: 64, Y2: 32}, anchors[7].Box)
}

func TestEnumerateAnchors_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	resized := images.Size{Width: 800, Height: 600}
	fm := cfg.FeatureMapSize(resized)
	assert.Equal(t, images.Size{Width: 50, Height: 37}, fm)

	anchors := EnumerateAnchors(resized, cfg.Stride, cfg.Anchors)
	assert.NotEmpty(t, anchors)

	prev := -1
	for _, a := range anchors {
		assert.True(t, a.Box.Within(800, 600), "anchor %+v outside image", a)
		assert.False(t, a.Box.Degenerate())
		assert.Less(t, a.Row, fm.Height)
		assert.Less(t, a.Col, fm.Width)
		assert.Less(t, a.Type, cfg.Anchors.Types())

		order := (a.Row*fm.Width+a.Col)*cfg.Anchors.Types() + a.Type
		assert.Greater(t, order, prev, "anchors out of order")
		prev = order
	}
}

func TestEnumerateAnchors_TooLargeForImage(t *testing.T) {
	spec := AnchorSpec{Sizes: []float64{512}, Ratios: []Ratio{{W: 1, H: 1}}}

	assert.Empty(t, EnumerateAnchors(images.Size{Width: 256, Height: 256}, 16, spec))
	assert.Empty(t, EnumerateAnchors(images.Size{Width: 256, Height: 256}, 0, spec))
}
