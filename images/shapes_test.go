package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		b1       Box
		b2       Box
		expected float64
		epsilon  float64
	}{
		{
			name:     "Identical boxes",
			b1:       Box{0, 0, 100, 100},
			b2:       Box{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  1e-6,
		},
		{
			name:     "No overlap",
			b1:       Box{0, 0, 100, 100},
			b2:       Box{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  1e-9,
		},
		{
			name:     "Touching edges",
			b1:       Box{0, 0, 100, 100},
			b2:       Box{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  1e-9,
		},
		{
			name:     "Half overlap",
			b1:       Box{0, 0, 100, 100},
			b2:       Box{50, 50, 150, 150},
			expected: 2500.0 / 17500.0,
			epsilon:  1e-6,
		},
		{
			name:     "One inside other",
			b1:       Box{0, 0, 100, 100},
			b2:       Box{25, 25, 75, 75},
			expected: 0.25,
			epsilon:  1e-6,
		},
		{
			name:     "Fractional coordinates",
			b1:       Box{0.5, 0.5, 2.5, 2.5},
			b2:       Box{1.5, 1.5, 3.5, 3.5},
			expected: 1.0 / 7.0,
			epsilon:  1e-5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.b1, tt.b2)
			assert.InDelta(t, tt.expected, result, tt.epsilon)

			// IoU(A, B) must equal IoU(B, A) exactly.
			assert.Equal(t, result, CalculateIoU(tt.b2, tt.b1))
		})
	}
}

// TestIoU_Degenerate checks that collapsed or inverted boxes always score zero.
func TestIoU_Degenerate(t *testing.T) {
	valid := Box{0, 0, 100, 100}
	tests := []struct {
		name string
		box  Box
	}{
		{"Zero width", Box{10, 0, 10, 100}},
		{"Zero height", Box{0, 10, 100, 10}},
		{"Inverted x", Box{50, 0, 10, 100}},
		{"Inverted y", Box{0, 50, 100, 10}},
		{"Point", Box{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.box.Degenerate())
			assert.Zero(t, CalculateIoU(tt.box, valid))
			assert.Zero(t, CalculateIoU(valid, tt.box))
			assert.Zero(t, CalculateIoU(tt.box, tt.box))
			assert.Zero(t, tt.box.Area())
		})
	}
}

// TestIoU_vs_ImageRectangle compares our implementation against image.Rectangle
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   image.Rectangle
		r2   image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"One inside other", image.Rect(0, 0, 100, 100), image.Rect(25, 25, 75, 75)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := CalculateIoU(rectToBox(tc.r1), rectToBox(tc.r2))
			assert.InDelta(t, imageRectangleIoU(tc.r1, tc.r2), result, 1e-4)
		})
	}
}

func rectToBox(r image.Rectangle) Box {
	return Box{X1: float64(r.Min.X), Y1: float64(r.Min.Y), X2: float64(r.Max.X), Y2: float64(r.Max.Y)}
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle
func imageRectangleIoU(r1, r2 image.Rectangle) float64 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - intersectArea

	return float64(intersectArea) / float64(union)
}

func TestRegressionDelta_Identity(t *testing.T) {
	anchor := Box{X1: 8, Y1: 8, X2: 136, Y2: 136}
	d := RegressionDelta(anchor, anchor)

	assert.InDelta(t, 0, d.DX, 1e-12)
	assert.InDelta(t, 0, d.DY, 1e-12)
	assert.InDelta(t, 0, d.DW, 1e-12)
	assert.InDelta(t, 0, d.DH, 1e-12)
}

func TestRegressionDelta_KnownValues(t *testing.T) {
	anchor := Box{X1: 0, Y1: 0, X2: 10, Y2: 20}
	box := Box{X1: 5, Y1: 0, X2: 25, Y2: 10}

	d := RegressionDelta(anchor, box)

	// Centers (5,10) -> (15,5); sizes 10x20 -> 20x10.
	assert.InDelta(t, 1.0, d.DX, 1e-12)
	assert.InDelta(t, -0.25, d.DY, 1e-12)
	assert.InDelta(t, math.Log(2), d.DW, 1e-12)
	assert.InDelta(t, math.Log(0.5), d.DH, 1e-12)
}

// TestApplyDelta_RoundTrip reconstructs boxes from anchors and their deltas.
func TestApplyDelta_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		anchor Box
		box    Box
	}{
		{"Same box", Box{0, 0, 64, 64}, Box{0, 0, 64, 64}},
		{"Shifted", Box{100, 100, 228, 228}, Box{120, 90, 250, 200}},
		{"Tall anchor wide box", Box{40, 0, 80, 160}, Box{0, 50, 300, 90}},
		{"Tiny box", Box{0, 0, 512, 512}, Box{10.25, 10.5, 11.75, 13}},
		{"Box outside anchor", Box{0, 0, 32, 32}, Box{500, 400, 600, 650}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDelta(tt.anchor, RegressionDelta(tt.anchor, tt.box))

			cx, cy := tt.box.Center()
			gcx, gcy := got.Center()
			assert.InDelta(t, cx, gcx, 1e-4)
			assert.InDelta(t, cy, gcy, 1e-4)
			assert.InDelta(t, tt.box.Width(), got.Width(), 1e-4)
			assert.InDelta(t, tt.box.Height(), got.Height(), 1e-4)
		})
	}
}

func TestBox_Within(t *testing.T) {
	assert.True(t, Box{0, 0, 100, 50}.Within(100, 50))
	assert.False(t, Box{-0.5, 0, 10, 10}.Within(100, 50))
	assert.False(t, Box{0, 0, 10, 50.5}.Within(100, 50))
	assert.False(t, Box{90, 0, 100.1, 10}.Within(100, 50))
}

func TestBox_Scale(t *testing.T) {
	b := Box{10, 20, 30, 40}.Scale(2, 0.5)
	assert.Equal(t, Box{20, 10, 60, 20}, b)
}

func BenchmarkCalculateIoU(b *testing.B) {
	b1 := Box{0, 0, 128, 128}
	b2 := Box{64, 32, 192, 160}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(b1, b2)
	}
}
