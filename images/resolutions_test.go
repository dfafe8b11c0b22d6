package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestResizeDimensions checks that the shorter side lands on minSide and the
// aspect ratio survives truncation.
func TestResizeDimensions(t *testing.T) {
	testCases := []struct {
		name     string
		width    int
		height   int
		minSide  int
		expected Size
	}{
		{name: "Landscape", width: 1000, height: 500, minSide: 600, expected: Size{Width: 1200, Height: 600}},
		{name: "Portrait", width: 500, height: 1000, minSide: 600, expected: Size{Width: 600, Height: 1200}},
		{name: "Square", width: 224, height: 224, minSide: 600, expected: Size{Width: 600, Height: 600}},
		{name: "Truncated", width: 640, height: 427, minSide: 600, expected: Size{Width: 899, Height: 600}},
		{name: "Downscale", width: 1920, height: 1080, minSide: 540, expected: Size{Width: 960, Height: 540}},
		{name: "Zero width", width: 0, height: 100, minSide: 600, expected: Size{}},
		{name: "Negative height", width: 100, height: -1, minSide: 600, expected: Size{}},
		{name: "Zero min side", width: 100, height: 100, minSide: 0, expected: Size{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResizeDimensions(tc.width, tc.height, tc.minSide))
		})
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, "640x480", Size{Width: 640, Height: 480}.String())
	assert.True(t, Size{Width: 1, Height: 1}.Valid())
	assert.False(t, Size{Width: 0, Height: 1}.Valid())
	assert.False(t, Size{Width: 1, Height: -1}.Valid())
}
