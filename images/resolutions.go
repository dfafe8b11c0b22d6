package images

import "fmt"

// Size describes the pixel dimensions of an image.
type Size struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// String returns the dimensions as "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Valid reports whether both dimensions are strictly positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// ResizeDimensions scales an image so its shorter side equals minSide.
//
// The aspect ratio is preserved and the longer side is truncated to an integer,
// so a 1000x500 image with minSide 600 becomes 1200x600.
//
// Arguments:
//   - width: The original image width.
//   - height: The original image height.
//   - minSide: The target length of the shorter side.
//
// Returns:
//   - Size: The resized dimensions. Non-positive inputs return the zero Size.
func ResizeDimensions(width, height, minSide int) Size {
	if width <= 0 || height <= 0 || minSide <= 0 {
		return Size{}
	}

	if width <= height {
		f := float64(minSide) / float64(width)
		return Size{Width: minSide, Height: int(f * float64(height))}
	}

	f := float64(minSide) / float64(height)
	return Size{Width: int(f * float64(width)), Height: minSide}
}
