// Package dataset - Image descriptors and their ground-truth boxes.
package dataset

import "github.com/nvr-ai/go-rpn/images"

// BackgroundClass is the class tag reserved for background regions.
const BackgroundClass = "bg"

// GroundTruth is a labeled box in original image pixel coordinates.
type GroundTruth struct {
	// Class is the object class tag, or BackgroundClass.
	Class string  `json:"class" yaml:"class"`
	X1    float64 `json:"x1"    yaml:"x1"`
	X2    float64 `json:"x2"    yaml:"x2"`
	Y1    float64 `json:"y1"    yaml:"y1"`
	Y2    float64 `json:"y2"    yaml:"y2"`
}

// Box returns the ground-truth coordinates as a geometry box.
func (g GroundTruth) Box() images.Box {
	return images.Box{X1: g.X1, Y1: g.Y1, X2: g.X2, Y2: g.Y2}
}

// Annotation describes one image and the objects labeled in it.
type Annotation struct {
	// Path is the location of the image file, used to name outputs.
	Path string `json:"filepath" yaml:"filepath"`
	// Width is the original image width in pixels.
	Width int `json:"width" yaml:"width"`
	// Height is the original image height in pixels.
	Height int `json:"height" yaml:"height"`
	// Boxes are the ground-truth boxes in original pixel coordinates.
	Boxes []GroundTruth `json:"bboxes" yaml:"bboxes"`
}

// Size returns the original image dimensions.
func (a Annotation) Size() images.Size {
	return images.Size{Width: a.Width, Height: a.Height}
}

// Classes returns the distinct class tags in the order they first appear.
func (a Annotation) Classes() []string {
	seen := make(map[string]struct{}, len(a.Boxes))
	classes := make([]string, 0, len(a.Boxes))
	for _, b := range a.Boxes {
		if _, ok := seen[b.Class]; ok {
			continue
		}
		seen[b.Class] = struct{}{}
		classes = append(classes, b.Class)
	}
	return classes
}
