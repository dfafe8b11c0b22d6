package images

import (
	"image"
	// Registered decoders for DecodeSize.
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// DecodeSize reads the dimensions from an image header without decoding pixels.
//
// Arguments:
//   - r: The encoded JPEG, PNG or WebP image.
//
// Returns:
//   - Size: The image dimensions.
//   - ImageFormat: The detected format.
//   - error: An error if the format is unknown or the header is corrupt.
func DecodeSize(r io.Reader) (Size, ImageFormat, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Size{}, "", errors.Wrap(err, "failed to decode image header")
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, ImageFormat(format), nil
}

// ReadSize opens an image file and returns its dimensions.
func ReadSize(path string) (Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return Size{}, errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	size, _, err := DecodeSize(f)
	if err != nil {
		return Size{}, errors.Wrapf(err, "image %s", path)
	}
	return size, nil
}
