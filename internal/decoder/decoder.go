// Package decoder turns image files into in-memory rasters for the
// compressor. It recognizes every format the batch pipeline accepts and
// applies the EXIF orientation so downstream code always sees an upright
// image.
package decoder

import (
	"bytes"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Decode reads and decodes the image file at path. JPEG sources carrying an
// EXIF orientation tag are rotated/flipped to orientation 1 before being
// returned.
func Decode(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory image file, applying the EXIF
// orientation when present.
func DecodeBytes(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if format == "jpeg" || format == "tiff" {
		img = applyOrientation(img, readOrientation(data))
	}
	return img, nil
}

// readOrientation extracts the EXIF orientation value (1-8). Anything that
// goes wrong maps to 1, the identity orientation.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation encoded in the EXIF
// orientation tag.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
