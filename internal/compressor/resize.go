package compressor

import (
	"image"

	"github.com/disintegration/imaging"
)

// Resize downsamples img by ratio using a triangular (bilinear) filter and
// returns the result as a flat row-major RGB buffer, 3 bytes per pixel,
// together with the new dimensions. Target dimensions are truncated:
// newW = int(W*ratio), newH = int(H*ratio). Alpha and any other extra
// channels are dropped.
//
// A ratio small enough to floor a dimension to zero yields an empty buffer
// and the degenerate dimensions; EncodeJPEG rejects those explicitly.
func Resize(img image.Image, ratio float64) ([]byte, int, int) {
	bounds := img.Bounds()
	width := int(float64(bounds.Dx()) * ratio)
	height := int(float64(bounds.Dy()) * ratio)

	if width < 1 || height < 1 {
		// imaging.Resize treats a zero dimension as "preserve aspect
		// ratio", which is not what a degenerate target means here.
		return []byte{}, width, height
	}

	resized := imaging.Resize(img, width, height, imaging.Linear)

	buf := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < width; x++ {
			s := x * 4
			d := (y*width + x) * 3
			buf[d+0] = row[s+0]
			buf[d+1] = row[s+1]
			buf[d+2] = row[s+2]
		}
	}
	return buf, width, height
}
