package compressor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
)

// EncodeError reports that the JPEG stream could not be produced: either a
// precondition on the pixel buffer was violated or the compression backend
// failed to finalize the stream. It is the only recoverable error category
// of this package; callers in a batch pipeline should report it and move on.
type EncodeError struct {
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jpeg encode: %s: %v", e.Reason, e.Err)
	}
	return "jpeg encode: " + e.Reason
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// EncodeJPEG compresses a flat row-major RGB pixel buffer (3 bytes per
// pixel) into a complete standalone JPEG stream of exactly width x height.
// The buffer is fed to the compressor one scanline at a time in strict
// top-to-bottom order; the backend performs the block DCT, quantization
// scaled by quality, and Huffman coding. The result is written to an
// in-memory buffer and never touches storage.
//
// The caller must uphold len(pix) == width*height*3; violations and
// degenerate dimensions return an *EncodeError rather than slicing out
// of bounds.
func EncodeJPEG(pix []byte, width, height int, quality float64) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, &EncodeError{Reason: fmt.Sprintf("degenerate dimensions %dx%d", width, height)}
	}
	if want := width * height * 3; len(pix) != want {
		return nil, &EncodeError{Reason: fmt.Sprintf("pixel buffer is %d bytes, want %d for %dx%d", len(pix), want, width, height)}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stride := width * 3
	for line := 0; line < height; line++ {
		src := pix[line*stride : (line+1)*stride]
		dst := img.Pix[line*img.Stride:]
		for x := 0; x < width; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xFF
		}
	}

	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: int(math.Round(quality))}
	if err := jpeg.Encode(&buf, img, opts); err != nil {
		return nil, &EncodeError{Reason: "finalize stream", Err: err}
	}
	return buf.Bytes(), nil
}
