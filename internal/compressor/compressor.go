// Package compressor implements the resize-and-encode core: it shrinks a
// decoded raster by a configurable ratio and re-encodes it as JPEG at a
// configurable quality, returning the encoded bytes. The package performs
// no I/O and keeps no shared state, so independent Compressor instances
// are safe to drive concurrently from a batch worker pool.
package compressor

import "image"

// Compressor owns one decoded raster and the Factor used to compress it.
// Create one instance per image; CompressImage may be called repeatedly
// and always re-resizes and re-encodes from the stored original.
type Compressor struct {
	factor Factor
	img    image.Image
}

// New returns a Compressor for img with the default Factor.
func New(img image.Image) *Compressor {
	return &Compressor{
		factor: DefaultFactor(),
		img:    img,
	}
}

// SetFactor replaces the stored Factor wholesale. Validation already
// happened when the Factor was constructed.
func (c *Compressor) SetFactor(factor Factor) {
	c.factor = factor
}

// Factor returns the currently stored Factor.
func (c *Compressor) Factor() Factor {
	return c.factor
}

// CompressImage resizes the stored raster by the factor's size ratio and
// encodes the result as JPEG at the factor's quality. It has no side
// effects beyond the returned buffer: the stored raster is never mutated
// and nothing is written or logged. Failures from the encoding stage are
// returned as *EncodeError.
func (c *Compressor) CompressImage() ([]byte, error) {
	pix, width, height := Resize(c.img, c.factor.SizeRatio())
	return EncodeJPEG(pix, width, height, c.factor.Quality())
}
