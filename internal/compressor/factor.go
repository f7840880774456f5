package compressor

import "fmt"

// Factor holds the two tuning parameters of a compression job: the JPEG
// quality and the linear size ratio applied to both dimensions before
// encoding. A Factor is immutable once constructed; replace it wholesale
// instead of mutating fields.
type Factor struct {
	quality   float64
	sizeRatio float64
}

// NewFactor validates and builds a Factor. Quality must be in (0, 100]
// and sizeRatio in (0, 1]; anything else parameterizes the quantization
// and resampling math with garbage, so construction refuses it.
func NewFactor(quality, sizeRatio float64) (Factor, error) {
	// Positive-form checks so NaN (for which every comparison is false)
	// is rejected too.
	if !(quality > 0 && quality <= 100) {
		return Factor{}, fmt.Errorf("quality must be in (0, 100], got %g", quality)
	}
	if !(sizeRatio > 0 && sizeRatio <= 1) {
		return Factor{}, fmt.Errorf("size ratio must be in (0, 1], got %g", sizeRatio)
	}
	return Factor{quality: quality, sizeRatio: sizeRatio}, nil
}

// MustFactor is like NewFactor but panics on invalid arguments. Intended
// for hard-coded factors where an out-of-range value is a programming
// error, not a runtime condition.
func MustFactor(quality, sizeRatio float64) Factor {
	f, err := NewFactor(quality, sizeRatio)
	if err != nil {
		panic("compressor: " + err.Error())
	}
	return f
}

// DefaultFactor returns the documented balance point between visual
// fidelity and size reduction: quality 80, size ratio 0.8.
func DefaultFactor() Factor {
	return Factor{quality: 80, sizeRatio: 0.8}
}

// Quality returns the JPEG quality in (0, 100].
func (f Factor) Quality() float64 {
	return f.quality
}

// SizeRatio returns the linear scale ratio in (0, 1].
func (f Factor) SizeRatio() float64 {
	return f.sizeRatio
}
