package compressor

import (
	"math"
	"testing"
)

func TestNewFactor_Valid(t *testing.T) {
	cases := []struct {
		name    string
		quality float64
		ratio   float64
	}{
		{"typical", 80, 0.8},
		{"max_both", 100, 1.0},
		{"near_zero", 0.1, 0.01},
		{"low_quality", 1, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFactor(tc.quality, tc.ratio)
			if err != nil {
				t.Fatalf("NewFactor(%g, %g) failed: %v", tc.quality, tc.ratio, err)
			}
			if f.Quality() != tc.quality {
				t.Errorf("Quality() = %g, want %g", f.Quality(), tc.quality)
			}
			if f.SizeRatio() != tc.ratio {
				t.Errorf("SizeRatio() = %g, want %g", f.SizeRatio(), tc.ratio)
			}
		})
	}
}

func TestNewFactor_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		quality float64
		ratio   float64
	}{
		{"zero_quality", 0, 0.8},
		{"negative_quality", -5, 0.8},
		{"quality_over_100", 100.5, 0.8},
		{"zero_ratio", 80, 0},
		{"negative_ratio", 80, -0.1},
		{"ratio_over_1", 80, 1.001},
		{"nan_quality", math.NaN(), 0.8},
		{"nan_ratio", 80, math.NaN()},
		{"nan_both", math.NaN(), math.NaN()},
		{"inf_quality", math.Inf(1), 0.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFactor(tc.quality, tc.ratio); err == nil {
				t.Errorf("NewFactor(%g, %g) succeeded, want error", tc.quality, tc.ratio)
			}
		})
	}
}

func TestMustFactor_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustFactor(0, 0.5) did not panic")
		}
	}()
	MustFactor(0, 0.5)
}

func TestDefaultFactor(t *testing.T) {
	f := DefaultFactor()
	if f.Quality() != 80 {
		t.Errorf("default quality = %g, want 80", f.Quality())
	}
	if f.SizeRatio() != 0.8 {
		t.Errorf("default size ratio = %g, want 0.8", f.SizeRatio())
	}
}
