package noise

import (
	"math"
	"testing"
)

func TestFitEmpty(t *testing.T) {
	p := Fit(nil)
	if p.HasAny() {
		t.Errorf("Fit(nil) = %v, want zero curve", p.Lut)
	}
}

func TestFitConstant(t *testing.T) {
	var levels []Level
	for i := 0; i <= 60; i++ {
		levels = append(levels, Level{NoiseLevel: 0.05, Intensity: float32(i) / 60})
	}
	p := Fit(levels)
	for i, v := range p.Lut {
		if math.Abs(float64(v-0.05)) > 1e-6 {
			t.Errorf("Lut[%d] = %v, want 0.05", i, v)
		}
	}
	if _, err := p.Quantize(); err != nil {
		t.Errorf("Quantize() of fitted curve error = %v", err)
	}
}

func TestFitFillsMissingPoints(t *testing.T) {
	// Only the first segment receives samples.
	levels := []Level{{NoiseLevel: 0.2, Intensity: 0}}
	p := Fit(levels)
	for i, v := range p.Lut {
		if v != 0.2 {
			t.Errorf("Lut[%d] = %v, want 0.2", i, v)
		}
	}
}

func TestFitClampsToCeiling(t *testing.T) {
	levels := []Level{{NoiseLevel: 3, Intensity: 0.5}, {NoiseLevel: -1, Intensity: 10}}
	p := Fit(levels)
	if p.Lut[3] != LutMax {
		t.Errorf("Lut[3] = %v, want LutMax", p.Lut[3])
	}
	if p.Lut[7] != 0 {
		t.Errorf("Lut[7] = %v, want 0", p.Lut[7])
	}
	if _, err := p.Quantize(); err != nil {
		t.Errorf("Quantize() error = %v", err)
	}
}

func TestFitStrengthAgreement(t *testing.T) {
	// Samples exactly at control points reproduce themselves.
	want := [NumPoints]float32{0.01, 0.02, 0.04, 0.08, 0.1, 0.12, 0.14, 0.15}
	var levels []Level
	for i := 0; i < NumPoints-1; i++ {
		levels = append(levels, Level{NoiseLevel: want[i], Intensity: float32(i) / 6})
	}
	levels = append(levels, Level{NoiseLevel: want[7], Intensity: 2})
	p := Fit(levels)
	for i := range want {
		if math.Abs(float64(p.Lut[i]-want[i])) > 1e-6 {
			t.Errorf("Lut[%d] = %v, want %v", i, p.Lut[i], want[i])
		}
	}
}
