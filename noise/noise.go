// Package noise holds the noise-synthesis parameters shared by the encoder
// and the decoder.
//
// The model is a curve of NumPoints control points indexed by relative
// intensity (pixel luma divided by the mean luma of its patch). The encoder
// fits the curve from measured noise levels and the decoder resynthesizes
// grain from it. Both sides must map an intensity onto the curve with
// IndexAndFrac so that the round trip is bit-exact.
package noise

import (
	"errors"
	"fmt"
	"math"
)

const (
	// NumPoints is the number of control points in the curve.
	NumPoints = 8

	// Precision is the fixed-point scale used when a control point is
	// serialized (10 bits).
	Precision = 1024.0

	// LutMax is the largest control point value that still quantizes to
	// 1023.
	LutMax = 1023.4999 / Precision

	// scaleNumerator maps the unit intensity range onto the first
	// NumPoints-1 segments.
	scaleNumerator = NumPoints - 2
	scale          = float32(scaleNumerator) / 1.0

	// enabledThreshold is the magnitude above which a control point counts
	// as non-zero.
	enabledThreshold = 1e-3
)

// ErrQuantizationOverflow is returned when a control point cannot be
// represented in the 10-bit serialized form.
var ErrQuantizationOverflow = errors.New("noise: control point outside quantization range")

// QuantizationError reports which control point failed to quantize.
type QuantizationError struct {
	Index int
	Value float32
}

func (e *QuantizationError) Error() string {
	return fmt.Sprintf("noise: lut[%d] = %g outside [0, %g]", e.Index, e.Value, float32(LutMax))
}

// Unwrap returns ErrQuantizationOverflow.
func (e *QuantizationError) Unwrap() error {
	return ErrQuantizationOverflow
}

// Params is the noise curve.
type Params struct {
	Lut [NumPoints]float32
}

// Clear sets every control point to zero.
func (p *Params) Clear() {
	for i := range p.Lut {
		p.Lut[i] = 0
	}
}

// HasAny reports whether noise synthesis is enabled, i.e. whether any
// control point has magnitude above 1e-3.
func (p *Params) HasAny() bool {
	for _, v := range p.Lut {
		if float32(math.Abs(float64(v))) > enabledThreshold {
			return true
		}
	}
	return false
}

// IndexAndFrac maps a relative intensity onto the curve. It returns the
// segment index in [0, NumPoints-2] and the position within the segment in
// [0, 1].
//
// Negative and NaN inputs behave like 0. Inputs whose scaled value reaches
// NumPoints-1 saturate on the last segment as (NumPoints-2, 1); the curve is
// never extrapolated.
func IndexAndFrac(x float32) (int, float32) {
	scaled := x * scale
	if !(scaled > 0) {
		scaled = 0
	}
	if scaled >= scaleNumerator+1 {
		return scaleNumerator, 1
	}
	floor := float32(math.Floor(float64(scaled)))
	return int(floor), scaled - floor
}

// Strength returns the interpolated noise level for relative intensity x.
func (p *Params) Strength(x float32) float32 {
	i, frac := IndexAndFrac(x)
	// The conversions force rounding after each product so no platform
	// fuses the expression into an FMA.
	lo := float32(p.Lut[i] * (1 - frac))
	hi := float32(p.Lut[i+1] * frac)
	return lo + hi
}

// Quantize converts the curve to its 10-bit serialized form. A control
// point below zero or above LutMax is rejected, not clamped.
func (p *Params) Quantize() ([NumPoints]uint16, error) {
	var q [NumPoints]uint16
	for i, v := range p.Lut {
		if !(v >= 0 && v <= LutMax) {
			return q, &QuantizationError{Index: i, Value: v}
		}
		q[i] = uint16(math.Round(float64(v) * Precision))
	}
	return q, nil
}

// Dequantize converts a serialized curve back to control points. Values
// above 1023 are rejected.
func Dequantize(q [NumPoints]uint16) (Params, error) {
	var p Params
	for i, v := range q {
		if v > 1023 {
			return Params{}, &QuantizationError{Index: i, Value: float32(v) / Precision}
		}
		p.Lut[i] = float32(v) / Precision
	}
	return p, nil
}
