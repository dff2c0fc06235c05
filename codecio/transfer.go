package codecio

import "math"

// transferCurve converts between encoded values and linear light for one
// transfer function. Both directions are odd functions so that values
// outside [0, 1] survive a round trip.
type transferCurve struct {
	toLinear   func(v float32) float32
	fromLinear func(v float32) float32
}

// curveFor returns the curve for c, or false when c's transfer function
// needs luminance information this package does not have (PQ, HLG).
func curveFor(c ColorEncoding) (transferCurve, bool) {
	switch c.Transfer {
	case TransferLinear:
		return transferCurve{identity, identity}, true
	case TransferSRGB:
		return transferCurve{oddExtend(srgbToLinear), oddExtend(linearToSRGB)}, true
	case Transfer709:
		return transferCurve{oddExtend(bt709ToLinear), oddExtend(linearToBT709)}, true
	case TransferDCI:
		return gammaCurve(1 / 2.6), true
	case TransferGamma:
		if !(c.Gamma > 0 && c.Gamma <= 1) {
			return transferCurve{}, false
		}
		return gammaCurve(float64(c.Gamma)), true
	default:
		return transferCurve{}, false
	}
}

func identity(v float32) float32 { return v }

func oddExtend(f func(float32) float32) func(float32) float32 {
	return func(v float32) float32 {
		if v < 0 {
			return -f(-v)
		}
		return f(v)
	}
}

// gammaCurve encodes as linear^g.
func gammaCurve(g float64) transferCurve {
	inv := 1 / g
	return transferCurve{
		toLinear: oddExtend(func(v float32) float32 {
			return float32(math.Pow(float64(v), inv))
		}),
		fromLinear: oddExtend(func(v float32) float32 {
			return float32(math.Pow(float64(v), g))
		}),
	}
}

func linearToSRGB(v float32) float32 {
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

func srgbToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

func linearToBT709(v float32) float32 {
	if v < 0.018 {
		return v * 4.5
	}
	return 1.099*float32(math.Pow(float64(v), 0.45)) - 0.099
}

func bt709ToLinear(v float32) float32 {
	if v < 0.081 {
		return v / 4.5
	}
	return float32(math.Pow(float64((v+0.099)/1.099), 1/0.45))
}

// canTransform reports whether pixels in from can be converted to to by
// changing the transfer function alone.
func canTransform(from, to ColorEncoding) bool {
	if from.ColorSpace == ColorSpaceUnknown || to.ColorSpace == ColorSpaceUnknown {
		return false
	}
	if from.ColorSpace != to.ColorSpace || from.WhitePoint != to.WhitePoint {
		return false
	}
	if from.WhitePoint == WhiteCustom {
		return false
	}
	if !from.IsGray() && (from.Primaries != to.Primaries || from.Primaries == PrimariesCustom) {
		return false
	}
	_, okFrom := curveFor(from)
	_, okTo := curveFor(to)
	return okFrom && okTo
}
