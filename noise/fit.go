package noise

// Level is one measured noise sample: the noise standard deviation observed
// in a patch and the patch's relative intensity.
type Level struct {
	NoiseLevel float32
	Intensity  float32
}

// Fit builds a curve from measured levels. Each sample is split between the
// two control points around its intensity, weighted by IndexAndFrac, and
// each point becomes the weighted mean of what it received. Points that
// receive nothing take the value of the nearest point that did. The result
// is clamped to [0, LutMax] so it always quantizes.
func Fit(levels []Level) Params {
	var sum, weight [NumPoints]float64
	for _, l := range levels {
		i, frac := IndexAndFrac(l.Intensity)
		sum[i] += float64(l.NoiseLevel) * float64(1-frac)
		weight[i] += float64(1 - frac)
		sum[i+1] += float64(l.NoiseLevel) * float64(frac)
		weight[i+1] += float64(frac)
	}

	var p Params
	have := make([]bool, NumPoints)
	found := false
	for i := range p.Lut {
		if weight[i] > 0 {
			p.Lut[i] = clampLut(float32(sum[i] / weight[i]))
			have[i] = true
			found = true
		}
	}
	if !found {
		return p
	}

	for i := range p.Lut {
		if have[i] {
			continue
		}
		best := -1
		for d := 1; d < NumPoints && best < 0; d++ {
			if i-d >= 0 && have[i-d] {
				best = i - d
			} else if i+d < NumPoints && have[i+d] {
				best = i + d
			}
		}
		p.Lut[i] = p.Lut[best]
	}
	return p
}

func clampLut(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > LutMax {
		return LutMax
	}
	return v
}
