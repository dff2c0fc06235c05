package codecio

// Image3F holds three float32 planes of equal size. Rows are stride
// samples apart; Crop narrows the visible region without reallocating.
type Image3F struct {
	width  int
	height int
	stride int
	planes [3][]float32
}

// NewImage3F allocates a zeroed width x height image. Callers decoding
// untrusted input must pass the dimensions through Limits.Verify first.
func NewImage3F(width, height int) *Image3F {
	if width < 0 || height < 0 {
		panic("codecio: negative image size")
	}
	im := &Image3F{width: width, height: height, stride: width}
	for c := range im.planes {
		im.planes[c] = make([]float32, width*height)
	}
	return im
}

// Width returns the visible width.
func (im *Image3F) Width() int { return im.width }

// Height returns the visible height.
func (im *Image3F) Height() int { return im.height }

// Row returns the visible samples of row y in plane c.
func (im *Image3F) Row(c, y int) []float32 {
	off := y * im.stride
	return im.planes[c][off : off+im.width]
}

// Crop shrinks the visible region to width x height, anchored at the top
// left. Sizes larger than the current ones are clamped.
func (im *Image3F) Crop(width, height int) {
	im.width = max(0, min(width, im.width))
	im.height = max(0, min(height, im.height))
}

// valid reports whether every plane backs the visible region.
func (im *Image3F) valid() bool {
	if im.width > im.stride {
		return false
	}
	need := 0
	if im.height > 0 {
		need = (im.height-1)*im.stride + im.width
	}
	for _, p := range im.planes {
		if len(p) < need {
			return false
		}
	}
	return true
}

// planesEqual reports whether all three planes hold the same visible
// samples.
func (im *Image3F) planesEqual() bool {
	for y := 0; y < im.height; y++ {
		r0, r1, r2 := im.Row(0, y), im.Row(1, y), im.Row(2, y)
		for x := range r0 {
			if r0[x] != r1[x] || r0[x] != r2[x] {
				return false
			}
		}
	}
	return true
}
