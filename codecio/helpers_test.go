package codecio

// filledImage returns a width x height image with every sample set to v.
func filledImage(width, height int, v float32) *Image3F {
	im := NewImage3F(width, height)
	for c := 0; c < 3; c++ {
		for y := 0; y < height; y++ {
			row := im.Row(c, y)
			for x := range row {
				row[x] = v
			}
		}
	}
	return im
}

// newTestSession returns a single-frame sRGB session that passes
// CheckMetadata.
func newTestSession(width, height int) *InOut {
	c := New()
	c.Metadata.BitDepth.BitsPerSample = 8
	c.Metadata.ColorEncoding = SRGB(false)
	c.SetFromImage(filledImage(width, height, 0.5), SRGB(false))
	return c
}

// newAnimatedSession returns an sRGB session with a preview and n frames.
func newAnimatedSession(n int) *InOut {
	c := New()
	c.Metadata.BitDepth.BitsPerSample = 8
	c.Metadata.ColorEncoding = SRGB(false)
	c.SetPreview(PreviewHeader{Width: 4, Height: 2}).SetFromImage(filledImage(4, 2, 0.5), SRGB(false))
	c.SetAnimation(AnimationHeader{TicksPerSecondNumerator: 100, TicksPerSecondDenominator: 1})
	for i := 0; i < n; i++ {
		c.AddFrame(AnimationFrame{Duration: 10}).SetFromImage(filledImage(8, 6, 0.5), SRGB(false))
	}
	return c
}
