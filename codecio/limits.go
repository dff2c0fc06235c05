package codecio

// Limits bounds the dimensions a decoder accepts. Decoders set it before
// parsing; it is never derived from the input.
type Limits struct {
	MaxWidth  uint32
	MaxHeight uint32
	MaxPixels uint64
}

// Unbounded returns limits that accept any non-empty image.
func Unbounded() Limits {
	return Limits{
		MaxWidth:  ^uint32(0),
		MaxHeight: ^uint32(0),
		MaxPixels: ^uint64(0),
	}
}

// Verify checks width and height against the limits. It must run on values
// read from the input before any buffer of that size is allocated.
//
// The pixel count is computed in 64 bits, which cannot overflow for two
// 32-bit factors.
func (l Limits) Verify(width, height uint32) error {
	if width == 0 || height == 0 {
		return &DimensionError{Kind: ErrEmptyImage, Width: width, Height: height}
	}
	if width > l.MaxWidth {
		return &DimensionError{Kind: ErrTooWide, Width: width, Height: height, Limit: uint64(l.MaxWidth)}
	}
	if height > l.MaxHeight {
		return &DimensionError{Kind: ErrTooTall, Width: width, Height: height, Limit: uint64(l.MaxHeight)}
	}
	if uint64(width)*uint64(height) > l.MaxPixels {
		return &DimensionError{Kind: ErrTooManyPixels, Width: width, Height: height, Limit: l.MaxPixels}
	}
	return nil
}
