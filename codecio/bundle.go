package codecio

import (
	"fmt"
	"image"
)

// FrameHeader holds the per-frame fields a bundle carries in addition to
// its pixels.
type FrameHeader struct {
	Name string

	// Duration is in animation ticks.
	Duration uint32

	// Origin is the position of the frame's top left corner on the canvas.
	// Animation frames may cover only part of the canvas.
	Origin image.Point

	IsLast bool
}

// Bundle is one frame or the preview: pixels, their current color encoding
// and a frame header, bound to one ImageMetadata by ref.
type Bundle struct {
	meta   MetadataRef
	Header FrameHeader

	color    *Image3F
	encoding ColorEncoding
}

// NewBundle returns an empty bundle bound to the metadata identified by
// ref. Sessions create their bundles with InOut.NewBundle.
func NewBundle(ref MetadataRef) *Bundle {
	return &Bundle{meta: ref}
}

// MetadataRef returns the identity of the metadata the bundle is bound to.
func (b *Bundle) MetadataRef() MetadataRef {
	return b.meta
}

// SetFromImage stores color as the bundle's pixels, interpreted in
// encoding. If encoding is gray, all planes must be identical.
func (b *Bundle) SetFromImage(color *Image3F, encoding ColorEncoding) {
	b.color = color
	b.encoding = encoding
}

// Color returns the pixels, or nil for an empty bundle.
func (b *Bundle) Color() *Image3F {
	return b.color
}

// Encoding returns the current color encoding.
func (b *Bundle) Encoding() ColorEncoding {
	return b.encoding
}

// IsGray reports whether the current encoding is gray.
func (b *Bundle) IsGray() bool {
	return b.encoding.IsGray()
}

// Planes returns the number of distinct planes: 1 for gray, 3 otherwise.
func (b *Bundle) Planes() int {
	if b.IsGray() {
		return 1
	}
	return 3
}

// Empty reports whether the bundle has no pixels.
func (b *Bundle) Empty() bool {
	return b.color == nil || b.color.width == 0 || b.color.height == 0
}

// Width returns the pixel width, 0 when empty.
func (b *Bundle) Width() int {
	if b.color == nil {
		return 0
	}
	return b.color.width
}

// Height returns the pixel height, 0 when empty.
func (b *Bundle) Height() int {
	if b.color == nil {
		return 0
	}
	return b.color.height
}

func (b *Bundle) name() string {
	if b.Header.Name != "" {
		return fmt.Sprintf("bundle %q", b.Header.Name)
	}
	return "bundle"
}

// VerifyMetadata checks the bundle's pixels against its own encoding and
// dimensions.
func (b *Bundle) VerifyMetadata() error {
	where := b.name()
	if b.meta == 0 {
		return &ConsistencyError{Where: where, Err: ErrMetadataMismatch}
	}
	if b.Empty() {
		return &ConsistencyError{Where: where, Err: ErrNoPixels}
	}
	if !b.color.valid() {
		return &ConsistencyError{Where: where, Err: ErrPlaneSize}
	}
	if len(b.encoding.ICC) == 0 {
		return &ConsistencyError{Where: where, Err: ErrNoColorProfile}
	}
	if b.IsGray() && !b.color.planesEqual() {
		return &ConsistencyError{Where: where, Err: ErrGrayPlanes}
	}
	return nil
}

// ShrinkTo crops the pixels to width x height in place. A size larger than
// the current one is clamped to the current one; the bundle never grows.
func (b *Bundle) ShrinkTo(width, height int) {
	if b.color != nil {
		b.color.Crop(width, height)
	}
}

// TransformTo converts the pixels to desired in place, one row per unit of
// work on exec (nil runs sequentially). On success the bundle's encoding
// becomes desired. On failure the encoding is unchanged and pixel values
// are unspecified but finite when the input was.
func (b *Bundle) TransformTo(desired ColorEncoding, exec Executor) error {
	fail := func(err error) error {
		return &TransformError{
			Bundle: b.name(),
			From:   b.encoding.Description(),
			To:     desired.Description(),
			Err:    err,
		}
	}
	if b.Empty() {
		return fail(ErrNoPixels)
	}
	if b.encoding.SameColorEncoding(desired) {
		b.encoding = desired
		return nil
	}
	if !canTransform(b.encoding, desired) {
		return fail(ErrUnsupportedTransform)
	}

	from, _ := curveFor(b.encoding)
	to, _ := curveFor(desired)
	im := b.color
	err := runOn(exec, im.height, func(y int) error {
		for c := 0; c < 3; c++ {
			row := im.Row(c, y)
			for x, v := range row {
				row[x] = to.fromLinear(from.toLinear(v))
			}
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	b.encoding = desired
	return nil
}
