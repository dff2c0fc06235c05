package codecio

import (
	"sync/atomic"

	"github.com/mrjoshuak/go-codecio/noise"
)

// MetadataRef identifies the metadata of one session. Bundles hold the ref
// of the session they were created for; comparing refs replaces pointer
// identity so that sessions can be moved freely.
type MetadataRef uint64

var lastMetadataRef atomic.Uint64

func newMetadataRef() MetadataRef {
	return MetadataRef(lastMetadataRef.Add(1))
}

// BitDepth describes the sample format of the original image.
type BitDepth struct {
	BitsPerSample uint32
	// ExponentBitsPerSample is non-zero for floating-point samples.
	ExponentBitsPerSample uint32
}

// ImageMetadata applies to the preview and every frame of a session. It is
// populated once, while parsing headers or constructing an encoder input.
type ImageMetadata struct {
	BitDepth      BitDepth
	ColorEncoding ColorEncoding

	// IntensityTarget is the luminance of white in nits; 0 means unknown.
	IntensityTarget float32

	// Orientation is the EXIF orientation, 1 through 8.
	Orientation uint32

	HavePreview   bool
	HaveAnimation bool

	// Noise is the grain model; synthesis is enabled when Noise.HasAny().
	Noise noise.Params
}

// PreviewHeader holds the preview dimensions as stored in the input.
type PreviewHeader struct {
	Width  uint32
	Height uint32
}

// Preview is a small independently sized image shown before the main
// image is decoded.
type Preview struct {
	Header PreviewHeader
	Frame  *Bundle
}

// AnimationHeader holds the timing parameters of an animation.
type AnimationHeader struct {
	// TicksPerSecondNumerator and TicksPerSecondDenominator give the
	// duration of one tick.
	TicksPerSecondNumerator   uint32
	TicksPerSecondDenominator uint32

	// NumLoops is the number of repetitions; 0 means forever.
	NumLoops uint32

	HaveTimecodes bool
}

// AnimationFrame is the per-frame animation record.
type AnimationFrame struct {
	// Duration is in ticks.
	Duration uint32
	// Timecode is SMPTE packed; only meaningful with HaveTimecodes.
	Timecode uint32
}

// Animation holds the header and one record per frame.
type Animation struct {
	Header AnimationHeader
	Frames []AnimationFrame
}

// Blobs are opaque metadata payloads carried alongside the image.
type Blobs struct {
	Exif  []byte
	IPTC  []byte
	JUMBF []byte
	XMP   []byte
}

// Empty reports whether all blobs are empty.
func (b *Blobs) Empty() bool {
	return len(b.Exif) == 0 && len(b.IPTC) == 0 && len(b.JUMBF) == 0 && len(b.XMP) == 0
}

// CodecInterval maps between full-range external sample values and the
// interval [Min, Min+Width].
type CodecInterval struct {
	Min   float32
	Width float32
}

// DefaultInterval is the unit interval.
func DefaultInterval() CodecInterval {
	return CodecInterval{Min: 0, Width: 1}
}

// NewCodecInterval returns the interval [lo, hi].
func NewCodecInterval(lo, hi float32) CodecInterval {
	return CodecInterval{Min: lo, Width: hi - lo}
}

// CodecIntervals holds one interval per channel: RGB[A] or Y[A].
type CodecIntervals [4]CodecInterval

// ToUnit maps v from the interval onto [0, 1], clamping.
func (ci CodecInterval) ToUnit(v float32) float32 {
	if ci.Width == 0 {
		return 0
	}
	u := (v - ci.Min) / ci.Width
	return max(0, min(1, u))
}

// FromUnit maps u in [0, 1] back into the interval.
func (ci CodecInterval) FromUnit(u float32) float32 {
	return ci.Min + u*ci.Width
}
