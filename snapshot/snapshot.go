// Package snapshot serializes a whole codecio session into a single byte
// slice and back. Snapshots hand sessions between processes and serve as
// test fixtures; they are not an image codec.
//
// Layout (little-endian):
//
//	magic "CIOSNAP\x00"  version uint16
//	session fields, metadata, hints, blobs
//	preview (if HavePreview), animation (if HaveAnimation)
//	frame count uint32, frames
//
// Every bundle stores its dimensions ahead of its pixels. Unmarshal passes
// them through the session's VerifyDimensions before allocating.
package snapshot

import (
	"errors"

	"github.com/mrjoshuak/go-codecio/codecio"
	"github.com/mrjoshuak/go-codecio/compression"
)

// Snapshot errors
var (
	// ErrCorrupt reports malformed snapshot data. Dimension rejections are
	// reported as codecio resource-limit errors instead.
	ErrCorrupt = errors.New("snapshot: corrupt data")

	ErrBadMagic           = errors.New("snapshot: not a session snapshot")
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
)

const (
	magic   = "CIOSNAP\x00"
	version = 1

	// maxStringLen bounds hint keys, values and frame names.
	maxStringLen = 1 << 16
)

// MaxBlobSize bounds each uncompressed Exif, IPTC, JUMBF and XMP blob.
// Marshal refuses larger blobs and Unmarshal rejects larger declared sizes
// before decompressing.
const MaxBlobSize = 1 << 26

// PreviewCodec selects how preview pixels are stored.
type PreviewCodec uint8

const (
	// PreviewFloat stores float32 planes with Options.PlaneMethod.
	PreviewFloat PreviewCodec = iota
	// PreviewHTJ2K maps samples through Options.PreviewInterval to 16 bits
	// and stores them as lossless HTJ2K. Values outside the interval are
	// clamped. When the 16-bit planes do not survive the codec exactly,
	// the preview is stored as with PreviewFloat.
	PreviewHTJ2K
)

func (p PreviewCodec) String() string {
	if p == PreviewHTJ2K {
		return "htj2k"
	}
	return "float"
}

// Options configures Marshal.
type Options struct {
	// BlobMethod compresses Exif, IPTC, JUMBF and XMP.
	BlobMethod compression.Method

	// PlaneMethod compresses float planes.
	PlaneMethod compression.Method

	PreviewCodec    PreviewCodec
	PreviewInterval codecio.CodecInterval
}

// DefaultOptions returns zlib blobs, zstd planes and a float preview.
func DefaultOptions() Options {
	return Options{
		BlobMethod:      compression.Zlib,
		PlaneMethod:     compression.Zstd,
		PreviewCodec:    PreviewFloat,
		PreviewInterval: codecio.DefaultInterval(),
	}
}

// payload kinds stored ahead of bundle pixels
const (
	payloadFloat byte = iota
	payloadHTJ2K
)
