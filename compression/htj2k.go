package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mrjoshuak/go-jpeg2000"
)

// HTJ2K errors
var (
	ErrHTJ2KInvalidMagic = errors.New("compression: invalid HTJ2K magic number")
	ErrHTJ2KPlanes       = errors.New("compression: HTJ2K needs 1 or 3 planes of width*height samples")
	ErrHTJ2KTooLarge     = errors.New("compression: HTJ2K plane exceeds MaxHTJ2KSamples")

	// ErrHTJ2KNotLossless is returned by HTJ2KEncodePlanes when its output
	// does not decode back to the input.
	ErrHTJ2KNotLossless = errors.New("compression: HTJ2K output does not round-trip")
)

// MaxHTJ2KSamples bounds the samples per plane the HTJ2K codec accepts.
// The codestream decoder allocates from its own header, so the bound is
// enforced before decoding.
const MaxHTJ2KSamples = 1 << 24

// The HTJ2K payload is a small header followed by a raw J2K codestream.
const (
	htj2kMagic      uint16 = 0x4854 // "HT"
	htj2kHeaderSize        = 3      // magic (2) + plane count (1)
	htj2kBlockSize         = 32
)

// HTJ2KEncodePlanes losslessly encodes one (gray) or three (RGB) 16-bit
// planes of width x height samples with high-throughput JPEG 2000. The
// output is decoded again before it is returned; any difference from the
// input yields ErrHTJ2KNotLossless.
func HTJ2KEncodePlanes(planes [][]uint16, width, height int) ([]byte, error) {
	if (len(planes) != 1 && len(planes) != 3) || width <= 0 || height <= 0 {
		return nil, ErrHTJ2KPlanes
	}
	if uint64(width)*uint64(height) > MaxHTJ2KSamples {
		return nil, ErrHTJ2KTooLarge
	}
	for _, p := range planes {
		if len(p) != width*height {
			return nil, ErrHTJ2KPlanes
		}
	}

	var img image.Image
	if len(planes) == 1 {
		g := image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g.SetGray16(x, y, color.Gray16{Y: planes[0][y*width+x]})
			}
		}
		img = g
	} else {
		rgb := image.NewNRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := y*width + x
				rgb.SetNRGBA64(x, y, color.NRGBA64{R: planes[0][i], G: planes[1][i], B: planes[2][i], A: 0xFFFF})
			}
		}
		img = rgb
	}

	// Start from the library defaults so code block size, layer count and
	// progression order are valid; a zero layer count carries no
	// coefficients at all.
	opts := jpeg2000.DefaultOptions()
	opts.Format = jpeg2000.FormatJ2K
	opts.Lossless = true
	opts.Quality = 0
	opts.NumLayers = 1
	opts.Precision = 16
	opts.HighThroughput = true
	opts.HTBlockWidth = htj2kBlockSize
	opts.HTBlockHeight = htj2kBlockSize
	opts.NumResolutions = htj2kResolutions(width, height)

	var out bytes.Buffer
	out.Grow(htj2kHeaderSize + width*height*len(planes))
	var hdr [htj2kHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[:2], htj2kMagic)
	hdr[2] = byte(len(planes))
	out.Write(hdr[:])
	if err := jpeg2000.Encode(&out, img, opts); err != nil {
		return nil, fmt.Errorf("htj2k: jpeg2000 encode failed: %w", err)
	}

	// Lossless is verified, not assumed.
	decoded, err := HTJ2KDecodePlanes(out.Bytes(), width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTJ2KNotLossless, err)
	}
	for c := range planes {
		for i, v := range planes[c] {
			if decoded[c][i] != v {
				return nil, fmt.Errorf("%w: plane %d sample %d = %d, want %d", ErrHTJ2KNotLossless, c, i, decoded[c][i], v)
			}
		}
	}
	return out.Bytes(), nil
}

// htj2kResolutions returns 6 (five decomposition levels) unless the image
// is too small to halve that often.
func htj2kResolutions(width, height int) int {
	n := 1
	for d := min(width, height); d > 1 && n < 6; d >>= 1 {
		n++
	}
	return n
}

// HTJ2KDecodePlanes decodes a payload written by HTJ2KEncodePlanes. The
// codestream must declare exactly width x height.
func HTJ2KDecodePlanes(src []byte, width, height int) ([][]uint16, error) {
	if len(src) < htj2kHeaderSize {
		return nil, ErrCorrupted
	}
	if binary.BigEndian.Uint16(src[:2]) != htj2kMagic {
		return nil, ErrHTJ2KInvalidMagic
	}
	numPlanes := int(src[2])
	if numPlanes != 1 && numPlanes != 3 {
		return nil, ErrHTJ2KPlanes
	}
	if width <= 0 || height <= 0 {
		return nil, ErrHTJ2KPlanes
	}
	if uint64(width)*uint64(height) > MaxHTJ2KSamples {
		return nil, ErrHTJ2KTooLarge
	}

	// The codestream header is checked before any sample is decoded.
	codestream := src[htj2kHeaderSize:]
	meta, err := jpeg2000.DecodeMetadata(bytes.NewReader(codestream))
	if err != nil {
		return nil, fmt.Errorf("htj2k: jpeg2000 header: %w", err)
	}
	if meta.Width != width || meta.Height != height {
		return nil, fmt.Errorf("%w: codestream is %dx%d, want %dx%d", ErrSizeMismatch, meta.Width, meta.Height, width, height)
	}
	if meta.NumComponents < numPlanes {
		return nil, fmt.Errorf("%w: %d components for %d planes", ErrHTJ2KPlanes, meta.NumComponents, numPlanes)
	}

	img, err := jpeg2000.Decode(bytes.NewReader(codestream))
	if err != nil {
		return nil, fmt.Errorf("htj2k: jpeg2000 decode failed: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return nil, fmt.Errorf("%w: decoded %dx%d, want %dx%d", ErrSizeMismatch, b.Dx(), b.Dy(), width, height)
	}

	planes := make([][]uint16, numPlanes)
	for i := range planes {
		planes[i] = make([]uint16, width*height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if numPlanes == 1 {
				planes[0][i] = color.Gray16Model.Convert(c).(color.Gray16).Y
				continue
			}
			n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
			planes[0][i], planes[1][i], planes[2][i] = n.R, n.G, n.B
		}
	}
	return planes, nil
}
