// Package compression provides the payload codecs used by session
// snapshots: zlib for metadata blobs, zstd for float planes and lossless
// HTJ2K for 16-bit preview planes.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Compression errors
var (
	ErrUnknownMethod = errors.New("compression: unknown method")
	ErrCorrupted     = errors.New("compression: corrupted data")
	ErrSizeMismatch  = errors.New("compression: decompressed size mismatch")
)

// Method identifies a byte-stream codec.
type Method uint8

const (
	None Method = iota
	Zlib
	Zstd
)

func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Method(%d)", m)
	}
}

// ParseMethod returns the method named s.
func ParseMethod(s string) (Method, error) {
	for m := None; m <= Zstd; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Compress encodes src with m.
func Compress(m Method, src []byte) ([]byte, error) {
	switch m {
	case None:
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	case Zlib:
		return ZlibCompress(src, LevelDefault)
	case Zstd:
		return ZstdCompress(src)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, m)
	}
}

// Decompress decodes src, which must expand to exactly expectedSize bytes.
// Output beyond expectedSize is never materialized, and memory grows with
// the output actually produced rather than with expectedSize.
func Decompress(m Method, src []byte, expectedSize int) ([]byte, error) {
	switch m {
	case None:
		if len(src) != expectedSize {
			return nil, ErrSizeMismatch
		}
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	case Zlib:
		return ZlibDecompress(src, expectedSize)
	case Zstd:
		return ZstdDecompress(src, expectedSize)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, m)
	}
}

// readExact reads r to its end and requires exactly expectedSize bytes. The
// buffer starts from a size derived from the compressed length and grows
// with the data, so a forged expectedSize allocates nothing up front.
func readExact(r io.Reader, expectedSize, compressedSize int) ([]byte, error) {
	if expectedSize < 0 {
		return nil, ErrSizeMismatch
	}
	var buf bytes.Buffer
	buf.Grow(min(expectedSize, 4*compressedSize+512))
	n, err := io.Copy(&buf, io.LimitReader(r, int64(expectedSize)+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrSizeMismatch
		}
		return nil, ErrCorrupted
	}
	if n != int64(expectedSize) {
		return nil, ErrSizeMismatch
	}
	return buf.Bytes(), nil
}
