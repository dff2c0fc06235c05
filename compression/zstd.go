package compression

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// ZstdCompress compresses src as a single zstd frame.
func ZstdCompress(src []byte) ([]byte, error) {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	return enc.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

// ZstdDecompress decompresses src, which must expand to exactly
// expectedSize bytes. Decoding stops one byte past expectedSize.
func ZstdDecompress(src []byte, expectedSize int) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	if err := dec.Reset(bytes.NewReader(src)); err != nil {
		return nil, ErrCorrupted
	}
	return readExact(dec, expectedSize, len(src))
}
