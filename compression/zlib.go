package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// Level is a zlib compression level, -2 to 9.
type Level int

const (
	LevelHuffmanOnly Level = -2
	LevelDefault     Level = -1
	LevelNone        Level = 0
	LevelBestSpeed   Level = 1
	LevelBestSize    Level = 9
)

// Pool for zlib writers at the default level.
type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// ZlibCompress compresses src at level.
func ZlibCompress(src []byte, level Level) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	if level == LevelDefault {
		item := zlibWriterPool.Get().(*zlibWriterPoolItem)
		defer zlibWriterPool.Put(item)
		item.buf.Reset()
		item.writer.Reset(item.buf)

		if _, err := item.writer.Write(src); err != nil {
			item.writer.Close()
			return nil, err
		}
		if err := item.writer.Close(); err != nil {
			return nil, err
		}
		return bytes.Clone(item.buf.Bytes()), nil
	}

	buf := new(bytes.Buffer)
	w, err := zlib.NewWriterLevel(buf, int(level))
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type zlibReaderPoolItem struct {
	reader io.ReadCloser
	src    *bytes.Reader
}

var zlibReaderPool = sync.Pool{
	New: func() any {
		return &zlibReaderPoolItem{src: bytes.NewReader(nil)}
	},
}

// ZlibDecompress decompresses src, which must expand to exactly
// expectedSize bytes.
func ZlibDecompress(src []byte, expectedSize int) ([]byte, error) {
	if len(src) == 0 {
		if expectedSize != 0 {
			return nil, ErrCorrupted
		}
		return nil, nil
	}

	item := zlibReaderPool.Get().(*zlibReaderPoolItem)
	defer zlibReaderPool.Put(item)
	item.src.Reset(src)

	var err error
	if r, ok := item.reader.(zlib.Resetter); ok {
		err = r.Reset(item.src, nil)
	} else {
		item.reader, err = zlib.NewReader(item.src)
	}
	if err != nil {
		item.reader = nil
		return nil, ErrCorrupted
	}

	return readExact(item.reader, expectedSize, len(src))
}
