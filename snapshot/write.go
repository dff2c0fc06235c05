package snapshot

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/mrjoshuak/go-codecio/codecio"
	"github.com/mrjoshuak/go-codecio/compression"
	"github.com/mrjoshuak/go-codecio/internal/shuffle"
	"github.com/mrjoshuak/go-codecio/internal/xdr"
)

// Marshal serializes c. The session must pass CheckMetadata, and its noise
// curve must quantize.
func Marshal(c *codecio.InOut, opts Options) ([]byte, error) {
	if err := c.CheckMetadata(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	log := c.Logger()
	w := xdr.NewBufferWriter(1024)
	w.WriteBytes([]byte(magic))
	w.WriteUint16(version)

	w.WriteByte(byte(c.Target))
	w.WriteFloat32(c.TargetNits)
	w.WriteBool(c.UseAltJPEGEncoder)
	w.WriteInt32(int32(c.JPEGQuality))

	if err := writeMetadata(w, &c.Metadata); err != nil {
		return nil, err
	}

	w.WriteUint32(uint32(c.Hints.Len()))
	for k, v := range c.Hints.All() {
		w.WriteString(k)
		w.WriteString(v)
	}

	start := w.Len()
	w.WriteByte(byte(opts.BlobMethod))
	for _, blob := range [][]byte{c.Blobs.Exif, c.Blobs.IPTC, c.Blobs.JUMBF, c.Blobs.XMP} {
		if len(blob) > MaxBlobSize {
			return nil, fmt.Errorf("snapshot: blob of %d bytes exceeds %d", len(blob), MaxBlobSize)
		}
		packed, err := compression.Compress(opts.BlobMethod, blob)
		if err != nil {
			return nil, fmt.Errorf("snapshot: blobs: %w", err)
		}
		w.WriteUint32(uint32(len(blob)))
		w.WriteSized(packed)
	}
	log.WithFields(logrus.Fields{"section": "blobs", "bytes": w.Len() - start}).Debug("snapshot section written")

	if c.Preview != nil {
		start = w.Len()
		w.WriteUint32(c.Preview.Header.Width)
		w.WriteUint32(c.Preview.Header.Height)
		if err := writeBundle(w, c.Preview.Frame, opts, opts.PreviewCodec == PreviewHTJ2K, log); err != nil {
			return nil, fmt.Errorf("snapshot: preview: %w", err)
		}
		log.WithFields(logrus.Fields{"section": "preview", "bytes": w.Len() - start}).Debug("snapshot section written")
	}

	if c.Animation != nil {
		h := c.Animation.Header
		w.WriteUint32(h.TicksPerSecondNumerator)
		w.WriteUint32(h.TicksPerSecondDenominator)
		w.WriteUint32(h.NumLoops)
		w.WriteBool(h.HaveTimecodes)
		w.WriteUint32(uint32(len(c.Animation.Frames)))
		for _, f := range c.Animation.Frames {
			w.WriteUint32(f.Duration)
			w.WriteUint32(f.Timecode)
		}
	}

	w.WriteUint32(uint32(len(c.Frames)))
	for i, b := range c.Frames {
		start = w.Len()
		if err := writeBundle(w, b, opts, false, log); err != nil {
			return nil, fmt.Errorf("snapshot: frame %d: %w", i, err)
		}
		log.WithFields(logrus.Fields{"section": "frame", "frame": i, "bytes": w.Len() - start}).Debug("snapshot section written")
	}
	return w.Bytes(), nil
}

func writeMetadata(w *xdr.BufferWriter, m *codecio.ImageMetadata) error {
	w.WriteUint32(m.BitDepth.BitsPerSample)
	w.WriteUint32(m.BitDepth.ExponentBitsPerSample)
	writeEncoding(w, m.ColorEncoding)
	w.WriteFloat32(m.IntensityTarget)
	w.WriteUint32(m.Orientation)
	w.WriteBool(m.HavePreview)
	w.WriteBool(m.HaveAnimation)

	w.WriteBool(m.Noise.HasAny())
	if m.Noise.HasAny() {
		q, err := m.Noise.Quantize()
		if err != nil {
			return fmt.Errorf("snapshot: noise: %w", err)
		}
		for _, v := range q {
			w.WriteUint16(v)
		}
	}
	return nil
}

func writeEncoding(w *xdr.BufferWriter, e codecio.ColorEncoding) {
	w.WriteByte(byte(e.ColorSpace))
	w.WriteByte(byte(e.WhitePoint))
	w.WriteByte(byte(e.Primaries))
	w.WriteByte(byte(e.Transfer))
	w.WriteFloat32(e.Gamma)
	w.WriteByte(byte(e.Intent))
	w.WriteSized(e.ICC)
}

// writeBundle stores b's pixels. An HTJ2K request that does not round-trip
// falls back to float planes.
func writeBundle(w *xdr.BufferWriter, b *codecio.Bundle, opts Options, htj2k bool, log logrus.FieldLogger) error {
	h := b.Header
	w.WriteString(h.Name)
	w.WriteUint32(h.Duration)
	w.WriteInt32(int32(h.Origin.X))
	w.WriteInt32(int32(h.Origin.Y))
	w.WriteBool(h.IsLast)
	writeEncoding(w, b.Encoding())

	width, height := b.Width(), b.Height()
	w.WriteUint32(uint32(width))
	w.WriteUint32(uint32(height))
	im := b.Color()

	if htj2k {
		planes := make([][]uint16, b.Planes())
		for c := range planes {
			planes[c] = make([]uint16, 0, width*height)
			for y := 0; y < height; y++ {
				for _, v := range im.Row(c, y) {
					u := opts.PreviewInterval.ToUnit(v)
					planes[c] = append(planes[c], uint16(math.Round(float64(u)*65535)))
				}
			}
		}
		packed, err := compression.HTJ2KEncodePlanes(planes, width, height)
		switch {
		case err == nil:
			w.WriteByte(payloadHTJ2K)
			w.WriteFloat32(opts.PreviewInterval.Min)
			w.WriteFloat32(opts.PreviewInterval.Width)
			w.WriteSized(packed)
			return nil
		case errors.Is(err, compression.ErrHTJ2KNotLossless), errors.Is(err, compression.ErrHTJ2KTooLarge):
			log.WithError(err).Warn("HTJ2K preview unavailable, storing float planes")
		default:
			return err
		}
	}

	raw := xdr.NewBufferWriter(b.Planes() * width * height * 4)
	for c := 0; c < b.Planes(); c++ {
		for y := 0; y < height; y++ {
			for _, v := range im.Row(c, y) {
				raw.WriteFloat32(v)
			}
		}
	}
	packed, err := compression.Compress(opts.PlaneMethod, shuffle.Encode(raw.Bytes()))
	if err != nil {
		return err
	}
	w.WriteByte(payloadFloat)
	w.WriteByte(byte(opts.PlaneMethod))
	w.WriteSized(packed)
	return nil
}
