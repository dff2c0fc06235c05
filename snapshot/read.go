package snapshot

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/mrjoshuak/go-codecio/codecio"
	"github.com/mrjoshuak/go-codecio/compression"
	"github.com/mrjoshuak/go-codecio/internal/shuffle"
	"github.com/mrjoshuak/go-codecio/internal/xdr"
	"github.com/mrjoshuak/go-codecio/noise"
)

// Unmarshal decodes a snapshot into a new session bounded by limits.
func Unmarshal(data []byte, limits codecio.Limits) (*codecio.InOut, error) {
	c := codecio.New()
	c.Limits = limits
	if err := UnmarshalInto(c, data); err != nil {
		return nil, err
	}
	return c, nil
}

// UnmarshalInto decodes a snapshot into c, which must come straight from
// codecio.New. c's Limits and logger apply. The decoded session is checked
// with CheckMetadata before returning.
func UnmarshalInto(c *codecio.InOut, data []byte) error {
	d := &decoder{r: xdr.NewReader(data), c: c, log: c.Logger()}
	if err := d.decode(); err != nil {
		return err
	}
	return c.CheckMetadata()
}

type decoder struct {
	r   *xdr.Reader
	c   *codecio.InOut
	log logrus.FieldLogger
	err error
}

func corrupt(section string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorrupt, section, err)
}

// The read helpers record the first error and return zero values after it,
// so a section reads straight through and is checked once at its end.

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadByte()
	d.err = err
	return v
}

func (d *decoder) boolean() bool {
	if d.err != nil {
		return false
	}
	v, err := d.r.ReadBool()
	d.err = err
	return v
}

func (d *decoder) u16() uint16 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadUint16()
	d.err = err
	return v
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadUint32()
	d.err = err
	return v
}

func (d *decoder) i32() int32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadInt32()
	d.err = err
	return v
}

func (d *decoder) f32() float32 {
	if d.err != nil {
		return 0
	}
	v, err := d.r.ReadFloat32()
	d.err = err
	return v
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	v, err := d.r.ReadString(maxStringLen)
	d.err = err
	return v
}

func (d *decoder) sized() []byte {
	if d.err != nil {
		return nil
	}
	v, err := d.r.ReadSized(d.r.Len())
	d.err = err
	return v
}

// count reads an element count and rejects it if the remaining input
// cannot hold that many elements of at least minSize bytes.
func (d *decoder) count(minSize int) int {
	n := d.u32()
	if d.err == nil && uint64(n)*uint64(minSize) > uint64(d.r.Len()) {
		d.err = fmt.Errorf("count %d exceeds remaining input", n)
		return 0
	}
	return int(n)
}

func (d *decoder) check(section string) error {
	if d.err != nil {
		return corrupt(section, d.err)
	}
	return nil
}

func (d *decoder) decode() error {
	head, err := d.r.ReadBytes(len(magic))
	if err != nil || string(head) != magic {
		return ErrBadMagic
	}
	if v := d.u16(); d.err == nil && v != version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	c := d.c
	c.Target = codecio.DecodeTarget(d.u8())
	c.TargetNits = d.f32()
	c.UseAltJPEGEncoder = d.boolean()
	c.JPEGQuality = int(d.i32())
	if err := d.check("session"); err != nil {
		return err
	}
	if c.Target > codecio.DecodeToQuantizedCoeffs {
		return corrupt("session", fmt.Errorf("decode target %d", c.Target))
	}

	if err := d.readMetadata(); err != nil {
		return err
	}

	n := d.count(8)
	for i := 0; i < n && d.err == nil; i++ {
		k := d.str()
		v := d.str()
		if d.err == nil {
			c.Hints.Add(k, v)
		}
	}
	if err := d.check("hints"); err != nil {
		return err
	}

	if err := d.readBlobs(); err != nil {
		return err
	}

	if c.Metadata.HavePreview {
		start := d.r.Pos()
		header := codecio.PreviewHeader{Width: d.u32(), Height: d.u32()}
		if err := d.check("preview"); err != nil {
			return err
		}
		if err := c.VerifyDimensions(header.Width, header.Height); err != nil {
			return fmt.Errorf("snapshot: preview: %w", err)
		}
		if err := d.readBundle("preview", c.SetPreview(header)); err != nil {
			return err
		}
		d.log.WithFields(logrus.Fields{"section": "preview", "bytes": d.r.Pos() - start}).Debug("snapshot section read")
	}

	if c.Metadata.HaveAnimation {
		header := codecio.AnimationHeader{
			TicksPerSecondNumerator:   d.u32(),
			TicksPerSecondDenominator: d.u32(),
			NumLoops:                  d.u32(),
			HaveTimecodes:             d.boolean(),
		}
		records := make([]codecio.AnimationFrame, d.count(8))
		for i := range records {
			records[i] = codecio.AnimationFrame{Duration: d.u32(), Timecode: d.u32()}
		}
		if err := d.check("animation"); err != nil {
			return err
		}
		c.SetAnimation(header)
		c.Animation.Frames = records
	}

	numFrames := d.count(32)
	if err := d.check("frames"); err != nil {
		return err
	}
	if c.Animation == nil && numFrames != 1 {
		return corrupt("frames", fmt.Errorf("%d frames without animation", numFrames))
	}
	for i := 0; i < numFrames; i++ {
		start := d.r.Pos()
		var b *codecio.Bundle
		if c.Animation == nil {
			b = c.Main()
		} else {
			b = c.NewBundle()
			c.Frames = append(c.Frames, b)
		}
		if err := d.readBundle(fmt.Sprintf("frame %d", i), b); err != nil {
			return err
		}
		c.AddDecodedPixels(uint64(b.Width()) * uint64(b.Height()))
		d.log.WithFields(logrus.Fields{"section": "frame", "frame": i, "bytes": d.r.Pos() - start}).Debug("snapshot section read")
	}

	if d.r.Len() != 0 {
		return corrupt("trailer", fmt.Errorf("%d trailing bytes", d.r.Len()))
	}
	return nil
}

func (d *decoder) readMetadata() error {
	m := &d.c.Metadata
	m.BitDepth.BitsPerSample = d.u32()
	m.BitDepth.ExponentBitsPerSample = d.u32()
	m.ColorEncoding = d.readEncoding()
	m.IntensityTarget = d.f32()
	m.Orientation = d.u32()
	m.HavePreview = d.boolean()
	m.HaveAnimation = d.boolean()

	if d.boolean() {
		var q [noise.NumPoints]uint16
		for i := range q {
			q[i] = d.u16()
		}
		if d.err == nil {
			m.Noise, d.err = noise.Dequantize(q)
		}
	}
	return d.check("metadata")
}

func (d *decoder) readEncoding() codecio.ColorEncoding {
	e := codecio.ColorEncoding{
		ColorSpace: codecio.ColorSpace(d.u8()),
		WhitePoint: codecio.WhitePoint(d.u8()),
		Primaries:  codecio.Primaries(d.u8()),
		Transfer:   codecio.TransferFunction(d.u8()),
		Gamma:      d.f32(),
		Intent:     codecio.RenderingIntent(d.u8()),
		ICC:        d.sized(),
	}
	if d.err != nil {
		return e
	}
	switch {
	case e.ColorSpace > codecio.ColorSpaceUnknown,
		e.WhitePoint > codecio.WhiteCustom,
		e.Primaries > codecio.PrimariesCustom,
		e.Transfer > codecio.TransferGamma,
		e.Intent > codecio.IntentAbsolute:
		d.err = fmt.Errorf("color encoding enum out of range")
	}
	return e
}

func (d *decoder) readBlobs() error {
	method := compression.Method(d.u8())
	blobs := []*[]byte{&d.c.Blobs.Exif, &d.c.Blobs.IPTC, &d.c.Blobs.JUMBF, &d.c.Blobs.XMP}
	for _, dst := range blobs {
		size := d.u32()
		packed := d.sized()
		if d.err != nil {
			break
		}
		if size == 0 {
			continue
		}
		if size > MaxBlobSize {
			d.err = fmt.Errorf("blob of %d bytes exceeds %d", size, MaxBlobSize)
			break
		}
		*dst, d.err = compression.Decompress(method, packed, int(size))
	}
	return d.check("blobs")
}

func (d *decoder) readBundle(section string, b *codecio.Bundle) error {
	b.Header = codecio.FrameHeader{
		Name:     d.str(),
		Duration: d.u32(),
		Origin:   image.Pt(int(d.i32()), int(d.i32())),
		IsLast:   d.boolean(),
	}
	encoding := d.readEncoding()
	width, height := d.u32(), d.u32()
	if err := d.check(section); err != nil {
		return err
	}
	if err := d.c.VerifyDimensions(width, height); err != nil {
		return fmt.Errorf("snapshot: %s: %w", section, err)
	}

	numPlanes := 3
	if encoding.IsGray() {
		numPlanes = 1
	}
	w, h := int(width), int(height)
	samples := uint64(width) * uint64(height)
	// Image3F holds three float32 planes whatever numPlanes is. Dividing
	// keeps the bound itself from overflowing.
	if samples > uint64(maxInt)/(3*4) {
		return corrupt(section, fmt.Errorf("%dx%d image does not fit in memory", width, height))
	}

	var planes [][]float32
	switch kind := d.u8(); kind {
	case payloadFloat:
		method := compression.Method(d.u8())
		packed := d.sized()
		if err := d.check(section); err != nil {
			return err
		}
		raw, err := compression.Decompress(method, packed, int(samples)*numPlanes*4)
		if err != nil {
			return corrupt(section, err)
		}
		pr := xdr.NewReader(shuffle.Decode(raw))
		planes = make([][]float32, numPlanes)
		for c := range planes {
			planes[c] = make([]float32, samples)
			for i := range planes[c] {
				planes[c][i], _ = pr.ReadFloat32()
			}
		}
	case payloadHTJ2K:
		interval := codecio.CodecInterval{Min: d.f32(), Width: d.f32()}
		packed := d.sized()
		if err := d.check(section); err != nil {
			return err
		}
		q, err := compression.HTJ2KDecodePlanes(packed, w, h)
		if err != nil {
			return corrupt(section, err)
		}
		if len(q) != numPlanes {
			return corrupt(section, fmt.Errorf("%d planes, want %d", len(q), numPlanes))
		}
		planes = make([][]float32, numPlanes)
		for c := range planes {
			planes[c] = make([]float32, samples)
			for i, v := range q[c] {
				planes[c][i] = interval.FromUnit(float32(v) / 65535)
			}
		}
	default:
		if err := d.check(section); err != nil {
			return err
		}
		return corrupt(section, fmt.Errorf("payload kind %d", kind))
	}

	im := codecio.NewImage3F(w, h)
	for c := 0; c < 3; c++ {
		src := planes[min(c, numPlanes-1)]
		for y := 0; y < h; y++ {
			copy(im.Row(c, y), src[y*w:(y+1)*w])
		}
	}
	b.SetFromImage(im, encoding)
	return nil
}

const maxInt = int(^uint(0) >> 1)
