package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"math"
	"runtime"
	"testing"

	"github.com/mrjoshuak/go-codecio/codecio"
	"github.com/mrjoshuak/go-codecio/compression"
	"github.com/mrjoshuak/go-codecio/noise"
)

func gradient(width, height int) *codecio.Image3F {
	im := codecio.NewImage3F(width, height)
	for c := 0; c < 3; c++ {
		for y := 0; y < height; y++ {
			row := im.Row(c, y)
			for x := range row {
				row[x] = float32(x+y*width+c) / float32(width*height+3)
			}
		}
	}
	return im
}

func stillSession() *codecio.InOut {
	c := codecio.New()
	c.Metadata.BitDepth.BitsPerSample = 8
	c.Metadata.ColorEncoding = codecio.SRGB(false)
	c.Metadata.Orientation = 1
	c.Metadata.Noise.Lut = [noise.NumPoints]float32{0.1, 0.2, 0.3, 0.25, 0.2, 0.1, 0.05, 0}
	c.Hints.Add(codecio.HintColorSpace, "RGB_D65_SRG_Rel_SRG")
	c.Hints.Add("note", "first")
	c.Hints.Add("note", "second")
	c.Blobs.Exif = []byte("Exif\x00\x00MM\x00*")
	c.Blobs.XMP = bytes.Repeat([]byte("<x:xmpmeta/>"), 20)
	c.Target = codecio.DecodeToQuantizedCoeffs
	c.TargetNits = 255
	c.JPEGQuality = 90
	c.SetFromImage(gradient(12, 7), codecio.SRGB(false))
	c.Main().Header.Name = "main"
	return c
}

func animatedSession() *codecio.InOut {
	c := codecio.New()
	c.Metadata.BitDepth.BitsPerSample = 16
	c.Metadata.ColorEncoding = codecio.SRGB(true)
	c.SetPreview(codecio.PreviewHeader{Width: 4, Height: 3}).SetFromImage(grayOf(gradient(4, 3)), codecio.SRGB(true))
	c.SetAnimation(codecio.AnimationHeader{TicksPerSecondNumerator: 1000, TicksPerSecondDenominator: 1, NumLoops: 2})
	for i := 0; i < 3; i++ {
		b := c.AddFrame(codecio.AnimationFrame{Duration: uint32(10 * (i + 1))})
		b.SetFromImage(grayOf(gradient(6, 5)), codecio.SRGB(true))
		b.Header.Origin = image.Pt(i, -i)
		b.Header.IsLast = i == 2
	}
	return c
}

// grayOf copies plane 0 into planes 1 and 2.
func grayOf(im *codecio.Image3F) *codecio.Image3F {
	for y := 0; y < im.Height(); y++ {
		copy(im.Row(1, y), im.Row(0, y))
		copy(im.Row(2, y), im.Row(0, y))
	}
	return im
}

func samePixels(t *testing.T, name string, got, want *codecio.Bundle, tol float64) {
	t.Helper()
	if got.Width() != want.Width() || got.Height() != want.Height() {
		t.Fatalf("%s: size %dx%d, want %dx%d", name, got.Width(), got.Height(), want.Width(), want.Height())
	}
	for c := 0; c < 3; c++ {
		for y := 0; y < want.Height(); y++ {
			g, w := got.Color().Row(c, y), want.Color().Row(c, y)
			for x := range w {
				if math.Abs(float64(g[x]-w[x])) > tol {
					t.Fatalf("%s: plane %d (%d,%d) = %v, want %v", name, c, x, y, g[x], w[x])
				}
			}
		}
	}
}

func TestRoundTripStill(t *testing.T) {
	for _, opts := range []Options{
		DefaultOptions(),
		{BlobMethod: compression.None, PlaneMethod: compression.None},
		{BlobMethod: compression.Zstd, PlaneMethod: compression.Zlib},
	} {
		t.Run(opts.PlaneMethod.String(), func(t *testing.T) {
			src := stillSession()
			data, err := Marshal(src, opts)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			got, err := Unmarshal(data, codecio.Unbounded())
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if got.Target != src.Target || got.TargetNits != src.TargetNits || got.JPEGQuality != src.JPEGQuality {
				t.Errorf("session fields = %v/%v/%v", got.Target, got.TargetNits, got.JPEGQuality)
			}
			if got.Metadata.BitDepth != src.Metadata.BitDepth {
				t.Errorf("BitDepth = %+v, want %+v", got.Metadata.BitDepth, src.Metadata.BitDepth)
			}
			if !got.Metadata.ColorEncoding.SameColorEncoding(src.Metadata.ColorEncoding) {
				t.Errorf("ColorEncoding = %v, want %v", got.Metadata.ColorEncoding, src.Metadata.ColorEncoding)
			}
			for i, v := range src.Metadata.Noise.Lut {
				if d := math.Abs(float64(got.Metadata.Noise.Lut[i] - v)); d > 0.5/noise.Precision {
					t.Errorf("Noise.Lut[%d] = %v, want %v", i, got.Metadata.Noise.Lut[i], v)
				}
			}

			var keys []string
			for k, v := range got.Hints.All() {
				keys = append(keys, k+"="+v)
			}
			want := []string{"color_space=RGB_D65_SRG_Rel_SRG", "note=first", "note=second"}
			if len(keys) != len(want) {
				t.Fatalf("hints = %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("hint %d = %q, want %q", i, keys[i], want[i])
				}
			}

			if !bytes.Equal(got.Blobs.Exif, src.Blobs.Exif) || !bytes.Equal(got.Blobs.XMP, src.Blobs.XMP) {
				t.Error("blobs differ after round trip")
			}
			if len(got.Blobs.IPTC) != 0 || len(got.Blobs.JUMBF) != 0 {
				t.Error("empty blobs became non-empty")
			}

			if got.Main().Header.Name != "main" {
				t.Errorf("frame name = %q, want main", got.Main().Header.Name)
			}
			samePixels(t, "main", got.Main(), src.Main(), 0)
			if got.DecodedPixels() != 12*7 {
				t.Errorf("DecodedPixels() = %d, want %d", got.DecodedPixels(), 12*7)
			}
			if got.Main().MetadataRef() != got.MetadataRef() {
				t.Error("decoded frame not bound to decoded metadata")
			}
		})
	}
}

func TestRoundTripAnimated(t *testing.T) {
	src := animatedSession()
	data, err := Marshal(src, DefaultOptions())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Unmarshal(data, codecio.Unbounded())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Animation == nil || len(got.Frames) != 3 || len(got.Animation.Frames) != 3 {
		t.Fatalf("animation not restored: %+v, %d frames", got.Animation, len(got.Frames))
	}
	if got.Animation.Header != src.Animation.Header {
		t.Errorf("animation header = %+v, want %+v", got.Animation.Header, src.Animation.Header)
	}
	for i := range src.Frames {
		if got.Animation.Frames[i] != src.Animation.Frames[i] {
			t.Errorf("record %d = %+v, want %+v", i, got.Animation.Frames[i], src.Animation.Frames[i])
		}
		if got.Frames[i].Header != src.Frames[i].Header {
			t.Errorf("frame %d header = %+v, want %+v", i, got.Frames[i].Header, src.Frames[i].Header)
		}
		samePixels(t, "frame", got.Frames[i], src.Frames[i], 0)
	}
	if got.Preview == nil || got.Preview.Header != src.Preview.Header {
		t.Fatalf("preview = %+v, want header %+v", got.Preview, src.Preview.Header)
	}
	samePixels(t, "preview", got.Preview.Frame, src.Preview.Frame, 0)
	if !got.Preview.Frame.IsGray() {
		t.Error("preview lost gray encoding")
	}
}

func TestRoundTripHTJ2KPreview(t *testing.T) {
	src := animatedSession()
	opts := DefaultOptions()
	opts.PreviewCodec = PreviewHTJ2K
	data, err := Marshal(src, opts)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Unmarshal(data, codecio.Unbounded())
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	samePixels(t, "preview", got.Preview.Frame, src.Preview.Frame, 1.0/256)
	samePixels(t, "frame 0", got.Frames[0], src.Frames[0], 0)
}

func TestUnmarshalVerifiesDimensions(t *testing.T) {
	data, err := Marshal(stillSession(), DefaultOptions())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	tests := []struct {
		name   string
		limits codecio.Limits
		want   error
	}{
		{"too wide", codecio.Limits{MaxWidth: 11, MaxHeight: 100, MaxPixels: 1000}, codecio.ErrTooWide},
		{"too tall", codecio.Limits{MaxWidth: 100, MaxHeight: 6, MaxPixels: 1000}, codecio.ErrTooTall},
		{"too many pixels", codecio.Limits{MaxWidth: 100, MaxHeight: 100, MaxPixels: 83}, codecio.ErrTooManyPixels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(data, tt.limits)
			if !errors.Is(err, tt.want) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.want)
			}
			if !codecio.IsResourceLimit(err) {
				t.Error("IsResourceLimit() = false")
			}
			if errors.Is(err, ErrCorrupt) {
				t.Error("limit rejection reported as corrupt data")
			}
		})
	}

	if _, err := Unmarshal(data, codecio.Limits{MaxWidth: 12, MaxHeight: 7, MaxPixels: 84}); err != nil {
		t.Errorf("Unmarshal() at exact limits error = %v", err)
	}
}

func TestUnmarshalVerifiesPreviewDimensions(t *testing.T) {
	data, err := Marshal(animatedSession(), DefaultOptions())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	_, err = Unmarshal(data, codecio.Limits{MaxWidth: 3, MaxHeight: 100, MaxPixels: 1000})
	if !errors.Is(err, codecio.ErrTooWide) {
		t.Errorf("Unmarshal() error = %v, want ErrTooWide", err)
	}
}

func TestUnmarshalCorrupt(t *testing.T) {
	data, err := Marshal(stillSession(), DefaultOptions())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if _, err := Unmarshal([]byte("not a snapshot"), codecio.Unbounded()); !errors.Is(err, ErrBadMagic) {
		t.Errorf("bad magic error = %v, want ErrBadMagic", err)
	}

	bad := bytes.Clone(data)
	bad[len(magic)] = 99
	if _, err := Unmarshal(bad, codecio.Unbounded()); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("bad version error = %v, want ErrUnsupportedVersion", err)
	}

	for _, n := range []int{len(magic) + 2, len(data) / 2, len(data) - 1} {
		if _, err := Unmarshal(data[:n], codecio.Unbounded()); !errors.Is(err, ErrCorrupt) {
			t.Errorf("truncated to %d: error = %v, want ErrCorrupt", n, err)
		}
	}

	if _, err := Unmarshal(append(bytes.Clone(data), 0), codecio.Unbounded()); !errors.Is(err, ErrCorrupt) {
		t.Errorf("trailing byte error = %v, want ErrCorrupt", err)
	}
}

func TestMarshalRejectsInconsistentSession(t *testing.T) {
	c := stillSession()
	c.Metadata.BitDepth.BitsPerSample = 0
	if _, err := Marshal(c, DefaultOptions()); !errors.Is(err, codecio.ErrInconsistent) {
		t.Errorf("Marshal() error = %v, want ErrInconsistent", err)
	}
}

func TestMarshalRejectsUnquantizableNoise(t *testing.T) {
	c := stillSession()
	c.Metadata.Noise.Lut[3] = 1.5
	_, err := Marshal(c, DefaultOptions())
	if !errors.Is(err, noise.ErrQuantizationOverflow) {
		t.Errorf("Marshal() error = %v, want ErrQuantizationOverflow", err)
	}
	var qe *noise.QuantizationError
	if !errors.As(err, &qe) || qe.Index != 3 {
		t.Errorf("QuantizationError = %+v, want index 3", qe)
	}
}

// forgedFrame returns a snapshot of a 1x1 gray session whose frame header
// claims width x height while carrying an empty uncompressed payload.
func forgedFrame(t testing.TB, width, height uint32) []byte {
	t.Helper()
	c := codecio.New()
	c.Metadata.BitDepth.BitsPerSample = 8
	c.Metadata.ColorEncoding = codecio.SRGB(true)
	c.SetFromImage(codecio.NewImage3F(1, 1), codecio.SRGB(true))
	data, err := Marshal(c, Options{BlobMethod: compression.None, PlaneMethod: compression.None})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	// Frame tail: width, height, payload kind, method, payload size, one
	// float32 sample.
	n := len(data)
	binary.LittleEndian.PutUint32(data[n-18:], width)
	binary.LittleEndian.PutUint32(data[n-14:], height)
	binary.LittleEndian.PutUint32(data[n-8:], 0)
	return data[:n-4]
}

func TestUnmarshalHugeFrameUnbounded(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
	}{
		{"overflowing", 1 << 31, 1 << 31},
		{"max", math.MaxUint32, math.MaxUint32},
		{"large", 1 << 16, 1 << 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := forgedFrame(t, tt.width, tt.height)
			_, err := Unmarshal(data, codecio.Unbounded())
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Unmarshal() error = %v, want ErrCorrupt", err)
			}
			if codecio.IsResourceLimit(err) {
				t.Error("unbounded limits reported a resource limit error")
			}
		})
	}
}

// allocated returns the bytes allocated while fn runs.
func allocated(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestUnmarshalForgedBlobSize(t *testing.T) {
	exif := []byte("Exif\x00\x00MM\x00*")
	for _, tt := range []struct {
		method compression.Method
		size   uint32
	}{
		{compression.None, 1 << 30},
		{compression.Zlib, 1 << 30},
		{compression.Zlib, MaxBlobSize},
		{compression.Zstd, MaxBlobSize},
	} {
		t.Run(tt.method.String(), func(t *testing.T) {
			c := stillSession()
			c.Blobs.Exif = exif
			c.Blobs.XMP = nil
			data, err := Marshal(c, Options{BlobMethod: tt.method, PlaneMethod: compression.Zstd})
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			packed, err := compression.Compress(tt.method, exif)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			field := binary.LittleEndian.AppendUint32(nil, uint32(len(exif)))
			field = binary.LittleEndian.AppendUint32(field, uint32(len(packed)))
			field = append(field, packed...)
			at := bytes.Index(data, field)
			if at < 0 {
				t.Fatal("Exif field not found in snapshot")
			}
			binary.LittleEndian.PutUint32(data[at:], tt.size)

			var uerr error
			n := allocated(func() {
				_, uerr = Unmarshal(data, codecio.Limits{MaxWidth: 16, MaxHeight: 16, MaxPixels: 256})
			})
			if !errors.Is(uerr, ErrCorrupt) {
				t.Errorf("Unmarshal() error = %v, want ErrCorrupt", uerr)
			}
			if n > 16<<20 {
				t.Errorf("Unmarshal() allocated %d bytes for a %d byte input", n, len(data))
			}
		})
	}
}

func TestMarshalRejectsOversizedBlob(t *testing.T) {
	c := stillSession()
	c.Blobs.JUMBF = make([]byte, MaxBlobSize+1)
	if _, err := Marshal(c, DefaultOptions()); err == nil {
		t.Error("Marshal() accepted a blob larger than MaxBlobSize")
	}
}

func FuzzUnmarshal(f *testing.F) {
	for _, c := range []*codecio.InOut{stillSession(), animatedSession()} {
		data, err := Marshal(c, DefaultOptions())
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
	}
	f.Add([]byte(magic))
	f.Add(forgedFrame(f, 1<<31, 1<<31))
	f.Add(forgedFrame(f, 1<<16, 1<<16))
	bounded := codecio.Limits{MaxWidth: 256, MaxHeight: 256, MaxPixels: 1 << 14}

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, limits := range []codecio.Limits{bounded, codecio.Unbounded()} {
			c, err := Unmarshal(data, limits)
			if err != nil {
				continue
			}
			if err := c.CheckMetadata(); err != nil {
				t.Errorf("decoded session fails CheckMetadata: %v", err)
			}
		}
	})
}
