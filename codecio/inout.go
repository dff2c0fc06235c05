// Package codecio holds everything a decoder produces and an encoder
// consumes: canvas geometry, one or more frames, an optional preview,
// shared metadata, auxiliary blobs and the noise model.
//
// A decoder creates an InOut with New, sets Limits and Hints, passes every
// dimension it reads through VerifyDimensions before allocating, fills
// Metadata once, then appends frames as it parses them. CheckMetadata
// re-validates the whole session before it is handed on.
//
// An InOut is owned by one pipeline stage at a time. It must not be copied;
// use Take to hand it to the next stage.
package codecio

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// noCopy makes go vet report value copies of the struct that embeds it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// InOut is the decode output / encode input of one image.
type InOut struct {
	_ noCopy

	// Limits bounds the dimensions VerifyDimensions accepts.
	Limits Limits

	// Hints carries out-of-band information for decoders, such as the
	// color space of formats without color metadata.
	Hints DecoderHints

	// Target selects pixels or quantized coefficients for JPEG input.
	Target DecodeTarget

	// TargetNits is the intended white luminance for codecs that do not
	// store absolute luminance. 0 lets the codec decide.
	TargetNits float32

	Blobs Blobs

	// Metadata applies to the preview and every frame. It may be assigned
	// as a whole; the binding of bundles to the session lives in the
	// session, not in Metadata.
	Metadata ImageMetadata

	// Preview is non-nil iff Metadata.HavePreview.
	Preview *Preview

	// Animation is non-nil iff Metadata.HaveAnimation.
	Animation *Animation

	// Frames has exactly one entry unless Metadata.HaveAnimation.
	Frames []*Bundle

	// UseAltJPEGEncoder and JPEGQuality configure JPEG output.
	UseAltJPEGEncoder bool
	JPEGQuality       int

	ref MetadataRef

	decodedPixels uint64

	encoderOutputSet     bool
	encodedSize          uint64
	encoderBitsPerSample uint64

	log logrus.FieldLogger
}

// New returns a session with unbounded limits and one empty frame.
func New() *InOut {
	c := &InOut{
		Limits: Unbounded(),
		log:    discardLogger(),
		ref:    newMetadataRef(),
	}
	c.Frames = []*Bundle{c.NewBundle()}
	return c
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLogger sets the logger used for debug events. nil disables logging.
func (c *InOut) SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = discardLogger()
	}
	c.log = l
}

// Logger returns the session logger.
func (c *InOut) Logger() logrus.FieldLogger {
	return c.log
}

// Take moves the session into a new InOut and leaves c empty, with no
// frames and fresh metadata. Bundles keep their binding because the
// metadata ref moves with them.
func (c *InOut) Take() *InOut {
	moved := &InOut{
		Limits:               c.Limits,
		Hints:                c.Hints,
		Target:               c.Target,
		TargetNits:           c.TargetNits,
		Blobs:                c.Blobs,
		Metadata:             c.Metadata,
		Preview:              c.Preview,
		Animation:            c.Animation,
		Frames:               c.Frames,
		ref:                  c.ref,
		UseAltJPEGEncoder:    c.UseAltJPEGEncoder,
		JPEGQuality:          c.JPEGQuality,
		decodedPixels:        c.decodedPixels,
		encoderOutputSet:     c.encoderOutputSet,
		encodedSize:          c.encodedSize,
		encoderBitsPerSample: c.encoderBitsPerSample,
		log:                  c.log,
	}
	log := c.log
	*c = InOut{Limits: Unbounded(), log: log, ref: newMetadataRef()}
	return moved
}

// MetadataRef returns the identity that bundles bound to this session
// carry.
func (c *InOut) MetadataRef() MetadataRef {
	return c.ref
}

// NewBundle returns an empty bundle bound to this session's metadata. It
// is not added to the session.
func (c *InOut) NewBundle() *Bundle {
	return NewBundle(c.ref)
}

// Main returns the only frame. It panics if the session holds an
// animation with more than one frame.
func (c *InOut) Main() *Bundle {
	if len(c.Frames) != 1 {
		panic(fmt.Sprintf("codecio: Main called with %d frames", len(c.Frames)))
	}
	return c.Frames[0]
}

// SetFromImage sets the pixels of the main frame. If encoding is gray,
// all planes must be identical.
func (c *InOut) SetFromImage(color *Image3F, encoding ColorEncoding) {
	c.Main().SetFromImage(color, encoding)
}

// SetPreview marks the session as having a preview and returns its empty
// bundle for the decoder to fill.
func (c *InOut) SetPreview(header PreviewHeader) *Bundle {
	c.Metadata.HavePreview = true
	b := c.NewBundle()
	b.Header.Name = "preview"
	c.Preview = &Preview{Header: header, Frame: b}
	return b
}

// SetAnimation marks the session as animated and removes all frames. Add
// them with AddFrame.
func (c *InOut) SetAnimation(header AnimationHeader) {
	c.Metadata.HaveAnimation = true
	c.Animation = &Animation{Header: header}
	c.Frames = nil
}

// AddFrame appends an animation frame and its record and returns the new
// bundle. It panics if SetAnimation was not called.
func (c *InOut) AddFrame(record AnimationFrame) *Bundle {
	if c.Animation == nil {
		panic("codecio: AddFrame without animation")
	}
	b := c.NewBundle()
	b.Header.Duration = record.Duration
	c.Animation.Frames = append(c.Animation.Frames, record)
	c.Frames = append(c.Frames, b)
	return b
}

// Width returns the canvas width, which is the first frame's width.
func (c *InOut) Width() int {
	if len(c.Frames) == 0 {
		return 0
	}
	return c.Frames[0].Width()
}

// Height returns the canvas height, which is the first frame's height.
func (c *InOut) Height() int {
	if len(c.Frames) == 0 {
		return 0
	}
	return c.Frames[0].Height()
}

// ShrinkTo crops every frame to width x height. The preview is unaffected.
func (c *InOut) ShrinkTo(width, height int) {
	for _, b := range c.Frames {
		b.ShrinkTo(width, height)
	}
}

// VerifyDimensions checks dimensions read from the input against Limits.
// Decoders must call it before allocating anything of that size.
func (c *InOut) VerifyDimensions(width, height uint32) error {
	err := c.Limits.Verify(width, height)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"width":  width,
			"height": height,
		}).WithError(err).Debug("dimensions rejected")
	}
	return err
}

// CheckMetadata verifies the consistency of the whole session. Call it once
// after parsing, before handing the session on.
func (c *InOut) CheckMetadata() error {
	m := &c.Metadata
	if m.BitDepth.BitsPerSample == 0 {
		return &ConsistencyError{Where: "metadata", Err: ErrNoBitDepth}
	}
	if len(m.ColorEncoding.ICC) == 0 {
		return &ConsistencyError{Where: "metadata", Err: ErrNoColorProfile}
	}

	if m.HavePreview != (c.Preview != nil) {
		return &ConsistencyError{Where: "preview", Err: ErrPreviewFlag}
	}
	if c.Preview != nil {
		if err := c.checkBundle("preview", c.Preview.Frame); err != nil {
			return err
		}
		h := c.Preview.Header
		if uint64(c.Preview.Frame.Width()) != uint64(h.Width) || uint64(c.Preview.Frame.Height()) != uint64(h.Height) {
			return &ConsistencyError{Where: "preview", Err: ErrPreviewSize}
		}
	}

	if m.HaveAnimation != (c.Animation != nil) {
		return &ConsistencyError{Where: "animation", Err: ErrAnimationFlag}
	}
	switch {
	case c.Animation == nil && len(c.Frames) != 1:
		return &ConsistencyError{Where: "frames", Err: fmt.Errorf("%w: %d frames without animation", ErrFrameCount, len(c.Frames))}
	case c.Animation != nil && (len(c.Frames) == 0 || len(c.Frames) != len(c.Animation.Frames)):
		return &ConsistencyError{Where: "frames", Err: fmt.Errorf("%w: %d frames, %d records", ErrFrameCount, len(c.Frames), len(c.Animation.Frames))}
	}

	for i, b := range c.Frames {
		if err := c.checkBundle(fmt.Sprintf("frame %d", i), b); err != nil {
			return err
		}
	}
	return nil
}

func (c *InOut) checkBundle(where string, b *Bundle) error {
	if b == nil {
		return &ConsistencyError{Where: where, Err: ErrNoPixels}
	}
	if err := b.VerifyMetadata(); err != nil {
		var ce *ConsistencyError
		if errors.As(err, &ce) {
			return &ConsistencyError{Where: where, Err: ce.Err}
		}
		return &ConsistencyError{Where: where, Err: err}
	}
	if b.MetadataRef() != c.ref {
		return &ConsistencyError{Where: where, Err: ErrMetadataMismatch}
	}
	if b.IsGray() != c.Metadata.ColorEncoding.IsGray() {
		return &ConsistencyError{Where: where, Err: ErrGrayMismatch}
	}
	return nil
}

// TransformTo converts the preview, if any, and then every frame to
// desired, in that order. exec may parallelize rows within a bundle.
//
// It stops at the first failure and returns it. Bundles converted before
// the failure stay converted: the session's color state is then mixed and
// the session should be discarded.
func (c *InOut) TransformTo(desired ColorEncoding, exec Executor) error {
	if c.Metadata.HavePreview && c.Preview != nil {
		if err := c.Preview.Frame.TransformTo(desired, exec); err != nil {
			c.log.WithError(err).Debug("preview transform failed")
			return fmt.Errorf("codecio: preview: %w", err)
		}
	}
	for i, b := range c.Frames {
		if err := b.TransformTo(desired, exec); err != nil {
			c.log.WithError(err).WithField("frame", i).Debug("frame transform failed")
			return fmt.Errorf("codecio: frame %d: %w", i, err)
		}
	}
	return nil
}

// AddDecodedPixels adds n to the decoded pixel count.
func (c *InOut) AddDecodedPixels(n uint64) {
	c.decodedPixels += n
}

// DecodedPixels returns the number of pixels decoded so far. Cropped
// frames make it differ from frames * width * height.
func (c *InOut) DecodedPixels() uint64 {
	return c.decodedPixels
}

// SetEncoderOutput records the encoded size in bytes and the encoder's
// effective bits per sample. It may be called once.
func (c *InOut) SetEncoderOutput(size, bitsPerSample uint64) error {
	if c.encoderOutputSet {
		return ErrEncoderOutputSet
	}
	c.encoderOutputSet = true
	c.encodedSize = size
	c.encoderBitsPerSample = bitsPerSample
	return nil
}

// EncodedSize returns the size of the encoded bitstream in bytes.
func (c *InOut) EncodedSize() uint64 {
	return c.encodedSize
}

// EncoderBitsPerSample returns the encoder's effective bits per sample,
// used to derive round-trip error tolerances.
func (c *InOut) EncoderBitsPerSample() uint64 {
	return c.encoderBitsPerSample
}
