package codecio

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error returned by this package matches exactly one
// of these with errors.Is.
var (
	// ErrResourceLimit means input dimensions exceed the caller's Limits.
	// It is a policy rejection, not a sign of a corrupt bitstream.
	ErrResourceLimit = errors.New("codecio: resource limit exceeded")

	// ErrInconsistent means the session or a bundle violates an invariant.
	// It indicates a parser or construction bug upstream.
	ErrInconsistent = errors.New("codecio: inconsistent metadata")

	// ErrTransform means a color conversion could not be completed. Bundles
	// converted before the failure stay converted.
	ErrTransform = errors.New("codecio: color transform failed")
)

// Dimension errors
var (
	ErrEmptyImage    = errors.New("codecio: empty image")
	ErrTooWide       = errors.New("codecio: image too wide")
	ErrTooTall       = errors.New("codecio: image too tall")
	ErrTooManyPixels = errors.New("codecio: image too big")
)

// Consistency errors
var (
	ErrNoBitDepth       = errors.New("codecio: bits per sample is zero")
	ErrNoColorProfile   = errors.New("codecio: color profile is empty")
	ErrMetadataMismatch = errors.New("codecio: bundle bound to another metadata")
	ErrNoPixels         = errors.New("codecio: bundle has no pixels")
	ErrPlaneSize        = errors.New("codecio: plane size does not match bundle size")
	ErrGrayPlanes       = errors.New("codecio: gray bundle planes differ")
	ErrGrayMismatch     = errors.New("codecio: bundle and metadata disagree on gray")
	ErrPreviewFlag      = errors.New("codecio: preview presence does not match metadata")
	ErrPreviewSize      = errors.New("codecio: preview size does not match its header")
	ErrAnimationFlag    = errors.New("codecio: animation presence does not match metadata")
	ErrFrameCount       = errors.New("codecio: frame count does not match animation")
	ErrEncoderOutputSet = errors.New("codecio: encoder output already set")
)

// ErrUnsupportedTransform is wrapped by TransformError when no built-in
// conversion exists between two encodings.
var ErrUnsupportedTransform = errors.New("codecio: unsupported color transform")

// DimensionError reports which resource limit a width/height pair violated.
type DimensionError struct {
	Kind   error // one of ErrEmptyImage, ErrTooWide, ErrTooTall, ErrTooManyPixels
	Width  uint32
	Height uint32
	Limit  uint64
}

func (e *DimensionError) Error() string {
	if e.Kind == ErrEmptyImage {
		return fmt.Sprintf("%v: %dx%d", e.Kind, e.Width, e.Height)
	}
	return fmt.Sprintf("%v: %dx%d (limit %d)", e.Kind, e.Width, e.Height, e.Limit)
}

// Unwrap returns the specific kind and ErrResourceLimit.
func (e *DimensionError) Unwrap() []error {
	return []error{e.Kind, ErrResourceLimit}
}

// IsResourceLimit reports whether err is a resource limit rejection.
func IsResourceLimit(err error) bool {
	return errors.Is(err, ErrResourceLimit)
}

// ConsistencyError reports a violated session or bundle invariant.
type ConsistencyError struct {
	Where string // "metadata", "preview", "frame 2", ...
	Err   error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("codecio: %s: %v", e.Where, e.Err)
}

// Unwrap returns the specific cause and ErrInconsistent.
func (e *ConsistencyError) Unwrap() []error {
	return []error{e.Err, ErrInconsistent}
}

// TransformError reports a failed color conversion of one bundle.
type TransformError struct {
	Bundle string
	From   string
	To     string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("codecio: transform %s from %s to %s: %v", e.Bundle, e.From, e.To, e.Err)
}

// Unwrap returns the cause and ErrTransform.
func (e *TransformError) Unwrap() []error {
	return []error{e.Err, ErrTransform}
}
