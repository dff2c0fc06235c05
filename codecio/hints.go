package codecio

import (
	"fmt"
	"iter"
)

// HintColorSpace names the hint whose value is a color encoding description
// (see ColorEncoding.Description). Decoders for formats without color
// metadata use it instead of assuming sRGB.
const HintColorSpace = "color_space"

// DecoderHints is an ordered list of key/value pairs passed to decoders out
// of band. Keys may repeat; every entry is kept in insertion order.
type DecoderHints struct {
	kv []keyValue
}

type keyValue struct {
	key, value string
}

// Add appends a hint. An existing entry with the same key is kept.
func (h *DecoderHints) Add(key, value string) {
	h.kv = append(h.kv, keyValue{key, value})
}

// Len returns the number of entries.
func (h *DecoderHints) Len() int {
	return len(h.kv)
}

// All iterates over the entries in insertion order.
func (h *DecoderHints) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, kv := range h.kv {
			if !yield(kv.key, kv.value) {
				return
			}
		}
	}
}

// Foreach calls fn for each entry in insertion order and stops at the first
// error.
func (h *DecoderHints) Foreach(fn func(key, value string) error) error {
	for _, kv := range h.kv {
		if err := fn(kv.key, kv.value); err != nil {
			return fmt.Errorf("codecio: hint %q: %w", kv.key, err)
		}
	}
	return nil
}

// ColorEncodingFromHints returns the encoding named by the color_space
// hints, or fallback when there are none. Repeated hints are applied in
// order, so the last one wins.
func ColorEncodingFromHints(h *DecoderHints, fallback ColorEncoding) (ColorEncoding, error) {
	c := fallback
	err := h.Foreach(func(key, value string) error {
		if key != HintColorSpace {
			return nil
		}
		parsed, err := ParseDescription(value)
		if err != nil {
			return err
		}
		c = parsed
		return nil
	})
	return c, err
}

// DecodeTarget selects what a decoder produces.
type DecodeTarget uint8

const (
	// DecodeToPixels reconstructs pixels.
	DecodeToPixels DecodeTarget = iota
	// DecodeToQuantizedCoeffs keeps JPEG input as quantized DCT coefficients.
	DecodeToQuantizedCoeffs
)

func (t DecodeTarget) String() string {
	switch t {
	case DecodeToPixels:
		return "pixels"
	case DecodeToQuantizedCoeffs:
		return "quantized-coefficients"
	default:
		return fmt.Sprintf("DecodeTarget(%d)", t)
	}
}
