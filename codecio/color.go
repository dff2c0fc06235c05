package codecio

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadDescription is returned by ParseDescription for malformed input.
var ErrBadDescription = errors.New("codecio: malformed color encoding description")

// ColorSpace is the channel model of an encoding.
type ColorSpace uint8

const (
	ColorSpaceRGB ColorSpace = iota
	ColorSpaceGray
	// ColorSpaceUnknown means the encoding is only described by its ICC
	// profile.
	ColorSpaceUnknown
)

// WhitePoint identifies a standard white point.
type WhitePoint uint8

const (
	WhiteD65 WhitePoint = iota
	WhiteE
	WhiteDCI
	WhiteCustom
)

// Primaries identifies a standard set of RGB primaries.
type Primaries uint8

const (
	PrimariesSRGB Primaries = iota
	Primaries2100
	PrimariesP3
	PrimariesCustom
)

// TransferFunction identifies how encoded values relate to linear light.
type TransferFunction uint8

const (
	TransferSRGB TransferFunction = iota
	TransferLinear
	Transfer709
	TransferDCI
	TransferPQ
	TransferHLG
	// TransferGamma uses ColorEncoding.Gamma: encoded = linear^Gamma.
	TransferGamma
)

// RenderingIntent is the ICC rendering intent.
type RenderingIntent uint8

const (
	IntentPerceptual RenderingIntent = iota
	IntentRelative
	IntentSaturation
	IntentAbsolute
)

// ColorEncoding describes how the samples of a bundle are to be
// interpreted.
//
// ICC holds the profile bytes and is opaque to this package. Decoders copy
// it from the input; encodings built from enums get a descriptor profile
// from CreateICC.
type ColorEncoding struct {
	ColorSpace ColorSpace
	WhitePoint WhitePoint
	Primaries  Primaries
	Transfer   TransferFunction
	Gamma      float32
	Intent     RenderingIntent
	ICC        []byte
}

// descriptorPrefix starts every profile produced by CreateICC.
const descriptorPrefix = "codecio-descriptor:"

// SRGB returns the sRGB encoding (or its gray variant) with a profile.
func SRGB(gray bool) ColorEncoding {
	c := ColorEncoding{Transfer: TransferSRGB, Intent: IntentRelative}
	if gray {
		c.ColorSpace = ColorSpaceGray
	}
	c.CreateICC()
	return c
}

// LinearSRGB returns sRGB primaries with a linear transfer function.
func LinearSRGB(gray bool) ColorEncoding {
	c := SRGB(gray)
	c.Transfer = TransferLinear
	c.CreateICC()
	return c
}

// IsGray reports whether the encoding has a single channel.
func (c ColorEncoding) IsGray() bool {
	return c.ColorSpace == ColorSpaceGray
}

// CreateICC replaces ICC with a descriptor profile derived from the enum
// fields. It does nothing for ColorSpaceUnknown, which has no other source
// of truth than its existing profile.
func (c *ColorEncoding) CreateICC() {
	if c.ColorSpace == ColorSpaceUnknown {
		return
	}
	c.ICC = []byte(descriptorPrefix + c.Description())
}

// SameColorEncoding reports whether c and o describe the same encoding.
// Profiles are only compared when both encodings are ICC-only.
func (c ColorEncoding) SameColorEncoding(o ColorEncoding) bool {
	if c.ColorSpace == ColorSpaceUnknown || o.ColorSpace == ColorSpaceUnknown {
		return c.ColorSpace == o.ColorSpace && bytes.Equal(c.ICC, o.ICC)
	}
	if c.ColorSpace != o.ColorSpace || c.WhitePoint != o.WhitePoint || c.Transfer != o.Transfer {
		return false
	}
	if !c.IsGray() && c.Primaries != o.Primaries {
		return false
	}
	if c.Transfer == TransferGamma && c.Gamma != o.Gamma {
		return false
	}
	return true
}

var (
	colorSpaceNames = map[ColorSpace]string{ColorSpaceRGB: "RGB", ColorSpaceGray: "Gra"}
	whitePointNames = map[WhitePoint]string{WhiteD65: "D65", WhiteE: "EER", WhiteDCI: "DCI"}
	primariesNames  = map[Primaries]string{PrimariesSRGB: "SRG", Primaries2100: "202", PrimariesP3: "DCI"}
	transferNames   = map[TransferFunction]string{
		TransferSRGB: "SRG", TransferLinear: "Lin", Transfer709: "709",
		TransferDCI: "DCI", TransferPQ: "PeQ", TransferHLG: "HLG",
	}
	intentNames = map[RenderingIntent]string{
		IntentPerceptual: "Per", IntentRelative: "Rel", IntentSaturation: "Sat", IntentAbsolute: "Abs",
	}
)

// Description returns a compact, command-line friendly name such as
// "RGB_D65_SRG_Rel_SRG" or "Gra_D65_Rel_g0.45455". ICC-only and custom
// encodings are described as "ICC" and "Custom".
func (c ColorEncoding) Description() string {
	if c.ColorSpace == ColorSpaceUnknown {
		return "ICC"
	}
	if c.WhitePoint == WhiteCustom || (!c.IsGray() && c.Primaries == PrimariesCustom) {
		return "Custom"
	}
	parts := []string{colorSpaceNames[c.ColorSpace], whitePointNames[c.WhitePoint]}
	if !c.IsGray() {
		parts = append(parts, primariesNames[c.Primaries])
	}
	parts = append(parts, intentNames[c.Intent])
	if c.Transfer == TransferGamma {
		parts = append(parts, "g"+strconv.FormatFloat(float64(c.Gamma), 'f', -1, 32))
	} else {
		parts = append(parts, transferNames[c.Transfer])
	}
	return strings.Join(parts, "_")
}

func (c ColorEncoding) String() string {
	return c.Description()
}

// ParseDescription is the inverse of Description for enum-described
// encodings. The result carries a descriptor profile.
func ParseDescription(s string) (ColorEncoding, error) {
	parts := strings.Split(s, "_")
	if len(parts) < 4 {
		return ColorEncoding{}, fmt.Errorf("%w: %q", ErrBadDescription, s)
	}

	var c ColorEncoding
	var ok bool
	if c.ColorSpace, ok = lookup(colorSpaceNames, parts[0]); !ok {
		return ColorEncoding{}, fmt.Errorf("%w: color space %q", ErrBadDescription, parts[0])
	}
	want := 5
	if c.IsGray() {
		want = 4
	}
	if len(parts) != want {
		return ColorEncoding{}, fmt.Errorf("%w: %q has %d fields, want %d", ErrBadDescription, s, len(parts), want)
	}
	if c.WhitePoint, ok = lookup(whitePointNames, parts[1]); !ok {
		return ColorEncoding{}, fmt.Errorf("%w: white point %q", ErrBadDescription, parts[1])
	}
	rest := parts[2:]
	if !c.IsGray() {
		if c.Primaries, ok = lookup(primariesNames, rest[0]); !ok {
			return ColorEncoding{}, fmt.Errorf("%w: primaries %q", ErrBadDescription, rest[0])
		}
		rest = rest[1:]
	}
	if c.Intent, ok = lookup(intentNames, rest[0]); !ok {
		return ColorEncoding{}, fmt.Errorf("%w: rendering intent %q", ErrBadDescription, rest[0])
	}

	tf := rest[1]
	if strings.HasPrefix(tf, "g") {
		g, err := strconv.ParseFloat(tf[1:], 32)
		if err != nil || !(g > 0 && g <= 1) {
			return ColorEncoding{}, fmt.Errorf("%w: gamma %q", ErrBadDescription, tf)
		}
		c.Transfer = TransferGamma
		c.Gamma = float32(g)
	} else if c.Transfer, ok = lookup(transferNames, tf); !ok {
		return ColorEncoding{}, fmt.Errorf("%w: transfer function %q", ErrBadDescription, tf)
	}

	c.CreateICC()
	return c, nil
}

func lookup[K comparable](names map[K]string, s string) (K, bool) {
	for k, name := range names {
		if name == s {
			return k, true
		}
	}
	var zero K
	return zero, false
}
