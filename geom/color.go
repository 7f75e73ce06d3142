package geom

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ColorTransform multiplies then offsets each channel. Multipliers are
// fractions (1 = unchanged); offsets are in 0..255 channel units.
type ColorTransform struct {
	RMul, GMul, BMul, AMul float64
	RAdd, GAdd, BAdd, AAdd float64
}

// IdentityColor returns the transform that leaves colours untouched.
func IdentityColor() ColorTransform {
	return ColorTransform{RMul: 1, GMul: 1, BMul: 1, AMul: 1}
}

// IsZero reports whether t is the zero value (used as "not specified").
func (t ColorTransform) IsZero() bool {
	return t == ColorTransform{}
}

// Concat returns the transform that applies child first and then t.
func (t ColorTransform) Concat(child ColorTransform) ColorTransform {
	return ColorTransform{
		RMul: t.RMul * child.RMul,
		GMul: t.GMul * child.GMul,
		BMul: t.BMul * child.BMul,
		AMul: t.AMul * child.AMul,
		RAdd: child.RAdd*t.RMul + t.RAdd,
		GAdd: child.GAdd*t.GMul + t.GAdd,
		BAdd: child.BAdd*t.BMul + t.BAdd,
		AAdd: child.AAdd*t.AMul + t.AAdd,
	}
}

// Apply transforms a colour and its alpha (0..1), clamping each channel.
func (t ColorTransform) Apply(c colorful.Color, alpha float64) (colorful.Color, float64) {
	ch := func(v, mul, add float64) float64 {
		return clamp01((v*255*mul + add) / 255)
	}
	out := colorful.Color{
		R: ch(c.R, t.RMul, t.RAdd),
		G: ch(c.G, t.GMul, t.GAdd),
		B: ch(c.B, t.BMul, t.BAdd),
	}
	return out, ch(alpha, t.AMul, t.AAdd)
}

// Tint returns a transform that replaces the colour with c, keeping alpha.
// This is what Color.setRGB produces.
func Tint(c colorful.Color) ColorTransform {
	r, g, b := c.RGB255()
	return ColorTransform{AMul: 1, RAdd: float64(r), GAdd: float64(g), BAdd: float64(b)}
}

// RGB packs an opaque colour into 0xRRGGBB.
func RGB(c colorful.Color) uint32 {
	r, g, b := c.Clamped().RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// FromRGB unpacks 0xRRGGBB.
func FromRGB(v uint32) colorful.Color {
	return colorful.Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
