// internal/colorspace/colorspace.go
//
// Colour space conversions used by the pixel comparator.
// Responsibilities:
//   - sRGB → linear via a 256-entry lookup table (hot path, up to 3× per pixel).
//   - sRGB → CIE XYZ (D65) → CIE Lab.
//   - ΔE76 distance in Lab.
//   - sRGB → HSL and circular hue distance.
//
// All inputs are 8-bit sRGB channels; outputs are float64 except where a caller
// stores Lab in a compact float32 buffer.

package colorspace

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883
)

// labDelta is δ = 6/29 from the CIE Lab definition.
const labDelta = 6.0 / 29.0

// linearLUT maps an 8-bit sRGB channel to linear light in [0,1]. Entries are
// rounded to float32 so threshold decisions agree with browser builds, which
// keep the table in a Float32Array.
var linearLUT = func() (lut [256]float64) {
	for i := range lut {
		v := float64(i) / 255
		if v <= 0.04045 {
			lut[i] = float64(float32(v / 12.92))
		} else {
			lut[i] = float64(float32(math.Pow((v+0.055)/1.055, 2.4)))
		}
	}
	return lut
}()

// Lab is a colour in CIE L*a*b* (D65).
type Lab struct {
	L, A, B float64
}

// HSL is a colour in hue (degrees, [0,360)), saturation and lightness ([0,1]).
type HSL struct {
	H, S, L float64
}

// SRGBToLinear returns the linear-light value of an 8-bit sRGB channel.
func SRGBToLinear(c uint8) float64 { return linearLUT[c] }

// RGBToLab converts an 8-bit sRGB colour to Lab.
func RGBToLab(r, g, b uint8) Lab {
	R, G, B := linearLUT[r], linearLUT[g], linearLUT[b]

	x := R*0.4124564 + G*0.3575761 + B*0.1804375
	y := R*0.2126729 + G*0.7151522 + B*0.0721750
	z := R*0.0193339 + G*0.1191920 + B*0.9503041

	fx, fy, fz := labF(x/whiteX), labF(y/whiteY), labF(z/whiteZ)
	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

// labF is the CIE f(t) nonlinearity.
func labF(t float64) float64 {
	if t > labDelta*labDelta*labDelta {
		return math.Cbrt(t)
	}
	return t/(3*labDelta*labDelta) + 4.0/29.0
}

// DeltaE76 is the Euclidean distance between two Lab colours.
func DeltaE76(p, q Lab) float64 {
	dL, da, db := p.L-q.L, p.A-q.A, p.B-q.B
	return math.Sqrt(dL*dL + da*da + db*db)
}

// RGBToHSL converts an 8-bit sRGB colour to HSL.
// Achromatic colours (max == min) report h=0, s=0.
func RGBToHSL(r, g, b uint8) HSL {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, l := c.Hsl()
	if h >= 360 {
		h -= 360
	}
	return HSL{H: h, S: s, L: l}
}

// HueDistance returns the shortest angular distance between two hues, in [0,180].
func HueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}
