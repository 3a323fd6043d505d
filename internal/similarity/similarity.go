// internal/similarity/similarity.go
//
// Pixel similarity comparator.
// Decides whether two colours are "same enough" under one of three modes:
//   - rgb: Euclidean radius in raw 0..255 channel space.
//   - lab: CIE ΔE76 threshold (default, perceptually recommended).
//   - hsl: per-channel tolerances with a hue-weighted lightness escape hatch.
//
// Config is process-wide and read-only during play. Per-entity tweaks go
// through ResolveConfig (see overrides.go), applied once per puzzle session.

package similarity

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/robalobadob/crestle/internal/colorspace"
)

// Mode selects the comparison algorithm.
type Mode string

const (
	ModeRGB Mode = "rgb"
	ModeLab Mode = "lab"
	ModeHSL Mode = "hsl"
)

// hueEscapeFactor scales DH for the lightness escape hatch in hsl mode.
const hueEscapeFactor = 0.6

// HSLTolerance holds the hsl-mode thresholds.
type HSLTolerance struct {
	DH        float64 `json:"dh"`        // hue, degrees
	DS        float64 `json:"ds"`        // saturation, 0..1
	DL        float64 `json:"dl"`        // lightness, 0..1
	HueWeight float64 `json:"hueWeight"` // 0 means 1
}

// Config is the full comparator configuration.
type Config struct {
	Mode             Mode         `json:"mode"`
	RGBThreshold     float64      `json:"rgbThr"`
	LabThreshold     float64      `json:"labThr"`
	HSL              HSLTolerance `json:"hsl"`
	IgnoreAlphaBelow uint8        `json:"ignoreAlphaBelow"`
}

// Default returns the tuned defaults.
func Default() Config {
	return Config{
		Mode:             ModeLab,
		RGBThreshold:     75,
		LabThreshold:     20,
		HSL:              HSLTolerance{DH: 12, DS: 0.28, DL: 0.28, HueWeight: 2.0},
		IgnoreAlphaBelow: 8,
	}
}

// ParseMode normalises a mode string. Empty input selects lab.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLab, nil
	case ModeRGB, ModeLab, ModeHSL:
		return m, nil
	default:
		return "", fmt.Errorf("similarity: unknown mode %q", s)
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.RGBThreshold < 0 || c.LabThreshold < 0 {
		return errors.New("similarity: thresholds must be non-negative")
	}
	if c.HSL.DH < 0 || c.HSL.DS < 0 || c.HSL.DL < 0 || c.HSL.HueWeight < 0 {
		return errors.New("similarity: hsl tolerances must be non-negative")
	}
	return nil
}

// Opaque reports whether a pixel with alpha a takes part in comparisons.
func (c Config) Opaque(a uint8) bool { return a > c.IgnoreAlphaBelow }

// Similar reports whether a and b match under the configured mode.
// Alpha is not considered here; callers filter with Opaque first.
func (c Config) Similar(a, b color.NRGBA) bool {
	switch c.mode() {
	case ModeRGB:
		return c.similarRGB(a, b)
	case ModeHSL:
		return c.similarHSL(a, b)
	default:
		return c.SimilarLab(colorspace.RGBToLab(a.R, a.G, a.B), colorspace.RGBToLab(b.R, b.G, b.B))
	}
}

// SimilarLab compares two already-converted Lab colours.
func (c Config) SimilarLab(p, q colorspace.Lab) bool {
	return colorspace.DeltaE76(p, q) <= c.LabThreshold
}

func (c Config) similarRGB(a, b color.NRGBA) bool {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return float64(dr*dr+dg*dg+db*db) <= c.RGBThreshold*c.RGBThreshold
}

// similarHSL keeps the lightness escape hatch: when hues are very close
// (weighted distance within 0.6×DH) a lightness mismatch is forgiven.
func (c Config) similarHSL(a, b color.NRGBA) bool {
	ha := colorspace.RGBToHSL(a.R, a.G, a.B)
	hb := colorspace.RGBToHSL(b.R, b.G, b.B)
	dh := colorspace.HueDistance(ha.H, hb.H)
	ds := abs(ha.S - hb.S)
	dl := abs(ha.L - hb.L)

	w := c.HSL.HueWeight
	if w == 0 {
		w = 1
	}
	return dh <= c.HSL.DH &&
		ds <= c.HSL.DS &&
		(dl <= c.HSL.DL || w*dh <= c.HSL.DH*hueEscapeFactor)
}

// IsLab reports whether the effective mode is lab.
func (c Config) IsLab() bool { return c.mode() == ModeLab }

func (c Config) mode() Mode {
	m, err := ParseMode(string(c.Mode))
	if err != nil {
		return ModeLab
	}
	return m
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
