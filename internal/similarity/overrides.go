package similarity

import (
	"encoding/json"
	"fmt"
	"os"
)

// Override is a partial Config; nil fields inherit from the base.
type Override struct {
	Mode             *Mode        `json:"mode,omitempty"`
	RGBThreshold     *float64     `json:"rgbThr,omitempty"`
	LabThreshold     *float64     `json:"labThr,omitempty"`
	HSL              *HSLOverride `json:"hsl,omitempty"`
	IgnoreAlphaBelow *uint8       `json:"ignoreAlphaBelow,omitempty"`
}

// HSLOverride is a partial HSLTolerance.
type HSLOverride struct {
	DH        *float64 `json:"dh,omitempty"`
	DS        *float64 `json:"ds,omitempty"`
	DL        *float64 `json:"dl,omitempty"`
	HueWeight *float64 `json:"hueWeight,omitempty"`
}

// Overrides maps entity ids to per-entity tweaks.
type Overrides map[string]Override

// LoadOverrides reads a JSON object of entity id → Override.
// An empty path yields no overrides. Every override must produce a valid
// config when applied to the defaults.
func LoadOverrides(path string) (Overrides, error) {
	if path == "" {
		return Overrides{}, nil
	}
	b, err := os.ReadFile(path) // #nosec G304 - operator-provided config path
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	var ov Overrides
	if err := json.Unmarshal(b, &ov); err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	for id := range ov {
		if err := ResolveConfig(Default(), ov, id).Validate(); err != nil {
			return nil, fmt.Errorf("override %s: %w", id, err)
		}
	}
	return ov, nil
}

// ResolveConfig returns the effective config for an entity.
func ResolveConfig(base Config, overrides Overrides, entityID string) Config {
	ov, ok := overrides[entityID]
	if !ok {
		return base
	}
	out := base
	if ov.Mode != nil {
		out.Mode = *ov.Mode
	}
	if ov.RGBThreshold != nil {
		out.RGBThreshold = *ov.RGBThreshold
	}
	if ov.LabThreshold != nil {
		out.LabThreshold = *ov.LabThreshold
	}
	if ov.HSL != nil {
		out.HSL = ov.HSL.apply(out.HSL)
	}
	if ov.IgnoreAlphaBelow != nil {
		out.IgnoreAlphaBelow = *ov.IgnoreAlphaBelow
	}
	return out
}

func (o HSLOverride) apply(t HSLTolerance) HSLTolerance {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&t.DH, o.DH)
	set(&t.DS, o.DS)
	set(&t.DL, o.DL)
	set(&t.HueWeight, o.HueWeight)
	return t
}
