package similarity

import (
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func rgb(r, g, b uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: 255} }

func TestLabScenario(t *testing.T) {
	cfg := Default()
	cfg.LabThreshold = 20
	cfg.IgnoreAlphaBelow = 8

	red := rgb(255, 0, 0)
	if !cfg.Similar(rgb(250, 10, 5), red) {
		t.Error("near-red should match red in lab mode")
	}
	if cfg.Similar(rgb(0, 0, 255), red) {
		t.Error("blue should not match red in lab mode")
	}
}

func TestRGBScenario(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeRGB
	cfg.RGBThreshold = 75

	// 3×50² = 7500 > 75² = 5625
	if cfg.Similar(rgb(100, 100, 100), rgb(150, 150, 150)) {
		t.Error("greys 50 apart per channel should not match at radius 75")
	}
	// 3×40² = 4800 ≤ 5625
	if !cfg.Similar(rgb(100, 100, 100), rgb(140, 140, 140)) {
		t.Error("greys 40 apart per channel should match at radius 75")
	}
}

func TestHSLMode(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeHSL

	tests := []struct {
		name string
		a, b color.NRGBA
		want bool
	}{
		{"identical", rgb(200, 30, 30), rgb(200, 30, 30), true},
		{"hue too far", rgb(255, 0, 0), rgb(255, 128, 0), false},
		{"saturation too far", rgb(255, 0, 0), rgb(160, 96, 96), false},
		{"lightness within tolerance", rgb(255, 0, 0), rgb(200, 0, 0), true},
		// Hue 0 vs hue 10 (outside the 3.6° escape window), lightness 0.5 vs ~0.196.
		{"lightness mismatch without escape", rgb(255, 0, 0), rgb(100, 17, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Similar(tt.a, tt.b); got != tt.want {
				t.Errorf("Similar(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// With hueWeight 2 and dh 12, hues within 3.6° match even when lightness
// differs by more than DL.
func TestHSLEscapeHatch(t *testing.T) {
	cfg := Default()
	cfg.Mode = ModeHSL

	bright, dark := rgb(255, 0, 0), rgb(100, 0, 0) // same hue, dl ≈ 0.304 > 0.28
	if !cfg.Similar(bright, dark) {
		t.Fatal("same-hue colours with a large lightness gap should pass via the escape hatch")
	}

	cfg.HSL.HueWeight = 0 // treated as 1 → window becomes 7.2°
	if !cfg.Similar(bright, dark) {
		t.Error("zero hue weight should behave as weight 1")
	}
}

func TestSimilarIsSymmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	randColor := func() color.NRGBA {
		return rgb(uint8(r.IntN(256)), uint8(r.IntN(256)), uint8(r.IntN(256)))
	}
	for _, mode := range []Mode{ModeRGB, ModeLab, ModeHSL} {
		cfg := Default()
		cfg.Mode = mode
		for i := 0; i < 5000; i++ {
			a := randColor()
			// bias half the pairs towards near-colours so both outcomes occur
			b := randColor()
			if i%2 == 0 {
				b = rgb(a.R^uint8(r.IntN(16)), a.G^uint8(r.IntN(16)), a.B^uint8(r.IntN(16)))
			}
			if cfg.Similar(a, b) != cfg.Similar(b, a) {
				t.Fatalf("%s: Similar(%v,%v) != Similar(%v,%v)", mode, a, b, b, a)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeLab, false},
		{"LAB", ModeLab, false},
		{" rgb ", ModeRGB, false},
		{"hsl", ModeHSL, false},
		{"cmyk", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := Default()
	bad.LabThreshold = -1
	if err := bad.Validate(); err == nil {
		t.Error("negative threshold should fail validation")
	}
	bad = Default()
	bad.Mode = "xyz"
	if err := bad.Validate(); err == nil {
		t.Error("unknown mode should fail validation")
	}
}

func TestOpaque(t *testing.T) {
	cfg := Default()
	if cfg.Opaque(8) {
		t.Error("alpha equal to the cutoff is ignored")
	}
	if !cfg.Opaque(9) {
		t.Error("alpha above the cutoff takes part")
	}
}

func TestResolveConfig(t *testing.T) {
	base := Default()
	thr := 35.0
	rgbMode := ModeRGB
	ov := Overrides{
		"ar-primera-boca": {LabThreshold: &thr},
		"es-laliga-betis": {Mode: &rgbMode},
	}

	if got := ResolveConfig(base, ov, "unknown"); got != base {
		t.Errorf("unknown entity should get base config, got %+v", got)
	}
	got := ResolveConfig(base, ov, "ar-primera-boca")
	if got.LabThreshold != 35 || got.Mode != ModeLab || got.RGBThreshold != base.RGBThreshold {
		t.Errorf("boca override = %+v", got)
	}
	if got := ResolveConfig(base, ov, "es-laliga-betis"); got.Mode != ModeRGB {
		t.Errorf("betis mode = %q, want rgb", got.Mode)
	}
	if base.LabThreshold != 20 {
		t.Error("ResolveConfig must not mutate the base")
	}

	dh := 20.0
	ov["ar-primera-river"] = Override{HSL: &HSLOverride{DH: &dh}}
	want := base.HSL
	want.DH = 20
	if got := ResolveConfig(base, ov, "ar-primera-river"); got.HSL != want {
		t.Errorf("partial hsl override = %+v, want %+v", got.HSL, want)
	}
}

func TestLoadOverrides(t *testing.T) {
	ov, err := LoadOverrides("")
	if err != nil || len(ov) != 0 {
		t.Fatalf("empty path: %v, %v", ov, err)
	}

	path := filepath.Join(t.TempDir(), "overrides.json")
	body := `{"x-y-team": {"labThr": 12, "hsl": {"dh": 5, "ds": 0.1, "dl": 0.1}}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	ov, err = LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	got := ResolveConfig(Default(), ov, "x-y-team")
	if got.LabThreshold != 12 || got.HSL.DH != 5 {
		t.Errorf("resolved = %+v", got)
	}

	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOverrides(path); err == nil {
		t.Error("malformed overrides should fail")
	}

	invalid := []string{
		`{"a-b-c": {"mode": "cmyk"}}`,
		`{"a-b-c": {"rgbThr": -5}}`,
		`{"a-b-c": {"hsl": {"dl": -0.1}}}`,
	}
	for _, body := range invalid {
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadOverrides(path); err == nil {
			t.Errorf("%s: invalid override should fail", body)
		}
	}
}
