package colorspace

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestSRGBToLinear(t *testing.T) {
	tests := []struct {
		in   uint8
		want float64
	}{
		{0, 0},
		{255, 1},
		{10, 10.0 / 255 / 12.92}, // below the 0.04045 knee
		{128, 0.2158605},
	}
	for _, tt := range tests {
		if got := SRGBToLinear(tt.in); !near(got, tt.want, 1e-6) {
			t.Errorf("SRGBToLinear(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Table entries carry float32 precision, like the Float32Array used in the
// browser.
func TestSRGBToLinearFloat32Precision(t *testing.T) {
	for i := 0; i < 256; i++ {
		got := SRGBToLinear(uint8(i))
		if float64(float32(got)) != got {
			t.Fatalf("SRGBToLinear(%d) = %v is not float32-representable", i, got)
		}
	}
}

func TestRGBToLabKnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    Lab
	}{
		{"black", 0, 0, 0, Lab{0, 0, 0}},
		{"white", 255, 255, 255, Lab{100, 0, 0}},
		{"red", 255, 0, 0, Lab{53.2408, 80.0925, 67.2032}},
		{"blue", 0, 0, 255, Lab{32.2970, 79.1875, -107.8602}},
		{"grey", 128, 128, 128, Lab{53.5850, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RGBToLab(tt.r, tt.g, tt.b)
			if !near(got.L, tt.want.L, 1e-3) || !near(got.A, tt.want.A, 1e-3) || !near(got.B, tt.want.B, 1e-3) {
				t.Errorf("RGBToLab = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// go-colorful uses a slightly different matrix; agreement within a fraction
// of a ΔE unit is enough to catch a broken pipeline.
func TestRGBToLabAgreesWithColorful(t *testing.T) {
	for _, c := range [][3]uint8{{12, 200, 40}, {250, 10, 5}, {90, 90, 200}, {240, 230, 10}, {3, 3, 3}} {
		got := RGBToLab(c[0], c[1], c[2])
		l, a, b := colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}.Lab()
		ref := Lab{L: l * 100, A: a * 100, B: b * 100}
		if d := DeltaE76(got, ref); d > 0.5 {
			t.Errorf("%v: ΔE to go-colorful = %.3f (got %+v, ref %+v)", c, d, got, ref)
		}
	}
}

func TestDeltaE76(t *testing.T) {
	red := RGBToLab(255, 0, 0)
	if d := DeltaE76(red, RGBToLab(250, 10, 5)); !near(d, 2.972, 1e-2) {
		t.Errorf("red vs near-red = %v, want ~2.972", d)
	}
	if d := DeltaE76(red, RGBToLab(0, 0, 255)); !near(d, 176.314, 1e-2) {
		t.Errorf("red vs blue = %v, want ~176.314", d)
	}
	if d := DeltaE76(red, red); d != 0 {
		t.Errorf("self distance = %v, want 0", d)
	}
}

func TestRGBToHSL(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    HSL
	}{
		{"red", 255, 0, 0, HSL{0, 1, 0.5}},
		{"green", 0, 255, 0, HSL{120, 1, 0.5}},
		{"blue", 0, 0, 255, HSL{240, 1, 0.5}},
		{"magenta-ish", 255, 0, 128, HSL{329.88, 1, 0.5}},
		{"grey is achromatic", 128, 128, 128, HSL{0, 0, 128.0 / 255}},
		{"white", 255, 255, 255, HSL{0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RGBToHSL(tt.r, tt.g, tt.b)
			if !near(got.H, tt.want.H, 0.01) || !near(got.S, tt.want.S, 1e-6) || !near(got.L, tt.want.L, 1e-3) {
				t.Errorf("RGBToHSL = %+v, want %+v", got, tt.want)
			}
			if got.H < 0 || got.H >= 360 {
				t.Errorf("hue %v out of [0,360)", got.H)
			}
		})
	}
}

func TestHueDistance(t *testing.T) {
	tests := []struct{ a, b, want float64 }{
		{0, 0, 0},
		{10, 350, 20},
		{350, 10, 20},
		{0, 180, 180},
		{90, 300, 150},
	}
	for _, tt := range tests {
		if got := HueDistance(tt.a, tt.b); !near(got, tt.want, 1e-9) {
			t.Errorf("HueDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
