package reveal

import (
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/robalobadob/crestle/internal/similarity"
)

// img builds a w×h NRGBA from row-major pixels.
func img(w, h int, px ...color.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, c := range px {
		out.SetNRGBA(i%w, i/w, c)
	}
	return out
}

var (
	red         = color.NRGBA{R: 255, A: 255}
	blue        = color.NRGBA{B: 255, A: 255}
	green       = color.NRGBA{G: 255, A: 255}
	transparent = color.NRGBA{}
)

func TestApplyGuessFiftyPercent(t *testing.T) {
	for _, mode := range []similarity.Mode{similarity.ModeLab, similarity.ModeRGB, similarity.ModeHSL} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := similarity.Default()
			cfg.Mode = mode
			s := NewSession("t", img(2, 2, red, red, blue, blue), cfg)
			m := s.NewMask()

			pct, err := s.ApplyGuess(img(2, 2, red, red, green, green), m)
			if err != nil {
				t.Fatal(err)
			}
			if pct != 50 {
				t.Errorf("hit = %v, want 50", pct)
			}
			if !m.Revealed(0) || !m.Revealed(1) || m.Revealed(2) || m.Revealed(3) {
				t.Errorf("mask = %v", m.bits)
			}
		})
	}
}

func TestApplyGuessIsMonotonic(t *testing.T) {
	s := NewSession("t", img(2, 2, red, red, blue, blue), similarity.Default())
	m := s.NewMask()

	if _, err := s.ApplyGuess(img(2, 2, red, red, green, green), m); err != nil {
		t.Fatal(err)
	}
	before := m.Clone()

	// A guess matching nothing never hides revealed pixels.
	pct, err := s.ApplyGuess(img(2, 2, green, green, green, green), m)
	if err != nil {
		t.Fatal(err)
	}
	if pct != 0 {
		t.Errorf("hit = %v, want 0", pct)
	}
	for i := 0; i < m.Len(); i++ {
		if before.Revealed(i) && !m.Revealed(i) {
			t.Fatalf("pixel %d was hidden again", i)
		}
	}

	// Same guess twice: identical result, identical mask.
	g := img(2, 2, green, green, blue, blue)
	p1, _ := s.ApplyGuess(g, m)
	snap := m.Clone()
	p2, _ := s.ApplyGuess(g, m)
	if p1 != p2 || m.Pack() != snap.Pack() {
		t.Errorf("repeat guess changed result: %v vs %v", p1, p2)
	}
	if m.Count() != 4 {
		t.Errorf("revealed = %d, want 4", m.Count())
	}
}

func TestApplyGuessTransparency(t *testing.T) {
	cfg := similarity.Default()

	t.Run("fully transparent target never scores", func(t *testing.T) {
		s := NewSession("empty", img(2, 1, transparent, transparent), cfg)
		if s.Opaque() != 0 {
			t.Fatalf("opaque = %d", s.Opaque())
		}
		pct, err := s.ApplyGuess(img(2, 1, transparent, transparent), s.NewMask())
		if err != nil || pct != 0 {
			t.Errorf("pct = %v, err = %v", pct, err)
		}
	})

	t.Run("transparent guess pixels count in the denominator only", func(t *testing.T) {
		s := NewSession("t", img(2, 1, red, red), cfg)
		m := s.NewMask()
		pct, _ := s.ApplyGuess(img(2, 1, red, transparent), m)
		if pct != 50 || m.Revealed(1) {
			t.Errorf("pct = %v, mask = %v", pct, m.bits)
		}
	})

	t.Run("near-transparent target pixels are excluded", func(t *testing.T) {
		faint := color.NRGBA{R: 255, A: 8}
		s := NewSession("t", img(2, 1, red, faint), cfg)
		m := s.NewMask()
		pct, _ := s.ApplyGuess(img(2, 1, red, red), m)
		if pct != 100 {
			t.Errorf("pct = %v, want 100", pct)
		}
		if m.Revealed(1) {
			t.Error("ignored target pixel must not be revealed")
		}
	})
}

func TestApplyGuessBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	randImg := func() *image.NRGBA {
		out := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for i := range out.Pix {
			out.Pix[i] = uint8(r.IntN(256))
		}
		return out
	}
	for i := 0; i < 50; i++ {
		s := NewSession("t", randImg(), similarity.Default())
		pct, err := s.ApplyGuess(randImg(), s.NewMask())
		if err != nil {
			t.Fatal(err)
		}
		if pct < 0 || pct > 100 || math.IsNaN(pct) {
			t.Fatalf("hit %v out of bounds", pct)
		}
	}

	// Identical opaque images hit exactly 100.
	target := img(2, 2, red, blue, green, red)
	s := NewSession("t", target, similarity.Default())
	pct, _ := s.ApplyGuess(target, s.NewMask())
	if pct != 100 || !IsWin(pct) {
		t.Errorf("self guess = %v", pct)
	}
}

func TestApplyGuessErrors(t *testing.T) {
	s := NewSession("t", img(2, 2, red, red, red, red), similarity.Default())
	if _, err := s.ApplyGuess(img(3, 2), s.NewMask()); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
	if _, err := s.ApplyGuess(img(2, 2), NewMask(1, 1)); !errors.Is(err, ErrMaskMismatch) {
		t.Errorf("err = %v, want ErrMaskMismatch", err)
	}
}

func TestSessionLabBuffer(t *testing.T) {
	s := NewSession("t", img(2, 1, red, transparent), similarity.Default())
	if len(s.lab) != 6 {
		t.Fatalf("lab len = %d", len(s.lab))
	}
	if _, ok := s.labAt(1); ok {
		t.Error("transparent pixel should be NaN-marked")
	}
	if c, ok := s.labAt(0); !ok || math.Abs(c.L-53.24) > 0.01 {
		t.Errorf("red lab = %+v, %v", c, ok)
	}

	cfg := similarity.Default()
	cfg.Mode = similarity.ModeRGB
	if s := NewSession("t", img(1, 1, red), cfg); s.lab != nil {
		t.Error("rgb mode should not precompute lab")
	}
}

func TestSessionAcceptsSubImage(t *testing.T) {
	big := img(4, 1, blue, red, red, blue)
	sub := big.SubImage(image.Rect(1, 0, 3, 1)).(*image.NRGBA)
	s := NewSession("t", sub, similarity.Default())
	pct, err := s.ApplyGuess(img(2, 1, red, red), s.NewMask())
	if err != nil || pct != 100 {
		t.Errorf("pct = %v, err = %v", pct, err)
	}
}

func TestIsWin(t *testing.T) {
	tests := []struct {
		pct  float64
		want bool
	}{{100, true}, {99.95, true}, {99.949, false}, {0, false}}
	for _, tt := range tests {
		if got := IsWin(tt.pct); got != tt.want {
			t.Errorf("IsWin(%v) = %v", tt.pct, got)
		}
	}
}

func TestCompose(t *testing.T) {
	target := img(2, 1, red, blue)
	m := NewMask(2, 1)
	m.Reveal(1)
	out := Compose(target, m)
	if out.NRGBAAt(0, 0).A != 0 {
		t.Error("hidden pixel should be transparent")
	}
	if out.NRGBAAt(1, 0) != blue {
		t.Errorf("revealed pixel = %v", out.NRGBAAt(1, 0))
	}
	if target.NRGBAAt(0, 0) != red {
		t.Error("Compose must not modify the target")
	}
}
