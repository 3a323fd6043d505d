// internal/reveal/engine.go
//
// Reveal mask engine.
// ApplyGuess walks the guess and target buffers in lock-step and promotes
// every matching opaque pixel to revealed. The returned hit percentage is
// matches / opaque-target-pixels × 100 (0 when the target has no opaque
// pixels). A guess wins at WinThreshold, which leaves room for anti-aliasing
// noise instead of demanding an exact 100%.

package reveal

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/robalobadob/crestle/internal/colorspace"
)

// WinThreshold is the hit percentage at or above which a guess solves the puzzle.
const WinThreshold = 99.95

var (
	// ErrDimensionMismatch is returned when guess and target differ in size.
	ErrDimensionMismatch = errors.New("reveal: guess and target dimensions differ")
	// ErrMaskMismatch is returned when the mask does not cover the canvas.
	ErrMaskMismatch = errors.New("reveal: mask does not match canvas")
)

// IsWin reports whether a hit percentage solves the puzzle.
func IsWin(hitPct float64) bool { return hitPct >= WinThreshold }

// ApplyGuess compares guess against the session target, updates mask in
// place and returns the hit percentage. The scan runs to completion.
func (s *Session) ApplyGuess(guess *image.NRGBA, mask *Mask) (float64, error) {
	w, h := s.Width(), s.Height()
	if guess.Rect.Dx() != w || guess.Rect.Dy() != h {
		return 0, fmt.Errorf("%w: guess %dx%d, target %dx%d",
			ErrDimensionMismatch, guess.Rect.Dx(), guess.Rect.Dy(), w, h)
	}
	if mask.Len() != w*h {
		return 0, fmt.Errorf("%w: mask %d, canvas %d", ErrMaskMismatch, mask.Len(), w*h)
	}

	gp, tp := tight(guess).Pix, s.target.Pix
	cfg := s.cfg
	matches, opaque := 0, 0

	for px, i := 0, 0; px < w*h; px, i = px+1, i+4 {
		aT := tp[i+3]
		if cfg.Opaque(aT) {
			opaque++
		}
		if !cfg.Opaque(gp[i+3]) || !cfg.Opaque(aT) {
			continue
		}

		var similar bool
		if s.lab != nil {
			if t, ok := s.labAt(px); ok {
				similar = cfg.SimilarLab(colorspace.RGBToLab(gp[i], gp[i+1], gp[i+2]), t)
			}
		} else {
			similar = cfg.Similar(
				color.NRGBA{R: gp[i], G: gp[i+1], B: gp[i+2], A: gp[i+3]},
				color.NRGBA{R: tp[i], G: tp[i+1], B: tp[i+2], A: aT},
			)
		}
		if similar {
			mask.Reveal(px)
			matches++
		}
	}

	if opaque == 0 {
		return 0, nil
	}
	return float64(matches) / float64(opaque) * 100, nil
}

// Compose returns a copy of target with every hidden pixel made fully
// transparent, ready for rendering.
func Compose(target *image.NRGBA, mask *Mask) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, target.Rect.Dx(), target.Rect.Dy()))
	copy(out.Pix, tight(target).Pix)
	n := mask.Len()
	for px := 0; px < n && px*4+3 < len(out.Pix); px++ {
		if !mask.Revealed(px) {
			out.Pix[px*4+3] = 0
		}
	}
	return out
}

// tight returns img with a zero origin and a stride of exactly 4×width,
// copying only when img is a sub-image view.
func tight(img *image.NRGBA) *image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Rect.Min == (image.Point{}) && img.Stride == 4*w {
		return img
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], img.Pix[src:src+4*w])
	}
	return out
}
