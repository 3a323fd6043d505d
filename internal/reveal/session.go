// internal/reveal/session.go
//
// Session: the target precompute cache for one puzzle.
// Owns the rasterized target buffer and, in lab mode, a parallel Lab buffer
// (3 float32 per pixel, NaN for pixels below the alpha cutoff) so each guess
// scan converts only the guess pixel. A Session is built fresh per puzzle and
// never shared across puzzles.

package reveal

import (
	"image"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/internal/colorspace"
	"github.com/robalobadob/crestle/internal/similarity"
)

// Session holds the immutable per-puzzle target data.
type Session struct {
	id     string
	target *image.NRGBA
	lab    []float32 // nil unless cfg is lab mode
	cfg    similarity.Config
	opaque int
}

// NewSession precomputes the target buffers.
func NewSession(id string, target *image.NRGBA, cfg similarity.Config) *Session {
	target = tight(target)
	s := &Session{id: id, target: target, cfg: cfg}

	pix := target.Pix
	n := target.Rect.Dx() * target.Rect.Dy()
	if cfg.IsLab() {
		s.lab = make([]float32, n*3)
	}
	nan := float32(math.NaN())
	for px := 0; px < n; px++ {
		i := px * 4
		opaque := cfg.Opaque(pix[i+3])
		if opaque {
			s.opaque++
		}
		if s.lab == nil {
			continue
		}
		j := px * 3
		if !opaque {
			s.lab[j], s.lab[j+1], s.lab[j+2] = nan, nan, nan
			continue
		}
		c := colorspace.RGBToLab(pix[i], pix[i+1], pix[i+2])
		s.lab[j], s.lab[j+1], s.lab[j+2] = float32(c.L), float32(c.A), float32(c.B)
	}

	if s.opaque == 0 {
		log.Warn().Str("target", id).Msg("target has no opaque pixels; puzzle cannot be won")
	}
	return s
}

// ID is the target entity id.
func (s *Session) ID() string { return s.id }

// Target returns the rasterized target buffer. Callers must not modify it.
func (s *Session) Target() *image.NRGBA { return s.target }

// Config is the effective comparator config for this target.
func (s *Session) Config() similarity.Config { return s.cfg }

// Width of the puzzle canvas.
func (s *Session) Width() int { return s.target.Rect.Dx() }

// Height of the puzzle canvas.
func (s *Session) Height() int { return s.target.Rect.Dy() }

// Opaque is the number of target pixels above the alpha cutoff.
func (s *Session) Opaque() int { return s.opaque }

// NewMask returns an empty mask sized to this session's canvas.
func (s *Session) NewMask() *Mask { return NewMask(s.Width(), s.Height()) }

// labAt returns the precomputed target Lab for pixel px and whether it is usable.
func (s *Session) labAt(px int) (colorspace.Lab, bool) {
	j := px * 3
	L := s.lab[j]
	if L != L { // NaN marks an ignored pixel
		return colorspace.Lab{}, false
	}
	return colorspace.Lab{L: float64(L), A: float64(s.lab[j+1]), B: float64(s.lab[j+2])}, true
}
