// internal/reveal/mask.go
//
// RevealMask: one visibility flag per canvas pixel, row-major, index-aligned
// with the rasterized target/guess buffers. Bits are only ever set.
//
// Persisted form: flags packed 8 per byte, MSB-first, then standard base64.

package reveal

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMaskEncoding is returned when a packed mask cannot be decoded.
var ErrMaskEncoding = errors.New("reveal: invalid mask encoding")

// Mask is the per-pixel reveal state of a puzzle.
type Mask struct {
	width, height int
	bits          []bool
}

// NewMask returns an all-hidden mask for a w×h canvas.
func NewMask(w, h int) *Mask {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return &Mask{width: w, height: h, bits: make([]bool, w*h)}
}

// Width of the canvas the mask covers.
func (m *Mask) Width() int { return m.width }

// Height of the canvas the mask covers.
func (m *Mask) Height() int { return m.height }

// Len is the pixel count (width×height).
func (m *Mask) Len() int { return len(m.bits) }

// Revealed reports whether pixel i is visible.
func (m *Mask) Revealed(i int) bool { return m.bits[i] }

// Reveal marks pixel i visible. Idempotent.
func (m *Mask) Reveal(i int) { m.bits[i] = true }

// Count returns the number of revealed pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{width: m.width, height: m.height, bits: make([]bool, len(m.bits))}
	copy(out.bits, m.bits)
	return out
}

// Pack encodes the mask for persistence.
func (m *Mask) Pack() string { return PackBits(m.bits) }

// UnpackMask decodes a packed mask for a w×h canvas.
func UnpackMask(b64 string, w, h int) (*Mask, error) {
	bits, err := UnpackBits(b64, w*h)
	if err != nil {
		return nil, err
	}
	return &Mask{width: w, height: h, bits: bits}, nil
}

// PackBits packs flags MSB-first into bytes and base64-encodes them.
func PackBits(bits []bool) string {
	buf := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			buf[i>>3] |= 1 << (7 - uint(i&7))
		}
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// UnpackBits reverses PackBits for an expected flag count n.
func UnpackBits(b64 string, n int) ([]bool, error) {
	buf, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMaskEncoding, err)
	}
	if n < 0 || len(buf) < (n+7)/8 {
		return nil, fmt.Errorf("%w: %d bytes for %d pixels", ErrMaskEncoding, len(buf), n)
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = (buf[i>>3]>>(7-uint(i&7)))&1 == 1
	}
	return out, nil
}
