package reveal

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestPackRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for _, n := range []int{0, 1, 7, 8, 9, 13, 64, 1001} {
		bits := make([]bool, n)
		for i := range bits {
			bits[i] = r.IntN(3) == 0
		}
		got, err := UnpackBits(PackBits(bits), n)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		for i := range bits {
			if got[i] != bits[i] {
				t.Fatalf("n=%d: bit %d differs", n, i)
			}
		}
	}
}

func TestPackIsMSBFirst(t *testing.T) {
	bits := []bool{true, false, false, false, false, false, false, true, true}
	// 0b10000001, 0b10000000
	if got := PackBits(bits); got != "gYA=" {
		t.Errorf("PackBits = %q, want %q", got, "gYA=")
	}
}

func TestUnpackErrors(t *testing.T) {
	if _, err := UnpackBits("not base64!", 8); !errors.Is(err, ErrMaskEncoding) {
		t.Errorf("err = %v", err)
	}
	if _, err := UnpackBits(PackBits(make([]bool, 8)), 9); !errors.Is(err, ErrMaskEncoding) {
		t.Errorf("short buffer err = %v", err)
	}
}

func TestMaskUnpack(t *testing.T) {
	m := NewMask(3, 3)
	m.Reveal(0)
	m.Reveal(8)
	got, err := UnpackMask(m.Pack(), 3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width() != 3 || got.Height() != 3 || got.Count() != 2 || !got.Revealed(8) {
		t.Errorf("unpacked = %+v", got)
	}
}
