// internal/daily/daily.go
//
// Deterministic daily puzzle selection.
// The index for a (date, league) pair is derived from a 32-bit FNV-1a hash of
// date+league seeding a mulberry32 generator, so every player and every device
// lands on the same target without server coordination. The hash runs over
// UTF-16 code units so keys with non-ASCII league names agree with browser builds.

package daily

import (
	"math"
	"math/rand"
	"time"
	"unicode/utf16"
)

// DateLayout is the layout of date keys.
const DateLayout = "2006-01-02"

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// DateKey returns YYYY-MM-DD for t in loc (UTC when loc is nil).
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// Hash is 32-bit FNV-1a over the UTF-16 code units of s.
func Hash(s string) uint32 {
	h := uint32(fnvOffset32)
	for _, u := range utf16.Encode([]rune(s)) {
		h ^= uint32(u)
		h *= fnvPrime32
	}
	return h
}

// Mulberry32 is a small 32-bit PRNG with good mixing for hash-derived seeds.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 seeds a generator.
func NewMulberry32(seed uint32) *Mulberry32 { return &Mulberry32{state: seed} }

// Uint32 returns the next raw value.
func (m *Mulberry32) Uint32() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns the next value in [0,1).
func (m *Mulberry32) Float64() float64 {
	return float64(m.Uint32()) / 4294967296
}

// Index returns the daily target index for a pool of size pool.
// Pools smaller than one are treated as one.
func Index(date, league string, pool int) int {
	if pool < 1 {
		pool = 1
	}
	r := NewMulberry32(Hash(date + league)).Float64()
	return int(math.Floor(r * float64(pool)))
}

// RandomIndex is a uniform draw for "play again"; no determinism.
func RandomIndex(pool int) int {
	if pool <= 0 {
		return 0
	}
	return rand.Intn(pool)
}
