// internal/game/types.go
//
// Core type definitions for the crest puzzle engine.
// Defines:
//   - Mode: daily (deterministic target) or random.
//   - Status: idle → playing → won/lost.
//   - Guess: one recorded guess and its hit percentage.
//   - Game: state for a single in-progress or finished puzzle.

package game

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/reveal"
)

// Mode selects how the target is picked.
type Mode string

const (
	ModeDaily  Mode = "daily"
	ModeRandom Mode = "random"
)

// ParseMode accepts "daily" or "random"; empty means daily.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDaily:
		return ModeDaily, nil
	case ModeRandom:
		return ModeRandom, nil
	}
	return "", fmt.Errorf("unknown game mode %q", s)
}

// Status is the puzzle lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

var (
	ErrNotPlaying     = errors.New("game is not in progress")
	ErrUnknownEntity  = errors.New("unknown team")
	ErrUnknownLeague  = errors.New("unknown league")
	ErrStaleSnapshot  = errors.New("snapshot is not for today's puzzle")
	ErrNoActiveTarget = errors.New("game has no target loaded")
)

// Guess is one submitted guess.
type Guess struct {
	EntityID string  `json:"teamId"`
	Name     string  `json:"name"`
	ImageRef string  `json:"crest,omitempty"`
	HitPct   float64 `json:"hitPct"`
}

// Game holds the state of a single puzzle.
type Game struct {
	ID          string // random hex id
	Mode        Mode
	Date        string       // YYYY-MM-DD the puzzle belongs to
	League      string       // country/league key
	TargetIndex int          // index into the league's target pool
	Target      catalog.Team // never sent to clients while playing
	MaxGuesses  int
	Guesses     []Guess
	Status      Status

	session *reveal.Session
	mask    *reveal.Mask
}

// Start arms the game with a freshly built session: mask reset to the
// session's dimensions, guesses cleared.
func (g *Game) Start(s *reveal.Session) {
	g.session = s
	g.mask = s.NewMask()
	g.Guesses = nil
	g.Status = StatusPlaying
}

// Apply records an already-scored guess and advances the state machine.
// Calls outside the playing state change nothing.
func (g *Game) Apply(guess Guess) (Status, error) {
	if g.Status != StatusPlaying {
		return g.Status, ErrNotPlaying
	}
	g.Guesses = append(g.Guesses, guess)
	switch {
	case reveal.IsWin(guess.HitPct):
		g.Status = StatusWon
	case g.MaxGuesses > 0 && len(g.Guesses) >= g.MaxGuesses:
		g.Status = StatusLost
	}
	return g.Status, nil
}

// Solved reports a win.
func (g *Game) Solved() bool { return g.Status == StatusWon }

// Finished reports a win or a loss.
func (g *Game) Finished() bool { return g.Status == StatusWon || g.Status == StatusLost }

// Remaining is the number of guesses left.
func (g *Game) Remaining() int { return max(0, g.MaxGuesses-len(g.Guesses)) }

// BestPct is the highest hit percentage so far.
func (g *Game) BestPct() float64 {
	best := 0.0
	for _, gu := range g.Guesses {
		best = max(best, gu.HitPct)
	}
	return best
}

// Dims returns the puzzle canvas size, zero before Start.
func (g *Game) Dims() (w, h int) {
	if g.session == nil {
		return 0, 0
	}
	return g.session.Width(), g.session.Height()
}

// RevealedMask returns a copy of the current mask.
func (g *Game) RevealedMask() *reveal.Mask {
	if g.mask == nil {
		return reveal.NewMask(0, 0)
	}
	return g.mask.Clone()
}

// Revealed renders the crest as the player currently sees it. Once the game
// is over the whole crest is shown.
func (g *Game) Revealed() (*image.NRGBA, error) {
	if g.session == nil {
		return nil, ErrNoActiveTarget
	}
	if g.Finished() {
		src := g.session.Target()
		out := image.NewNRGBA(src.Rect)
		copy(out.Pix, src.Pix)
		return out, nil
	}
	return reveal.Compose(g.session.Target(), g.mask), nil
}

// ShareText renders the spoiler-free result summary.
func (g *Game) ShareText() string {
	var b strings.Builder
	b.WriteString("Crestle — ")
	b.WriteString(catalog.ShareLabel(g.League))
	for _, gu := range g.Guesses {
		fmt.Fprintf(&b, "\n%s %.1f%%", gu.Name, gu.HitPct)
	}
	return b.String()
}
