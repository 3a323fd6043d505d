package game

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 2

// Snapshot is the persisted form of a puzzle in progress (or just finished).
type Snapshot struct {
	Mode        Mode    `json:"mode"`
	Date        string  `json:"date"`
	League      string  `json:"league"`
	TargetIndex int     `json:"targetIndex"`
	Guesses     []Guess `json:"guesses"`
	Dims        [2]int  `json:"dims"`
	Mask        string  `json:"mask,omitempty"`
	Solved      bool    `json:"solved"`
	V           int     `json:"v"`
}

// Snapshot captures the game for persistence or sharing.
func (g *Game) Snapshot() Snapshot {
	w, h := g.Dims()
	s := Snapshot{
		Mode:        g.Mode,
		Date:        g.Date,
		League:      g.League,
		TargetIndex: g.TargetIndex,
		Guesses:     append([]Guess(nil), g.Guesses...),
		Dims:        [2]int{w, h},
		Solved:      g.Solved(),
		V:           SnapshotVersion,
	}
	if g.mask != nil {
		s.Mask = g.mask.Pack()
	}
	return s
}

// Lite drops the mask and guess image refs. Restoring a lite snapshot
// rebuilds the mask by replaying the guesses.
func (s Snapshot) Lite() Snapshot {
	out := s
	out.Mask = ""
	out.Guesses = make([]Guess, len(s.Guesses))
	for i, g := range s.Guesses {
		g.ImageRef = ""
		out.Guesses[i] = g
	}
	return out
}

// Behind reports whether s is an earlier state of the same puzzle as saved.
// Guesses only accumulate and a finished puzzle takes no more, so the guess
// count orders the states of one puzzle; at equal counts a solved snapshot
// is ahead of an unsolved one.
func (s Snapshot) Behind(saved Snapshot) bool {
	if s.Mode != saved.Mode || s.Date != saved.Date || s.League != saved.League ||
		s.TargetIndex != saved.TargetIndex {
		return false
	}
	if len(s.Guesses) != len(saved.Guesses) {
		return len(s.Guesses) < len(saved.Guesses)
	}
	return saved.Solved && !s.Solved
}

// Encode serializes the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) { return json.Marshal(s) }

// DecodeSnapshot parses a JSON snapshot.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
