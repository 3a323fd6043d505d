// internal/store/memory.go
//
// In-memory registry of live games, keyed by game id.
// Concurrency-safe via RWMutex; state is lost when the process restarts
// (durable progress lives in the snapshot Sink).
//
// A player has at most one live daily game per (date, league). Entries from
// before the previous puzzle day are dropped when a new day's game is saved.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/internal/game"
)

// ErrNotFound is returned for missing games and snapshot keys.
var ErrNotFound = errors.New("not found")

// Live holds games in play. Each entry carries its own mutex so two requests
// on the same game never interleave.
type Live interface {
	// Save registers g for owner and returns the entry that holds the
	// owner's game. For a daily game that already has a live entry for the
	// same date and league, the existing entry is returned and g is dropped.
	Save(ctx context.Context, g *game.Game, owner string) (*Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	// Daily finds owner's live daily game for date and league.
	Daily(ctx context.Context, owner, date, league string) (*Entry, error)
}

// Entry is a live game plus its lock. Game may be swapped only while the
// entry is locked.
type Entry struct {
	sync.Mutex
	Game  *game.Game
	Owner string // anonymous player id

	date string
}

type dailyKey struct{ owner, date, league string }

type memory struct {
	mu      sync.RWMutex
	games   map[string]*Entry
	daily   map[dailyKey]*Entry
	current string // newest puzzle date seen
}

// NewMemoryStore constructs an empty live-game store.
func NewMemoryStore() Live {
	return &memory{games: make(map[string]*Entry), daily: make(map[dailyKey]*Entry)}
}

func (m *memory) Save(ctx context.Context, g *game.Game, owner string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover(g.Date)

	if e, ok := m.games[g.ID]; ok {
		e.Game, e.Owner = g, owner
		return e, nil
	}
	k := dailyKey{owner, g.Date, g.League}
	if g.Mode == game.ModeDaily {
		if e, ok := m.daily[k]; ok {
			return e, nil
		}
	}
	e := &Entry{Game: g, Owner: owner, date: g.Date}
	m.games[g.ID] = e
	if g.Mode == game.ModeDaily {
		m.daily[k] = e
	}
	return e, nil
}

// Get looks up a game by id.
func (m *memory) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.games[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Daily(ctx context.Context, owner, date, league string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.daily[dailyKey{owner, date, league}]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

// rollover advances the current day and evicts entries older than the day
// before it, so games started just before midnight can still finish.
func (m *memory) rollover(date string) {
	if date <= m.current {
		return
	}
	keep := m.current
	m.current = date
	if keep == "" {
		return
	}
	evicted := 0
	for id, e := range m.games {
		if e.date < keep {
			delete(m.games, id)
			evicted++
		}
	}
	for k, e := range m.daily {
		if e.date < keep {
			delete(m.daily, k)
		}
	}
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Str("date", date).Msg("dropped old live games")
	}
}
