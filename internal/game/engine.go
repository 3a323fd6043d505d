// internal/game/engine.go
//
// Puzzle engine: ties the catalog, crest images and reveal scans into games.
// Responsibilities:
//   - Pick a target (deterministic daily index or random) and build its session.
//   - Resolve guess names within the league's country pool.
//   - Score guesses with the reveal engine and advance the game state.
//   - Restore today's daily puzzle from a snapshot, replaying guesses when
//     the stored mask is missing or unusable.
//
// Per-game work is synchronous; callers serialize access to a single Game.
package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/daily"
	"github.com/robalobadob/crestle/internal/raster"
	"github.com/robalobadob/crestle/internal/reveal"
	"github.com/robalobadob/crestle/internal/similarity"
)

// Caching controls when crest images are fetched.
type Caching string

const (
	CachePrecache Caching = "precache" // league + guess pool loaded before the puzzle starts
	CacheLazy     Caching = "lazy"     // loaded on first use
)

const (
	defaultMaxGuesses = 4
	defaultMaxCanvas  = 512
	defaultWorkers    = 8
)

// Options configures an Engine. Zero values take defaults.
type Options struct {
	MaxGuesses int
	FormatName func(catalog.Team) string
	Caching    Caching
	MaxCanvas  int
	Workers    int
	Similarity similarity.Config
	Overrides  similarity.Overrides
	Location   *time.Location
	Now        func() time.Time
}

// Engine starts and plays puzzles. It is safe for concurrent use across games.
type Engine struct {
	cat    *catalog.Catalog
	images *raster.Cache
	rz     raster.Rasterizer
	opts   Options
}

// Result is the outcome of one submitted guess.
type Result struct {
	Guess     Guess  `json:"guess"`
	Status    Status `json:"state"`
	Remaining int    `json:"remaining"`
}

// NewEngine wires an engine. rz may be nil for the default contain-fit rasterizer.
func NewEngine(cat *catalog.Catalog, images *raster.Cache, rz raster.Rasterizer, opts Options) *Engine {
	if rz == nil {
		rz = raster.ContainRasterizer{}
	}
	if opts.MaxGuesses <= 0 {
		opts.MaxGuesses = defaultMaxGuesses
	}
	if opts.FormatName == nil {
		opts.FormatName = catalog.Formatter(catalog.NamePlain)
	}
	if opts.Caching == "" {
		opts.Caching = CacheLazy
	}
	if opts.MaxCanvas == 0 {
		opts.MaxCanvas = defaultMaxCanvas
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Similarity.Mode == "" {
		opts.Similarity = similarity.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{cat: cat, images: images, rz: rz, opts: opts}
}

// Catalog exposes the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Images exposes the engine's crest cache.
func (e *Engine) Images() *raster.Cache { return e.images }

// Today is the current daily date key.
func (e *Engine) Today() string { return daily.DateKey(e.opts.Now(), e.opts.Location) }

// DisplayName formats a team the way guesses are displayed and matched.
func (e *Engine) DisplayName(t catalog.Team) string { return e.opts.FormatName(t) }

// StartPuzzle picks a target for the league and returns a playing game.
// Image failures come back as *raster.LoadError.
func (e *Engine) StartPuzzle(ctx context.Context, mode Mode, league string) (*Game, error) {
	pool, err := e.targetPool(league)
	if err != nil {
		return nil, err
	}
	date := e.Today()
	idx := daily.Index(date, league, len(pool))
	if mode == ModeRandom {
		idx = daily.RandomIndex(len(pool))
	}
	return e.newGame(ctx, mode, league, date, idx)
}

func (e *Engine) targetPool(league string) ([]catalog.Team, error) {
	if e.cat == nil || e.cat.Len() == 0 {
		return nil, catalog.ErrNoData
	}
	pool := e.cat.TargetPool(league)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLeague, league)
	}
	return pool, nil
}

func (e *Engine) newGame(ctx context.Context, mode Mode, league, date string, idx int) (*Game, error) {
	pool := e.cat.TargetPool(league)
	target := pool[idx]

	if e.opts.Caching == CachePrecache {
		e.precache(ctx, league)
	}

	img, err := e.images.Get(ctx, entry(target))
	if err != nil {
		return nil, err
	}
	w, h := raster.CanvasSize(img, e.opts.MaxCanvas)
	cfg := similarity.ResolveConfig(e.opts.Similarity, e.opts.Overrides, target.ID)
	sess := reveal.NewSession(target.ID, e.rz.Rasterize(img, w, h), cfg)

	g := &Game{
		ID:          randomID(),
		Mode:        mode,
		Date:        date,
		League:      league,
		TargetIndex: idx,
		Target:      target,
		MaxGuesses:  e.opts.MaxGuesses,
	}
	g.Start(sess)

	log.Info().Str("game", g.ID).Str("mode", string(mode)).Str("league", league).
		Str("date", date).Int("index", idx).Int("w", w).Int("h", h).Msg("puzzle started")
	return g, nil
}

func (e *Engine) precache(ctx context.Context, league string) {
	seen := make(map[string]bool)
	var entries []raster.Entry
	for _, t := range append(e.cat.TargetPool(league), e.cat.GuessPool(league)...) {
		if !seen[t.ID] {
			seen[t.ID] = true
			entries = append(entries, entry(t))
		}
	}
	e.images.Precache(ctx, entries, e.opts.Workers)
}

// SubmitGuess resolves name in the guess pool, scores it against the target
// and records it. Unknown names and finished games leave g untouched.
func (e *Engine) SubmitGuess(ctx context.Context, g *Game, name string) (Result, error) {
	if g.Status != StatusPlaying {
		return Result{Status: g.Status, Remaining: g.Remaining()}, ErrNotPlaying
	}
	team, err := e.Resolve(g, name)
	if err != nil {
		return Result{Status: g.Status, Remaining: g.Remaining()}, err
	}

	pct, err := e.score(ctx, g, team, g.mask)
	if err != nil {
		return Result{Status: g.Status, Remaining: g.Remaining()}, err
	}
	guess := Guess{
		EntityID: team.ID,
		Name:     e.opts.FormatName(team),
		ImageRef: e.imageRef(team),
		HitPct:   pct,
	}
	status, err := g.Apply(guess)
	if err != nil {
		return Result{Status: status, Remaining: g.Remaining()}, err
	}

	log.Debug().Str("game", g.ID).Str("guess", team.ID).Float64("hitPct", pct).
		Str("state", string(status)).Msg("guess scored")
	return Result{Guess: guess, Status: status, Remaining: g.Remaining()}, nil
}

// Resolve finds the team a guess name refers to in g's guess pool.
func (e *Engine) Resolve(g *Game, name string) (catalog.Team, error) {
	team, ok := catalog.FindByName(e.cat.GuessPool(g.League), name, e.opts.FormatName)
	if !ok {
		return catalog.Team{}, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return team, nil
}

// Prefetch loads a team's crest into the cache without touching any game.
func (e *Engine) Prefetch(ctx context.Context, t catalog.Team) error {
	_, err := e.images.Get(ctx, entry(t))
	return err
}

// score rasterizes team's crest on the game canvas and reveals into mask.
func (e *Engine) score(ctx context.Context, g *Game, team catalog.Team, mask *reveal.Mask) (float64, error) {
	img, err := e.images.Get(ctx, entry(team))
	if err != nil {
		return 0, err
	}
	return g.session.ApplyGuess(e.rz.Rasterize(img, g.session.Width(), g.session.Height()), mask)
}

// imageRef is the opaque id a guess crest is served under. The crest is
// cached by the time a guess is scored.
func (e *Engine) imageRef(t catalog.Team) string { return e.images.TempID(t.ID) }

// GuessImage returns a cached guess crest by the ref recorded in a Guess.
func (e *Engine) GuessImage(ref string) (image.Image, bool) {
	return e.images.ByTempID(ref)
}

// Restore resumes a daily puzzle from a snapshot taken on today (see Today).
// Snapshots for another day, another mode or an older format yield
// ErrStaleSnapshot.
func (e *Engine) Restore(ctx context.Context, snap Snapshot, today string) (*Game, error) {
	if snap.V != SnapshotVersion || snap.Mode != ModeDaily || snap.Date != today {
		return nil, ErrStaleSnapshot
	}
	pool, err := e.targetPool(snap.League)
	if err != nil {
		return nil, err
	}
	if snap.TargetIndex < 0 || snap.TargetIndex >= len(pool) {
		return nil, fmt.Errorf("%w: target index %d out of range", ErrStaleSnapshot, snap.TargetIndex)
	}

	g, err := e.newGame(ctx, snap.Mode, snap.League, snap.Date, snap.TargetIndex)
	if err != nil {
		return nil, err
	}

	w, h := g.Dims()
	mask, err := e.restoreMask(ctx, g, snap, w, h)
	if err != nil {
		return nil, err
	}
	g.mask = mask
	g.Guesses = append([]Guess(nil), snap.Guesses...)
	g.Status = restoredStatus(snap, g.MaxGuesses)

	log.Info().Str("game", g.ID).Str("league", g.League).Int("guesses", len(g.Guesses)).
		Str("state", string(g.Status)).Msg("puzzle restored")
	return g, nil
}

func (e *Engine) restoreMask(ctx context.Context, g *Game, snap Snapshot, w, h int) (*reveal.Mask, error) {
	if snap.Mask != "" && snap.Dims == [2]int{w, h} {
		m, err := reveal.UnpackMask(snap.Mask, w, h)
		if err == nil {
			return m, nil
		}
		log.Debug().Err(err).Str("game", g.ID).Msg("stored mask unusable, replaying guesses")
	}

	mask := reveal.NewMask(w, h)
	for _, gu := range snap.Guesses {
		team, ok := e.cat.ByID(gu.EntityID)
		if !ok {
			log.Debug().Str("team", gu.EntityID).Msg("replay skipped unknown team")
			continue
		}
		if _, err := e.score(ctx, g, team, mask); err != nil {
			return nil, fmt.Errorf("replay %s: %w", gu.EntityID, err)
		}
	}
	return mask, nil
}

func restoredStatus(snap Snapshot, maxGuesses int) Status {
	if snap.Solved {
		return StatusWon
	}
	for _, gu := range snap.Guesses {
		if reveal.IsWin(gu.HitPct) {
			return StatusWon
		}
	}
	if len(snap.Guesses) >= maxGuesses {
		return StatusLost
	}
	return StatusPlaying
}

// IsStale reports whether err means a snapshot should be silently dropped.
func IsStale(err error) bool { return errors.Is(err, ErrStaleSnapshot) }

func entry(t catalog.Team) raster.Entry {
	return raster.Entry{EntityID: t.ID, Ref: t.Crest}
}

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
