// internal/httpserver/server.go
//
// HTTP server wiring for the Crestle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/leagues".
//   - Game endpoints: new, guess, state, mask, revealed crest, share text, resume.
//   - Guess crest images by opaque id: /images/{tempId}.png.
//   - Daily stats: mounted under /daily.
//
// Notes:
//   - Players are identified by an anonymous cookie; there is no login.
//   - Each live game has its own lock, so guesses on one game never interleave.
//   - Daily progress is written to the snapshot sink after every change and
//     can also be held by the client as a sealed token.

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/daily"
	"github.com/robalobadob/crestle/internal/game"
	"github.com/robalobadob/crestle/internal/raster"
	"github.com/robalobadob/crestle/internal/store"
)

// Deps are the collaborators a Server needs. Sink, Sealer and Daily are optional.
type Deps struct {
	Engine  *game.Engine
	Live    store.Live
	Sink    store.Sink
	Sealer  *store.Sealer
	Daily   *daily.Store
	Origins []string
	Secure  bool // mark cookies Secure + SameSite=None
}

// Server bundles the router and its dependencies.
type Server struct {
	r *chi.Mux
	Deps
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Live == nil {
		d.Live = store.NewMemoryStore()
	}
	s := &Server{r: chi.NewRouter(), Deps: d}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(30 * time.Second)) // bound handler time (crest fetches included)
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(d.Origins))                 // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"crestle","endpoints":["/health","/leagues","POST /game/new","POST /game/guess","POST /game/resume","/daily/stats"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/leagues", s.handleLeagues)

	// --- game ---
	s.r.Post("/game/new", s.handleNewGame)
	s.r.Post("/game/guess", s.handleGuess)
	s.r.Post("/game/resume", s.handleResume)
	s.r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetGame)
		r.Get("/mask", s.handleMask)
		r.Get("/reveal.png", s.handleRevealPNG)
		r.Get("/share", s.handleShare)
	})
	s.r.Get("/images/{tempId}.png", s.handleImage)

	s.mountDaily(s.r)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Start begins serving HTTP on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return hs.Shutdown(shutdownCtx)
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ------------------------------ LEAGUES ------------------------------------

type leaguesRes struct {
	Leagues []catalog.League `json:"leagues"`
	Message string           `json:"message,omitempty"`
}

func (s *Server) handleLeagues(w http.ResponseWriter, r *http.Request) {
	cat := s.Engine.Catalog()
	if cat == nil || cat.Len() == 0 {
		writeJSON(w, leaguesRes{Leagues: []catalog.League{}, Message: "no catalog data loaded"})
		return
	}
	writeJSON(w, leaguesRes{Leagues: cat.Leagues()})
}

// ------------------------------ GAME ---------------------------------------

type newGameReq struct {
	Mode   string `json:"mode"`   // "daily" | "random"
	League string `json:"league"` // country/league key
}

// gameView is the client-facing state of a game. The target is only named
// once the game is over.
type gameView struct {
	GameID      string       `json:"gameId"`
	Mode        game.Mode    `json:"mode"`
	Date        string       `json:"date"`
	League      string       `json:"league"`
	LeagueLabel string       `json:"leagueLabel"`
	State       game.Status  `json:"state"`
	MaxGuesses  int          `json:"maxGuesses"`
	Remaining   int          `json:"remaining"`
	Guesses     []game.Guess `json:"guesses"`
	Dims        [2]int       `json:"dims"`
	Mask        string       `json:"mask"`
	Answer      string       `json:"answer,omitempty"`
	Resumed     bool         `json:"resumed,omitempty"`
	Token       string       `json:"token,omitempty"`
}

func (s *Server) view(g *game.Game, player string) gameView {
	w, h := g.Dims()
	v := gameView{
		GameID:      g.ID,
		Mode:        g.Mode,
		Date:        g.Date,
		League:      g.League,
		LeagueLabel: catalog.LeagueLabel(g.League),
		State:       g.Status,
		MaxGuesses:  g.MaxGuesses,
		Remaining:   g.Remaining(),
		Guesses:     g.Guesses,
		Dims:        [2]int{w, h},
		Mask:        g.RevealedMask().Pack(),
		Token:       s.seal(g, player),
	}
	if v.Guesses == nil {
		v.Guesses = []game.Guess{}
	}
	if g.Finished() {
		v.Answer = s.Engine.DisplayName(g.Target)
	}
	return v
}

// handleNewGame starts a puzzle. A daily puzzle already in progress (or
// finished) for this player and league is returned as is: first the live
// game, then the snapshot sink.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_mode")
		return
	}
	player := s.ensureAnonID(w, r)
	ctx := r.Context()

	if mode == game.ModeDaily {
		if e, err := s.Live.Daily(ctx, player, s.Engine.Today(), req.League); err == nil {
			s.writeEntry(w, e, player, true)
			return
		}
	}

	var g *game.Game
	if mode == game.ModeDaily {
		if g, err = s.resumeFromSink(ctx, player, req.League); err != nil {
			s.writeGameError(w, err)
			return
		}
	}
	resumed := g != nil
	if g == nil {
		g, err = s.Engine.StartPuzzle(ctx, mode, req.League)
		if err != nil {
			s.writeGameError(w, err)
			return
		}
	}

	e, err := s.Live.Save(ctx, g, player)
	if err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	if e.Game != g {
		// A concurrent request registered today's game first.
		s.writeEntry(w, e, player, true)
		return
	}
	s.persist(ctx, g, player)
	s.writeEntry(w, e, player, resumed)
}

func (s *Server) writeEntry(w http.ResponseWriter, e *store.Entry, player string, resumed bool) {
	e.Lock()
	v := s.view(e.Game, player)
	e.Unlock()
	v.Resumed = resumed
	writeJSON(w, v)
}

// resumeFromSink restores the player's saved daily puzzle. It returns nil
// when there is nothing usable to resume. Stale snapshots are deleted;
// any other restore failure is returned and the snapshot is left alone.
func (s *Server) resumeFromSink(ctx context.Context, player, league string) (*game.Game, error) {
	snap, ok := s.savedSnapshot(ctx, player, league)
	if !ok {
		return nil, nil
	}
	key := store.SnapshotKey(player, league)
	g, err := s.Engine.Restore(ctx, snap, s.Engine.Today())
	if err != nil {
		if game.IsStale(err) {
			log.Debug().Str("key", key).Str("date", snap.Date).Msg("discarding stale snapshot")
			_ = s.Sink.Delete(ctx, key)
			return nil, nil
		}
		log.Warn().Err(err).Str("key", key).Msg("restore snapshot")
		return nil, err
	}
	return g, nil
}

// savedSnapshot reads the player's snapshot for league from the sink.
func (s *Server) savedSnapshot(ctx context.Context, player, league string) (game.Snapshot, bool) {
	if s.Sink == nil {
		return game.Snapshot{}, false
	}
	key := store.SnapshotKey(player, league)
	snap, err := store.Load(ctx, s.Sink, key)
	if err != nil {
		if !store.IsMissing(err) {
			log.Warn().Err(err).Str("key", key).Msg("read snapshot")
		}
		return game.Snapshot{}, false
	}
	return snap, true
}

type guessReq struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

type guessRes struct {
	HitPct float64 `json:"hitPct"`
	gameView
}

// handleGuess scores a guess, persists daily progress and, when the game
// ends, records the daily result.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	player := s.ensureAnonID(w, r)
	e, ok := s.entry(w, r, req.GameID, player)
	if !ok {
		return
	}

	e.Lock()
	defer e.Unlock()
	g := e.Game

	res, err := s.Engine.SubmitGuess(r.Context(), g, req.Name)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	s.persist(r.Context(), g, player)
	if g.Finished() {
		s.recordDaily(r.Context(), g, player)
	}
	writeJSON(w, guessRes{HitPct: res.Guess.HitPct, gameView: s.view(g, player)})
}

type resumeReq struct {
	Token string `json:"token"`
}

// handleResume restores a daily puzzle from a sealed token held by the client.
// A token older than the progress already recorded for the player is refused.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if s.Sealer == nil {
		writeError(w, http.StatusNotImplemented, "tokens_disabled")
		return
	}
	var req resumeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	snap, player, err := s.Sealer.Open(req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "bad_token")
		return
	}
	s.setAnonCookie(w, player)
	ctx := r.Context()

	if snap.Mode != game.ModeDaily || snap.Date != s.Engine.Today() {
		s.writeGameError(w, game.ErrStaleSnapshot)
		return
	}
	if saved, ok := s.savedSnapshot(ctx, player, snap.League); ok && snap.Behind(saved) {
		writeError(w, http.StatusConflict, "token_superseded")
		return
	}
	if e, err := s.Live.Daily(ctx, player, snap.Date, snap.League); err == nil {
		e.Lock()
		behind := snap.Behind(e.Game.Snapshot())
		e.Unlock()
		if behind {
			writeError(w, http.StatusConflict, "token_superseded")
			return
		}
		s.writeEntry(w, e, player, true)
		return
	}

	g, err := s.Engine.Restore(ctx, snap, s.Engine.Today())
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	e, err := s.Live.Save(ctx, g, player)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	if e.Game == g {
		s.persist(ctx, g, player)
	}
	s.writeEntry(w, e, player, true)
}

// entry loads a live game owned by player, writing 404 otherwise.
func (s *Server) entry(w http.ResponseWriter, r *http.Request, id, player string) (*store.Entry, bool) {
	e, err := s.Live.Get(r.Context(), id)
	if err != nil || e.Owner != player {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return e, true
}

func (s *Server) pathEntry(w http.ResponseWriter, r *http.Request) (*store.Entry, string, bool) {
	player := s.anonID(r)
	e, ok := s.entry(w, r, chi.URLParam(r, "id"), player)
	return e, player, ok
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	e, player, ok := s.pathEntry(w, r)
	if !ok {
		return
	}
	e.Lock()
	defer e.Unlock()
	writeJSON(w, s.view(e.Game, player))
}

type maskRes struct {
	Mask     string `json:"mask"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Revealed int    `json:"revealed"`
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.pathEntry(w, r)
	if !ok {
		return
	}
	e.Lock()
	m := e.Game.RevealedMask()
	e.Unlock()
	writeJSON(w, maskRes{Mask: m.Pack(), Width: m.Width(), Height: m.Height(), Revealed: m.Count()})
}

func (s *Server) handleRevealPNG(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.pathEntry(w, r)
	if !ok {
		return
	}
	e.Lock()
	img, err := e.Game.Revealed()
	e.Unlock()
	if err != nil {
		writeError(w, http.StatusConflict, "no_target")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		log.Warn().Err(err).Msg("encode reveal png")
	}
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	e, _, ok := s.pathEntry(w, r)
	if !ok {
		return
	}
	e.Lock()
	text := e.Game.ShareText()
	e.Unlock()
	writeJSON(w, map[string]string{"text": text})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img, ok := s.Engine.GuessImage(chi.URLParam(r, "tempId"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := png.Encode(w, img); err != nil {
		log.Warn().Err(err).Msg("encode crest png")
	}
}

// ------------------------------ PERSISTENCE --------------------------------

// persist writes daily progress to the sink. Random games are not persisted.
func (s *Server) persist(ctx context.Context, g *game.Game, player string) {
	if s.Sink == nil || g.Mode != game.ModeDaily {
		return
	}
	store.Persist(ctx, s.Sink, store.SnapshotKey(player, g.League), g.Snapshot())
}

func (s *Server) seal(g *game.Game, player string) string {
	if s.Sealer == nil || g.Mode != game.ModeDaily {
		return ""
	}
	tok, err := s.Sealer.Seal(player, g.Snapshot())
	if err != nil {
		log.Warn().Err(err).Str("game", g.ID).Msg("seal snapshot")
		return ""
	}
	return tok
}

func (s *Server) recordDaily(ctx context.Context, g *game.Game, player string) {
	if s.Daily == nil || g.Mode != game.ModeDaily {
		return
	}
	err := s.Daily.InsertResult(ctx, daily.Result{
		PlayerID:    player,
		Date:        g.Date,
		League:      g.League,
		TargetIndex: g.TargetIndex,
		Guesses:     len(g.Guesses),
		Solved:      g.Solved(),
		BestPct:     g.BestPct(),
	})
	if err != nil {
		log.Warn().Err(err).Str("game", g.ID).Msg("record daily result")
	}
}

// ------------------------------ ERRORS -------------------------------------

// writeGameError maps engine errors to status codes and error codes.
func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	var le *raster.LoadError
	switch {
	case errors.As(err, &le):
		log.Warn().Err(err).Str("entity", le.EntityID).Msg("crest load failed")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "load_failed", "entity": le.EntityID})
	case errors.Is(err, game.ErrUnknownEntity):
		writeError(w, http.StatusUnprocessableEntity, "unknown_entity")
	case errors.Is(err, game.ErrNotPlaying):
		writeError(w, http.StatusConflict, "not_playing")
	case errors.Is(err, game.ErrUnknownLeague):
		writeError(w, http.StatusNotFound, "unknown_league")
	case errors.Is(err, game.ErrStaleSnapshot):
		writeError(w, http.StatusGone, "stale_snapshot")
	case errors.Is(err, catalog.ErrNoData):
		writeError(w, http.StatusServiceUnavailable, "no_data")
	default:
		log.Error().Err(err).Msg("game request failed")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// ------------------------------ ANON ID ------------------------------------

const anonCookieName = "crestle_anon"

func (s *Server) anonID(r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if id := s.anonID(r); id != "" {
		return id
	}
	id := genID()
	s.setAnonCookie(w, id)
	return id
}

func (s *Server) setAnonCookie(w http.ResponseWriter, id string) {
	sameSite := http.SameSiteLaxMode
	if s.Secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
}

// genID returns a 32-hex-char random id.
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
