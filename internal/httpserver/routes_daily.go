// internal/httpserver/routes_daily.go
//
// Daily puzzle routes, mounted under /daily:
//   - GET /daily/stats?date=&league= → aggregate results (default date: today)
//   - GET /daily/played?league=      → whether the caller finished today's puzzle

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Get("/stats", s.handleDailyStats)
		r.Get("/played", s.handleDailyPlayed)
	})
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	if s.Daily == nil {
		writeError(w, http.StatusServiceUnavailable, "stats_disabled")
		return
	}
	q := r.URL.Query()
	league := q.Get("league")
	if league == "" {
		writeError(w, http.StatusBadRequest, "league_required")
		return
	}
	date := q.Get("date")
	if date == "" {
		date = s.Engine.Today()
	}
	st, err := s.Daily.Stats(r.Context(), date, league)
	if err != nil {
		log.Error().Err(err).Str("date", date).Str("league", league).Msg("daily stats")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, st)
}

type playedRes struct {
	Date   string `json:"date"`
	League string `json:"league"`
	Played bool   `json:"played"`
}

func (s *Server) handleDailyPlayed(w http.ResponseWriter, r *http.Request) {
	if s.Daily == nil {
		writeError(w, http.StatusServiceUnavailable, "stats_disabled")
		return
	}
	league := r.URL.Query().Get("league")
	date := s.Engine.Today()
	player := s.anonID(r)
	played := false
	if player != "" {
		var err error
		played, err = s.Daily.AlreadyPlayed(r.Context(), player, date, league)
		if err != nil {
			log.Error().Err(err).Msg("daily played")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
	}
	writeJSON(w, playedRes{Date: date, League: league, Played: played})
}
