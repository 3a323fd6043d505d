package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily puzzle.
type Result struct {
	PlayerID    string  `json:"playerId"`
	Date        string  `json:"date"`
	League      string  `json:"league"`
	TargetIndex int     `json:"targetIndex"`
	Guesses     int     `json:"guesses"`
	Solved      bool    `json:"solved"`
	BestPct     float64 `json:"bestPct"`
}

// Stats aggregates all results for a date and league.
type Stats struct {
	Date       string  `json:"date"`
	League     string  `json:"league"`
	Played     int     `json:"played"`
	Solved     int     `json:"solved"`
	AvgGuesses float64 `json:"avgGuesses"` // over solved games only
}

// Store persists daily results in the daily_results table.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether player finished the (date, league) puzzle.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, date, league string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE player_id=? AND date=? AND league=?`,
		playerID, date, league,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records a finished game. Duplicates are ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(player_id, date, league, target_index, guesses, solved, best_pct)
		VALUES(?,?,?,?,?,?,?)`,
		r.PlayerID, r.Date, r.League, r.TargetIndex, r.Guesses, r.Solved, r.BestPct,
	)
	return err
}

// Stats returns the aggregate for a date and league.
func (s *Store) Stats(ctx context.Context, date, league string) (Stats, error) {
	out := Stats{Date: date, League: league}
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
		        COALESCE(SUM(CASE WHEN solved THEN 1 ELSE 0 END), 0),
		        AVG(CASE WHEN solved THEN guesses END)
		FROM daily_results
		WHERE date=? AND league=?`, date, league,
	).Scan(&out.Played, &out.Solved, &avg)
	if err != nil {
		return out, err
	}
	out.AvgGuesses = avg.Float64
	return out, nil
}
