package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/crestle/internal/daily"
	"github.com/robalobadob/crestle/internal/game"
	"github.com/robalobadob/crestle/internal/store"
	"github.com/robalobadob/crestle/internal/tui"
)

// localPlayer identifies terminal games in the snapshot and results tables.
const localPlayer = "local"

var (
	playLeague  string
	playRandom  bool
	playVerbose bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a puzzle in the terminal",
	Long: `Play a puzzle in the terminal. The daily puzzle resumes where you left
off; random puzzles are not saved.

Examples:
  crestle play --league argentina/primeradivision
  crestle play --league spain/laliga --random`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&playLeague, "league", "l", "", "league key as country/league (see crestle daily)")
	playCmd.Flags().BoolVar(&playRandom, "random", false, "random target instead of the daily one")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "keep logging to stderr while playing")
	_ = playCmd.MarkFlagRequired("league")
}

func runPlay(cmd *cobra.Command, args []string) error {
	if !playVerbose {
		setupLogging(io.Discard)
	}
	engine, err := newEngine(false)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	sink := store.NewSQLiteSink(db, cfg.SnapshotQuota)
	key := store.SnapshotKey(localPlayer, playLeague)

	g, err := startOrResume(ctx, engine, sink, key)
	if err != nil {
		return err
	}
	if g.Mode == game.ModeDaily {
		store.Persist(ctx, sink, key, g.Snapshot())
	}

	var tuiSink store.Sink
	if g.Mode == game.ModeDaily {
		tuiSink = sink
	}
	final, err := tui.Run(engine, g, tuiSink, key)
	if err != nil {
		return err
	}

	if final.Finished() {
		fmt.Fprintln(cmd.OutOrStdout(), final.ShareText())
		if final.Mode == game.ModeDaily {
			err := daily.NewStore(db).InsertResult(ctx, daily.Result{
				PlayerID: localPlayer, Date: final.Date, League: final.League,
				TargetIndex: final.TargetIndex, Guesses: len(final.Guesses),
				Solved: final.Solved(), BestPct: final.BestPct(),
			})
			if err != nil {
				log.Warn().Err(err).Msg("record daily result")
			}
		}
	}
	return nil
}

func startOrResume(ctx context.Context, engine *game.Engine, sink store.Sink, key string) (*game.Game, error) {
	if playRandom {
		return engine.StartPuzzle(ctx, game.ModeRandom, playLeague)
	}
	snap, err := store.Load(ctx, sink, key)
	switch {
	case err == nil:
		g, rerr := engine.Restore(ctx, snap, engine.Today())
		if rerr == nil {
			return g, nil
		}
		if !game.IsStale(rerr) {
			return nil, fmt.Errorf("resume saved puzzle: %w", rerr)
		}
		log.Debug().Str("date", snap.Date).Msg("discarding stale saved puzzle")
		_ = sink.Delete(ctx, key)
	case !errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(os.Stderr, "warning: saved puzzle unreadable: %v\n", err)
	}
	return engine.StartPuzzle(ctx, game.ModeDaily, playLeague)
}
