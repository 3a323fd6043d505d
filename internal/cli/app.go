package cli

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/assets"
	"github.com/robalobadob/crestle/internal/catalog"
	"github.com/robalobadob/crestle/internal/game"
	"github.com/robalobadob/crestle/internal/raster"
	"github.com/robalobadob/crestle/internal/similarity"
	"github.com/robalobadob/crestle/internal/store"
)

// newLoader builds the crest loader from configuration.
func newLoader() *raster.SmartLoader {
	retries := cfg.ImageRetries
	if retries <= 0 {
		retries = -1
	}
	return raster.NewSmartLoader(cfg.ImageTimeout, raster.RetryConfig{MaxRetries: retries})
}

// newEngine loads the catalog and wires a game engine. With tolerant set, a
// catalog failure is logged and the engine starts empty.
func newEngine(tolerant bool) (*game.Engine, error) {
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		if !tolerant {
			return nil, err
		}
		log.Warn().Err(err).Str("file", cfg.CatalogFile).Msg("catalog unavailable, no puzzles can start")
	}

	sim, err := cfg.Similarity()
	if err != nil {
		return nil, err
	}
	overrides, err := similarity.LoadOverrides(cfg.OverridesFile)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := game.Options{
		MaxGuesses: cfg.MaxGuesses,
		FormatName: catalog.Formatter(catalog.NameStyle(cfg.NameStyle)),
		Caching:    game.Caching(cfg.Caching),
		MaxCanvas:  cfg.MaxCanvas,
		Similarity: sim,
		Overrides:  overrides,
		Location:   loc,
	}
	if cat != nil {
		log.Info().Int("teams", cat.Len()).Int("leagues", len(cat.Leagues())).
			Str("mode", string(sim.Mode)).Msg("catalog loaded")
	}
	return game.NewEngine(cat, raster.NewCache(newLoader()), nil, opts), nil
}

// openDB opens and migrates the configured database.
func openDB() (*sql.DB, error) {
	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
