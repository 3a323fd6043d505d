package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/crestle/internal/game"
)

// Outcome reports how Persist stored a snapshot.
type Outcome int

const (
	// Skipped means nothing was stored.
	Skipped Outcome = iota
	// Stored means the full snapshot was written.
	Stored
	// StoredLite means the reduced snapshot was written.
	StoredLite
	// Refused means the saved snapshot is further along and was kept.
	Refused
)

func (o Outcome) String() string {
	switch o {
	case Stored:
		return "stored"
	case StoredLite:
		return "lite"
	case Refused:
		return "refused"
	}
	return "skipped"
}

// SnapshotKey is the sink key for a player's daily puzzle in a league.
func SnapshotKey(playerID, league string) string {
	return "crestle:" + playerID + ":" + league
}

// Persist writes snap under key. A snapshot that would undo progress already
// saved for the same puzzle is refused. A failed write is retried once after
// deleting the key; if that fails too, the lite snapshot is written. A final
// failure is logged and the game carries on unpersisted.
func Persist(ctx context.Context, sink Sink, key string, snap game.Snapshot) Outcome {
	if saved, err := Load(ctx, sink, key); err == nil && snap.Behind(saved) {
		log.Warn().Str("key", key).Int("guesses", len(snap.Guesses)).
			Int("saved", len(saved.Guesses)).Msg("refusing to roll back saved snapshot")
		return Refused
	}
	body, err := snap.Encode()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("encode snapshot")
		return Skipped
	}
	if err = sink.Put(ctx, key, body); err == nil {
		return Stored
	}
	log.Debug().Err(err).Str("key", key).Msg("snapshot write failed, clearing key")

	_ = sink.Delete(ctx, key)
	if err = sink.Put(ctx, key, body); err == nil {
		return Stored
	}

	lite, lerr := snap.Lite().Encode()
	if lerr == nil {
		if err = sink.Put(ctx, key, lite); err == nil {
			log.Info().Str("key", key).Int("bytes", len(lite)).Msg("stored lite snapshot")
			return StoredLite
		}
	}
	log.Warn().Err(err).Str("key", key).Msg("snapshot not persisted")
	return Skipped
}

// Load reads and decodes the snapshot under key.
func Load(ctx context.Context, sink Sink, key string) (game.Snapshot, error) {
	body, err := sink.Get(ctx, key)
	if err != nil {
		return game.Snapshot{}, err
	}
	snap, err := game.DecodeSnapshot(body)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("%s: %w", key, err)
	}
	return snap, nil
}

// IsMissing reports a missing key.
func IsMissing(err error) bool { return errors.Is(err, ErrNotFound) }
