// Package cli provides the command-line interface for Crestle.
package cli

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robalobadob/crestle/internal/config"
)

var (
	// cfg is loaded from the environment before any command runs, then
	// patched with explicitly set flags.
	cfg *config.Config

	flagCatalog    string
	flagSimilarity string
	flagMaxGuesses int
	flagLogLevel   string
	flagNameStyle  string

	rootCmd = &cobra.Command{
		Use:   "crestle",
		Short: "Daily crest guessing game",
		Long: `Crestle hides a football club crest and reveals it pixel by pixel as you
guess teams from the same country. Each guess uncovers the pixels whose
colour matches the hidden crest; solve it before you run out of guesses.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute runs the root command.
func Execute() error { return rootCmd.Execute() }

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagCatalog, "catalog", "", "catalog JSON file (env CATALOG_FILE)")
	pf.StringVar(&flagSimilarity, "similarity", "", "colour comparison mode: lab, rgb or hsl (env SIMILARITY_MODE)")
	pf.IntVar(&flagMaxGuesses, "max-guesses", 0, "guesses per puzzle (env MAX_GUESSES)")
	pf.StringVar(&flagNameStyle, "names", "", "team name style: plain or country (env NAME_STYLE)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level (env LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, dailyCmd, playCmd, auditCmd, compareCmd)
}

// setup loads configuration, applies flag overrides and configures logging.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.Load()
	flags := cmd.Flags()
	override(flags, "catalog", func() { cfg.CatalogFile = flagCatalog })
	override(flags, "similarity", func() { cfg.SimilarityMode = flagSimilarity })
	override(flags, "max-guesses", func() { cfg.MaxGuesses = flagMaxGuesses })
	override(flags, "names", func() { cfg.NameStyle = flagNameStyle })
	override(flags, "log-level", func() { cfg.LogLevel = flagLogLevel })
	if err := cfg.Validate(); err != nil {
		return err
	}
	setupLogging(os.Stderr)
	return nil
}

func override(flags *pflag.FlagSet, name string, apply func()) {
	if flags.Changed(name) {
		apply()
	}
}

func setupLogging(w io.Writer) {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}
}
