package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/crestle/internal/daily"
	"github.com/robalobadob/crestle/internal/httpserver"
	"github.com/robalobadob/crestle/internal/store"
)

var (
	servePort   string
	serveSecure bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP game server",
	Long: `Run the JSON HTTP API used by the browser client.

Daily progress is stored in the SQLite database (DB_PATH) and also handed to
the client as a signed token (SNAPSHOT_SECRET).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (env PORT)")
	serveCmd.Flags().BoolVar(&serveSecure, "secure-cookies", false, "issue Secure, SameSite=None cookies")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != "" {
		cfg.Port = servePort
	}

	engine, err := newEngine(true)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	secret, ephemeral := cfg.Secret()
	if ephemeral {
		log.Warn().Msg("SNAPSHOT_SECRET not set, snapshot tokens will not survive a restart")
	}

	srv := httpserver.New(httpserver.Deps{
		Engine:  engine,
		Live:    store.NewMemoryStore(),
		Sink:    store.NewSQLiteSink(db, cfg.SnapshotQuota),
		Sealer:  store.NewSealer(secret, 0),
		Daily:   daily.NewStore(db),
		Origins: cfg.ClientOrigins,
		Secure:  serveSecure,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("port", cfg.Port).Msg("starting crestle server")
	return srv.Start(ctx, ":"+cfg.Port)
}
