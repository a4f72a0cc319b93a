// Command identityd runs the reference identity service the game syncs
// progress to.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/emoji-maze-quest/identity/server"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "identityd",
		Usage: "Reference identity service for Emoji Maze Quest",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8090", Usage: "listen address", Sources: cli.EnvVars("IDENTITY_ADDR")},
			&cli.StringFlag{Name: "db", Value: "", Usage: "SQLite database path (empty keeps players in memory)", Sources: cli.EnvVars("IDENTITY_DB")},
			&cli.StringFlag{Name: "log-level", Value: "info", Sources: cli.EnvVars("IDENTITY_LOG_LEVEL")},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("identityd exited")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if lvl, err := zerolog.ParseLevel(cmd.String("log-level")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	store, err := openStore(cmd.String("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           server.New(store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Identity service listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down identity service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(path string) (server.PlayerStore, error) {
	if path == "" {
		log.Warn().Msg("No database configured, players are kept in memory")
		return server.NewMemoryPlayerStore(), nil
	}
	store, err := server.OpenSQLitePlayerStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open player store: %w", err)
	}
	return store, nil
}
