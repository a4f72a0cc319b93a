// Command emoji-maze-quest starts the Emoji Maze Quest server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "mcp-stdio" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from MAZE_* environment variables (and a .env file). Flags
// override host/port, themes directory, store backend, debug logging and
// optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/emoji-maze-quest/api"
	"github.com/wricardo/emoji-maze-quest/game/config"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
	"github.com/wricardo/emoji-maze-quest/game/service"
	"github.com/wricardo/emoji-maze-quest/game/session"
	"github.com/wricardo/emoji-maze-quest/identity"
	"github.com/wricardo/emoji-maze-quest/telemetry"
	"github.com/wricardo/emoji-maze-quest/transport/mcp"
	"github.com/wricardo/emoji-maze-quest/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Emoji Maze Quest Server"
)

// tickInterval is how often controller timers (modal lockout, auto close) advance
const tickInterval = 100 * time.Millisecond

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// newCommand builds the CLI. Flags are inherited by the subcommands.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "emoji-maze-quest",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host (MAZE_HOST)"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port (MAZE_PORT)"},
			&cli.StringFlag{Name: "themes-dir", Value: "configs", Usage: "Directory containing theme files (MAZE_THEMES_DIR)"},
			&cli.StringFlag{Name: "store", Value: config.StoreFile, Usage: "Durable store: file, sqlite or memory (MAZE_STORE)"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging with console output"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel (NGROK_ENABLED)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (NGROK_DOMAIN)"},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runServe,
			},
			{
				Name:    "mcp-stdio",
				Aliases: []string{"stdio-mcp", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

// loadSettings reads the environment and applies explicitly set flags on top
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("host") {
		settings.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Port = cmd.Int("port")
	}
	if cmd.IsSet("themes-dir") {
		settings.ThemesDir = cmd.String("themes-dir")
	}
	if cmd.IsSet("store") {
		settings.Store = cmd.String("store")
	}
	if cmd.IsSet("ngrok") {
		settings.NgrokEnabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-domain") {
		settings.NgrokDomain = cmd.String("ngrok-domain")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func setupLogging(settings *config.Settings, debug bool) {
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		log.Warn().Str("level", settings.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

// services holds everything a running server is made of
type services struct {
	settings *config.Settings
	store    persistence.Store
	themes   *config.Manager
	sessions *session.Manager
	hub      *websocket.Hub
	game     service.GameService
}

// initializeServices wires the store, theme catalog, session manager,
// WebSocket hub and the game service. Nothing runs until start is called.
func initializeServices(settings *config.Settings) (*services, error) {
	themes, err := config.NewManager(settings.ThemesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create theme manager: %w", err)
	}

	store, err := openStore(settings)
	if err != nil {
		return nil, err
	}

	ident := identity.NewClient(settings.IdentityURL)
	hub := websocket.NewHub()

	sessions := session.NewManager(session.Options{
		Timings: session.Timings{
			MoveInterval:   settings.MoveInterval,
			ModalLockout:   settings.ModalLockout,
			AutoCloseDelay: settings.AutoCloseDelay,
			SyncTimeout:    settings.SyncTimeout,
		},
		Syncer:   ident,
		OnChange: hub.BroadcastView,
	})

	return &services{
		settings: settings,
		store:    store,
		themes:   themes,
		sessions: sessions,
		hub:      hub,
		game:     service.NewGameService(sessions, themes, store, ident),
	}, nil
}

// openStore opens the durable store selected by settings
func openStore(settings *config.Settings) (persistence.Store, error) {
	switch settings.Store {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory store, progress is lost on restart")
		return persistence.NewMemoryStore(), nil
	case config.StoreSQLite:
		if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err := persistence.OpenSQLiteStore(filepath.Join(settings.DataDir, "maze.db"))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		store, err := persistence.NewFileStore(settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return store, nil
	}
}

// start launches the hub, idle-session sweeper and controller timers. They
// stop when ctx is done.
func (s *services) start(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.sessions.Run(ctx, session.DefaultSweepInterval, session.DefaultMaxIdle)
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sessions.Tick()
			}
		}
	}()
}

// close saves every live adventure and releases the store
func (s *services) close(ctx context.Context) {
	s.sessions.Close(ctx)
	if err := s.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}
}

// handler returns the API with the MCP endpoint mounted, targeting baseURL
func (s *services) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(s.game, s.hub)
	apiServer.Mount("/mcp", mcp.NewClient(baseURL).HTTPHandler())
	return apiServer
}

// runServe starts the HTTP server with REST API, WebSocket hub, and an /mcp endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	setupLogging(settings, cmd.Bool("debug"))
	log.Info().Str("version", Version).Str("mode", "serve").Msg("Starting " + AppName)

	if settings.OtelEnabled {
		shutdown, err := telemetry.Setup(ctx, "server")
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(flushCtx)
		}()
	}

	svc, err := initializeServices(settings)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc.start(ctx)

	addr := settings.Addr()
	handler := svc.handler("http://" + addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if settings.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, settings, handler)
		}()
	}

	select {
	case err = <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	}
	stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	svc.close(shutdownCtx)

	wg.Wait()
	log.Info().Msg("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, settings *config.Settings, handler http.Handler) {
	log.Info().Msg("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
		log.Info().Str("domain", settings.NgrokDomain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	log.Info().Str("url", url).Msg("🚀 Ngrok tunnel established")
	log.Info().Msgf("  REST API (ngrok): %s/api", url)
	log.Info().Msgf("  WebSocket (ngrok): %s/ws?session=<session_id>", url)
	log.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", url)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// externalServerUp reports whether a maze server already answers at baseURL
func externalServerUp(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening
// on the configured address; if none answers, it starts an internal HTTP API
// bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	// stdout carries the MCP protocol; logs stay on stderr
	setupLogging(settings, cmd.Bool("debug"))
	log.Info().Str("version", Version).Str("mode", "mcp-stdio").Msg("Starting " + AppName)

	externalURL := "http://" + settings.Addr()
	log.Info().Str("url", externalURL).Msg("Checking for external API server")

	baseURL := externalURL
	if !externalServerUp(ctx, externalURL) {
		log.Info().Msg("No external API server found, starting internal HTTP server")

		svc, err := initializeServices(settings)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		svc.start(ctx)
		defer svc.close(context.Background())

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer := &http.Server{Handler: svc.handler(baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using internal HTTP server)")
	} else {
		log.Info().Str("url", baseURL).Msg("MCP stdio server ready (using external HTTP server)")
	}

	return mcp.NewClient(baseURL).ServeStdio()
}
