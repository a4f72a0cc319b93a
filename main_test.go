package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/emoji-maze-quest/game/config"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
)

func TestConstants(t *testing.T) {
	if Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", Version)
	}
	if AppName != "Emoji Maze Quest Server" {
		t.Errorf("Expected app name Emoji Maze Quest Server, got %s", AppName)
	}
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}
	return &config.Settings{
		Host:        "localhost",
		Port:        8080,
		ThemesDir:   "configs",
		DataDir:     t.TempDir(),
		Store:       config.StoreMemory,
		IdentityURL: "http://127.0.0.1:1",
		LogLevel:    "info",
	}
}

func TestInitializeServices(t *testing.T) {
	svc, err := initializeServices(testSettings(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.close(context.Background())

	themes, err := svc.game.ListThemes(context.Background())
	if err != nil {
		t.Fatalf("Failed to list themes: %v", err)
	}
	if len(themes) == 0 {
		t.Error("Expected at least one theme from configs")
	}
	if svc.sessions.Count() != 0 {
		t.Errorf("Expected no live sessions, got %d", svc.sessions.Count())
	}
}

func TestInitializeServicesInvalidThemesDir(t *testing.T) {
	settings := testSettings(t)
	settings.ThemesDir = filepath.Join(t.TempDir(), "missing")

	if _, err := initializeServices(settings); err == nil {
		t.Error("Expected error for missing themes directory")
	}
}

func TestOpenStore(t *testing.T) {
	for _, backend := range []string{config.StoreFile, config.StoreSQLite, config.StoreMemory} {
		t.Run(backend, func(t *testing.T) {
			settings := &config.Settings{Store: backend, DataDir: filepath.Join(t.TempDir(), "data")}
			store, err := openStore(settings)
			if err != nil {
				t.Fatalf("Failed to open %s store: %v", backend, err)
			}
			defer store.Close()

			ctx := context.Background()
			key := persistence.StatsKey("ada")
			if err := store.Put(ctx, key, []byte(`{"wins":1}`)); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != `{"wins":1}` {
				t.Errorf("Expected stored value back, got %s", got)
			}
		})
	}
}

func TestServicesHandler(t *testing.T) {
	svc, err := initializeServices(testSettings(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.start(ctx)
	defer svc.close(context.Background())

	srv := httptest.NewServer(svc.handler("http://example.invalid"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/mcp")
	if err != nil {
		t.Fatalf("MCP request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 from GET /mcp, got %d", resp.StatusCode)
	}

	if !externalServerUp(context.Background(), srv.URL) {
		t.Error("Expected running server to be detected")
	}
}

func TestExternalServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	start := time.Now()
	if externalServerUp(context.Background(), srv.URL) {
		t.Error("Expected closed server to be reported down")
	}
	if time.Since(start) > 3*time.Second {
		t.Error("Probe should give up within its timeout")
	}
}

func TestCommands(t *testing.T) {
	cmd := newCommand()
	if cmd.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, cmd.Version)
	}

	want := map[string][]string{
		"serve":     {"server", "http"},
		"mcp-stdio": {"stdio-mcp", "mcp"},
	}
	for _, sub := range cmd.Commands {
		aliases, ok := want[sub.Name]
		if !ok {
			t.Errorf("Unexpected subcommand %s", sub.Name)
			continue
		}
		if len(sub.Aliases) != len(aliases) {
			t.Errorf("%s: expected aliases %v, got %v", sub.Name, aliases, sub.Aliases)
		}
		delete(want, sub.Name)
	}
	for name := range want {
		t.Errorf("Missing subcommand %s", name)
	}
}

// runLoadSettings parses args with the real flags and returns the settings
func runLoadSettings(t *testing.T, args ...string) (*config.Settings, error) {
	t.Helper()
	var settings *config.Settings
	cmd := newCommand()
	cmd.Commands = nil
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		var err error
		settings, err = loadSettings(c)
		return err
	}
	err := cmd.Run(context.Background(), append([]string{"emoji-maze-quest"}, args...))
	return settings, err
}

func TestLoadSettingsFlags(t *testing.T) {
	t.Setenv("MAZE_PORT", "7000")
	t.Setenv("MAZE_STORE", "sqlite")

	settings, err := runLoadSettings(t)
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 7000 || settings.Store != config.StoreSQLite {
		t.Errorf("Expected environment values, got port %d store %s", settings.Port, settings.Store)
	}
	if settings.Host != "localhost" {
		t.Errorf("Expected default host, got %s", settings.Host)
	}

	settings, err = runLoadSettings(t, "--port", "9090", "--store", "memory", "--host", "0.0.0.0")
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}
	if settings.Port != 9090 || settings.Store != config.StoreMemory || settings.Host != "0.0.0.0" {
		t.Errorf("Expected flags to override environment, got %+v", settings)
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	if _, err := runLoadSettings(t, "--port", "70000"); err == nil {
		t.Error("Expected error for out of range port")
	}
	if _, err := runLoadSettings(t, "--store", "redis"); err == nil {
		t.Error("Expected error for unknown store")
	}
}
