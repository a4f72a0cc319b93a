package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends for durable records
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Settings holds process configuration read from the environment
type Settings struct {
	Host        string `env:"MAZE_HOST" envDefault:"localhost"`
	Port        int    `env:"MAZE_PORT" envDefault:"8080"`
	ThemesDir   string `env:"MAZE_THEMES_DIR" envDefault:"configs"`
	DataDir     string `env:"MAZE_DATA_DIR" envDefault:"data"`
	Store       string `env:"MAZE_STORE" envDefault:"file"`
	IdentityURL string `env:"MAZE_IDENTITY_URL" envDefault:"http://localhost:8090"`
	LogLevel    string `env:"MAZE_LOG_LEVEL" envDefault:"info"`

	MoveInterval   time.Duration `env:"MAZE_MOVE_INTERVAL" envDefault:"120ms"`
	ModalLockout   time.Duration `env:"MAZE_MODAL_LOCKOUT" envDefault:"400ms"`
	AutoCloseDelay time.Duration `env:"MAZE_AUTO_CLOSE" envDefault:"1500ms"`
	SyncTimeout    time.Duration `env:"MAZE_SYNC_TIMEOUT" envDefault:"10s"`

	OtelEnabled bool `env:"MAZE_OTEL_ENABLED" envDefault:"false"`

	NgrokEnabled bool   `env:"NGROK_ENABLED" envDefault:"false"`
	NgrokToken   string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

// LoadSettings parses Settings from the environment and validates them
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges that env parsing cannot express
func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("MAZE_PORT must be between 1 and 65535, got %d", s.Port)
	}
	switch s.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("MAZE_STORE must be file, sqlite or memory, got %q", s.Store)
	}
	if s.MoveInterval < 0 || s.ModalLockout < 0 || s.AutoCloseDelay < 0 {
		return fmt.Errorf("timings must not be negative")
	}
	if s.SyncTimeout <= 0 {
		return fmt.Errorf("MAZE_SYNC_TIMEOUT must be positive, got %s", s.SyncTimeout)
	}
	if s.NgrokEnabled && s.NgrokToken == "" {
		return fmt.Errorf("NGROK_AUTHTOKEN is required when NGROK_ENABLED is set")
	}
	return nil
}

// Addr is the listen address
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
