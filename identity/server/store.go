package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wricardo/emoji-maze-quest/identity"
)

var (
	ErrCodeTaken      = errors.New("code already taken")
	ErrPlayerNotFound = errors.New("player not found")
)

// PlayerRecord is a stored identity
type PlayerRecord struct {
	ID        string
	Code      []string
	Emojis    []string
	Progress  identity.Progress
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlayerStore persists identities keyed by their code key
type PlayerStore interface {
	// Create inserts a new player or fails with ErrCodeTaken
	Create(ctx context.Context, p *PlayerRecord) error

	// Get returns the player or ErrPlayerNotFound
	Get(ctx context.Context, codeKey string) (*PlayerRecord, error)

	// MergeProgress replaces the given themes in the player's progress
	MergeProgress(ctx context.Context, codeKey string, progress identity.Progress, now time.Time) (time.Time, error)

	Close() error
}

// MemoryPlayerStore keeps players in a map
type MemoryPlayerStore struct {
	mu      sync.Mutex
	players map[string]*PlayerRecord
}

// NewMemoryPlayerStore creates an empty store
func NewMemoryPlayerStore() *MemoryPlayerStore {
	return &MemoryPlayerStore{players: make(map[string]*PlayerRecord)}
}

func (s *MemoryPlayerStore) Create(ctx context.Context, p *PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identity.CodeKey(p.Code)
	if _, ok := s.players[key]; ok {
		return ErrCodeTaken
	}
	cp := *p
	cp.Progress = identity.Progress{}
	for k, v := range p.Progress {
		cp.Progress[k] = v
	}
	s.players[key] = &cp
	return nil
}

func (s *MemoryPlayerStore) Get(ctx context.Context, codeKey string) (*PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[codeKey]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	cp := *p
	cp.Progress = identity.Progress{}
	for k, v := range p.Progress {
		cp.Progress[k] = v
	}
	return &cp, nil
}

func (s *MemoryPlayerStore) MergeProgress(ctx context.Context, codeKey string, progress identity.Progress, now time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[codeKey]
	if !ok {
		return time.Time{}, ErrPlayerNotFound
	}
	for k, v := range progress {
		p.Progress[k] = v
	}
	p.UpdatedAt = now
	return now, nil
}

func (s *MemoryPlayerStore) Close() error { return nil }

const playersSchema = `
CREATE TABLE IF NOT EXISTS players (
	code_key   TEXT PRIMARY KEY,
	id         TEXT NOT NULL,
	code       TEXT NOT NULL,
	emojis     TEXT NOT NULL,
	progress   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLitePlayerStore keeps players in a SQLite database
type SQLitePlayerStore struct {
	db *sql.DB
}

// OpenSQLitePlayerStore opens the database at path and creates the schema
func OpenSQLitePlayerStore(path string) (*SQLitePlayerStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(playersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create players table: %w", err)
	}
	return &SQLitePlayerStore{db: db}, nil
}

func (s *SQLitePlayerStore) Create(ctx context.Context, p *PlayerRecord) error {
	code, _ := json.Marshal(p.Code)
	emojis, _ := json.Marshal(p.Emojis)
	progress := p.Progress
	if progress == nil {
		progress = identity.Progress{}
	}
	prog, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO players (code_key, id, code, emojis, progress, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(code_key) DO NOTHING`,
		identity.CodeKey(p.Code), p.ID, string(code), string(emojis), string(prog), p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	if n == 0 {
		return ErrCodeTaken
	}
	return nil
}

func (s *SQLitePlayerStore) Get(ctx context.Context, codeKey string) (*PlayerRecord, error) {
	var (
		p                      PlayerRecord
		code, emojis, progress string
		created, updated       int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, code, emojis, progress, created_at, updated_at FROM players WHERE code_key = ?`, codeKey).
		Scan(&p.ID, &code, &emojis, &progress, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	if err := json.Unmarshal([]byte(code), &p.Code); err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	if err := json.Unmarshal([]byte(emojis), &p.Emojis); err != nil {
		return nil, fmt.Errorf("decode emojis: %w", err)
	}
	if err := json.Unmarshal([]byte(progress), &p.Progress); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

func (s *SQLitePlayerStore) MergeProgress(ctx context.Context, codeKey string, progress identity.Progress, now time.Time) (time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin progress update: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT progress FROM players WHERE code_key = ?`, codeKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrPlayerNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read progress: %w", err)
	}

	current := identity.Progress{}
	if err := json.Unmarshal([]byte(raw), &current); err != nil {
		current = identity.Progress{}
	}
	for k, v := range progress {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal progress: %w", err)
	}

	now = time.UnixMilli(now.UnixMilli()).UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE players SET progress = ?, updated_at = ? WHERE code_key = ?`, string(merged), now.UnixMilli(), codeKey); err != nil {
		return time.Time{}, fmt.Errorf("write progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit progress: %w", err)
	}
	return now, nil
}

func (s *SQLitePlayerStore) Close() error {
	return s.db.Close()
}
