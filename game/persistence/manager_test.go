package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestState(t *testing.T, theme string) *engine.GameState {
	t.Helper()
	th := engine.DefaultTheme()
	gs, err := engine.NewGameState(th, engine.LaunchConfig{ThemeID: theme, PlayerEmoji: "🦊", AdventureLength: engine.Short}, 17, testNow)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	return gs
}

func TestNewManager_RejectsBadProfiles(t *testing.T) {
	for _, p := range []string{"", "a/b", "../x", "two words"} {
		if _, err := NewManager(NewMemoryStore(), p); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("profile %q: expected ErrInvalidKey, got %v", p, err)
		}
	}
}

func TestManager_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			m, err := NewManager(store, "alice")
			if err != nil {
				t.Fatalf("NewManager: %v", err)
			}

			if _, err := m.LoadSession(ctx, "meadow"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			gs := newTestState(t, "meadow")
			_ = gs.CompleteChallenge(gs.Challenges[0].ID)
			if err := m.SaveSession(ctx, gs); err != nil {
				t.Fatalf("SaveSession: %v", err)
			}

			loaded, err := m.LoadSession(ctx, "meadow")
			if err != nil {
				t.Fatalf("LoadSession: %v", err)
			}
			if loaded.CompletedCount != 1 || loaded.Maze.String() != gs.Maze.String() {
				t.Error("loaded session does not match saved one")
			}

			themes, err := m.ListSessions(ctx)
			if err != nil || len(themes) != 1 || themes[0] != "meadow" {
				t.Errorf("ListSessions = %v, %v", themes, err)
			}

			if err := m.ClearSession(ctx, "meadow"); err != nil {
				t.Fatalf("ClearSession: %v", err)
			}
			if _, err := m.LoadSession(ctx, "meadow"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after clear, got %v", err)
			}
		})
	}
}

func TestManager_CorruptSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := NewManager(store, "alice")

	tests := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"no maze", `{"theme_id":"meadow"}`},
		{"wrong theme", ""},
	}
	gs := newTestState(t, "space")
	other, _ := gs.Marshal()
	tests[2].data = string(other)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = store.Put(ctx, SessionKey("alice", "meadow"), []byte(tt.data))
			if _, err := m.LoadSession(ctx, "meadow"); !errors.Is(err, ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestManager_ProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	alice, _ := NewManager(store, "alice")
	bob, _ := NewManager(store, "bob")

	if err := alice.SaveSession(ctx, newTestState(t, "meadow")); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if _, err := alice.RecordWin(ctx, 2); err != nil {
		t.Fatalf("RecordWin: %v", err)
	}

	if _, err := bob.LoadSession(ctx, "meadow"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob should not see alice's session, got %v", err)
	}
	stats, _ := bob.LoadStats(ctx)
	if stats != (engine.LifetimeStats{}) {
		t.Errorf("bob should have empty stats, got %+v", stats)
	}
}

func TestManager_RecordWin(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			m, _ := NewManager(store, "alice")

			stats, err := m.LoadStats(ctx)
			if err != nil || stats.MazesCompleted != 0 {
				t.Fatalf("fresh stats = %+v, %v", stats, err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := m.RecordWin(ctx, 3); err != nil {
						t.Errorf("RecordWin: %v", err)
					}
				}()
			}
			wg.Wait()

			stats, err = m.LoadStats(ctx)
			if err != nil {
				t.Fatalf("LoadStats: %v", err)
			}
			if stats.MazesCompleted != 10 || stats.FriendsSaved != 30 {
				t.Errorf("expected 10 mazes and 30 friends, got %+v", stats)
			}
		})
	}
}

func TestManager_CorruptStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := NewManager(store, "alice")
	_ = store.Put(ctx, StatsKey("alice"), []byte("garbage"))

	if _, err := m.LoadStats(ctx); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}

	stats, err := m.RecordWin(ctx, 1)
	if err != nil {
		t.Fatalf("RecordWin: %v", err)
	}
	if stats.MazesCompleted != 1 || stats.FriendsSaved != 1 {
		t.Errorf("corrupt stats should restart from zero, got %+v", stats)
	}
}

func TestManager_Identity(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(NewMemoryStore(), "alice")

	if _, err := m.LoadIdentity(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	code := []string{"cat", "sun", "apple", "car"}
	if err := m.SaveIdentity(ctx, code, []string{"🐱", "☀️", "🍎", "🚗"}); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	rec, err := m.LoadIdentity(ctx)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if len(rec.Code) != 4 || rec.Code[2] != "apple" {
		t.Errorf("unexpected identity %+v", rec)
	}

	if err := m.ClearIdentity(ctx); err != nil {
		t.Fatalf("ClearIdentity: %v", err)
	}
	if _, err := m.LoadIdentity(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
}
