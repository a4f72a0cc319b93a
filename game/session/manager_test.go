package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/persistence"
)

func newRecords(t *testing.T, store persistence.Store, profile string) *persistence.Manager {
	t.Helper()
	m, err := persistence.NewManager(store, profile)
	if err != nil {
		t.Fatalf("NewManager(%s): %v", profile, err)
	}
	return m
}

func spaceTheme() *engine.Theme {
	theme := engine.DefaultTheme()
	theme.ID = "space"
	return theme
}

func TestManager_Create(t *testing.T) {
	store := persistence.NewMemoryStore()
	manager := NewManager(Options{})
	alice := newRecords(t, store, "alice")

	c, err := manager.Create(engine.DefaultTheme(), alice)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if len(c.ID()) != 4 {
		t.Errorf("Expected a 4-character ID, got %q", c.ID())
	}
	if c.State() != Idle {
		t.Errorf("Expected a new session to be idle, got %s", c.State())
	}

	if _, err := manager.Create(engine.DefaultTheme(), alice); !errors.Is(err, ErrSessionAlreadyExists) {
		t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
	}
	if _, err := manager.Create(spaceTheme(), alice); err != nil {
		t.Errorf("Another theme should get its own session: %v", err)
	}
	if _, err := manager.Create(engine.DefaultTheme(), newRecords(t, store, "bob")); err != nil {
		t.Errorf("Another profile should get its own session: %v", err)
	}
	if manager.Count() != 3 {
		t.Errorf("Expected 3 sessions, got %d", manager.Count())
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	store := persistence.NewMemoryStore()
	manager := NewManager(Options{})

	first, created := manager.GetOrCreate(engine.DefaultTheme(), newRecords(t, store, "alice"))
	if !created {
		t.Error("Expected the first call to create")
	}
	second, created := manager.GetOrCreate(engine.DefaultTheme(), newRecords(t, store, "alice"))
	if created || second != first {
		t.Error("Expected the live session to be returned")
	}
}

func TestManager_GetAndDelete(t *testing.T) {
	manager := NewManager(Options{})
	c, _ := manager.Create(engine.DefaultTheme(), newRecords(t, persistence.NewMemoryStore(), "alice"))

	got, err := manager.Get(strings.ToUpper(c.ID()))
	if err != nil || got != c {
		t.Errorf("Expected case-insensitive lookup, got %v", err)
	}
	if _, err := manager.Get("zzzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	if err := manager.Delete(c.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := manager.Delete(c.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected no sessions, got %d", manager.Count())
	}
}

func TestManager_List(t *testing.T) {
	store := persistence.NewMemoryStore()
	manager := NewManager(Options{})
	for _, p := range []string{"a", "b", "c", "d"} {
		if _, err := manager.Create(engine.DefaultTheme(), newRecords(t, store, p)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	list := manager.List()
	if len(list) != 4 {
		t.Fatalf("Expected 4 sessions, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID() >= list[i].ID() {
			t.Errorf("Expected sessions ordered by ID")
		}
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	ctx := context.Background()
	clock := NewFakeClock(testNow)
	store := persistence.NewMemoryStore()
	manager := NewManager(Options{Clock: clock, Seed: func() int64 { return 3 }})
	alice := newRecords(t, store, "alice")

	stale, _ := manager.Create(engine.DefaultTheme(), alice)
	if _, err := stale.Start(ctx, launch()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.Advance(23 * time.Hour)
	fresh, _ := manager.Create(spaceTheme(), alice)

	clock.Advance(2 * time.Hour)
	if removed := manager.CleanupExpiredSessions(ctx, DefaultMaxIdle); removed != 1 {
		t.Fatalf("Expected 1 pruned session, got %d", removed)
	}
	if _, err := manager.Get(stale.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected the stale session to be gone")
	}
	if _, err := manager.Get(fresh.ID()); err != nil {
		t.Error("Expected the recent session to survive")
	}
	if stale.State() != Idle {
		t.Errorf("Expected the pruned session to be left, got %s", stale.State())
	}
	if _, err := alice.LoadSession(ctx, "meadow"); err != nil {
		t.Errorf("Expected the pruned adventure to stay saved: %v", err)
	}
}

func TestManager_Close(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	manager := NewManager(Options{Clock: NewFakeClock(testNow)})
	alice := newRecords(t, store, "alice")

	c, _ := manager.Create(engine.DefaultTheme(), alice)
	if _, err := c.Start(ctx, launch()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	manager.Close(ctx)

	if manager.Count() != 0 || c.State() != Idle {
		t.Error("Expected every session to be left and removed")
	}
	if _, err := alice.LoadSession(ctx, "meadow"); err != nil {
		t.Errorf("Expected the adventure to be saved on close: %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	store := persistence.NewMemoryStore()
	manager := NewManager(Options{})

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			profile := []string{"a", "b", "c", "d"}[i%4]
			records, err := persistence.NewManager(store, profile)
			if err != nil {
				t.Errorf("NewManager: %v", err)
				return
			}
			c, _ := manager.GetOrCreate(engine.DefaultTheme(), records)
			ids <- c.ID()
			_ = manager.List()
		}(i)
	}
	wg.Wait()
	close(ids)

	unique := map[string]bool{}
	for id := range ids {
		unique[id] = true
	}
	if len(unique) != 4 || manager.Count() != 4 {
		t.Errorf("Expected one session per profile, got %d ids and %d sessions", len(unique), manager.Count())
	}
}
