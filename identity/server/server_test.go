package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/emoji-maze-quest/identity"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func playerStores(t *testing.T) map[string]PlayerStore {
	t.Helper()
	sqlite, err := OpenSQLitePlayerStore(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]PlayerStore{
		"memory": NewMemoryPlayerStore(),
		"sqlite": sqlite,
	}
}

func newTestServer(t *testing.T, store PlayerStore, opts ...Option) (*httptest.Server, *identity.Client) {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1))), WithClock(func() time.Time { return fixedNow })}, opts...)
	ts := httptest.NewServer(New(store, opts...))
	t.Cleanup(ts.Close)
	return ts, identity.NewClient(ts.URL, identity.WithRetry(1, 0))
}

func TestServer_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range playerStores(t) {
		t.Run(name, func(t *testing.T) {
			_, client := newTestServer(t, store)

			cats, err := client.FetchCategories(ctx)
			if err != nil {
				t.Fatalf("FetchCategories: %v", err)
			}
			if len(cats.Labels) != identity.CodeLength {
				t.Errorf("expected %d labels, got %d", identity.CodeLength, len(cats.Labels))
			}

			created, err := client.CreateIdentity(ctx)
			if err != nil {
				t.Fatalf("CreateIdentity: %v", err)
			}
			if created.PlayerID == "" || len(created.Emojis) != identity.CodeLength {
				t.Errorf("unexpected identity %+v", created)
			}

			player, err := client.Validate(ctx, created.Code)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if identity.CodeKey(player.Code) != identity.CodeKey(created.Code) || len(player.Progress) != 0 {
				t.Errorf("unexpected player %+v", player)
			}

			res, err := client.SyncProgress(ctx, created.Code, identity.Progress{"meadow": json.RawMessage(`{"completed_count":2}`)})
			if err != nil {
				t.Fatalf("SyncProgress: %v", err)
			}
			if !res.OK || !res.UpdatedAt.Equal(fixedNow) {
				t.Errorf("unexpected sync result %+v", res)
			}
			_, err = client.SyncProgress(ctx, created.Code, identity.Progress{"space": json.RawMessage(`{}`)})
			if err != nil {
				t.Fatalf("SyncProgress: %v", err)
			}

			player, err = client.Validate(ctx, created.Code)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if len(player.Progress) != 2 || !strings.Contains(string(player.Progress["meadow"]), "completed_count") {
				t.Errorf("progress not merged: %v", player.Progress)
			}
		})
	}
}

func TestServer_UnknownCode(t *testing.T) {
	_, client := newTestServer(t, NewMemoryPlayerStore())
	code := []string{"cat", "apple", "sun", "car"}

	if _, err := client.Validate(context.Background(), code); identity.KindOf(err) != identity.KindNotFound {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := client.SyncProgress(context.Background(), code, identity.Progress{}); identity.KindOf(err) != identity.KindSyncFailure {
		t.Errorf("expected sync failure, got %v", err)
	}
}

func TestServer_MalformedRequests(t *testing.T) {
	ts, _ := newTestServer(t, NewMemoryPlayerStore())

	tests := []struct {
		name string
		path string
		body string
	}{
		{"validate bad json", "/api/players/validate", "{"},
		{"validate short code", "/api/players/validate", `{"code":["cat","sun"]}`},
		{"progress bad key", "/api/players/cat-sun/progress", `{"progress":{}}`},
		{"progress missing body", "/api/players/cat-apple-sun-car/progress", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+tt.path, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			var er identity.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
				t.Errorf("expected error body, got %v", err)
			}
		})
	}
}

func TestServer_CollisionExhaustion(t *testing.T) {
	tiny := identity.Categories{
		Labels: []string{"a", "b", "c", "d"},
		Categories: [][]identity.CategoryItem{
			{{Emoji: "🐱", Slug: "cat"}},
			{{Emoji: "🍎", Slug: "apple"}},
			{{Emoji: "☀️", Slug: "sun"}},
			{{Emoji: "🚗", Slug: "car"}},
		},
	}

	for name, store := range playerStores(t) {
		t.Run(name, func(t *testing.T) {
			ts, client := newTestServer(t, store, WithCategories(tiny))

			if _, err := client.CreateIdentity(context.Background()); err != nil {
				t.Fatalf("first create should succeed: %v", err)
			}

			resp, err := http.Post(ts.URL+"/api/players", "application/json", strings.NewReader("{}"))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusConflict {
				t.Errorf("expected 409 once the code space is used up, got %d", resp.StatusCode)
			}

			if _, err := client.CreateIdentity(context.Background()); identity.KindOf(err) != identity.KindCreationFailure {
				t.Errorf("expected creation failure, got %v", err)
			}
		})
	}
}

func TestServer_DeterministicCodes(t *testing.T) {
	draw := func() []string {
		s := New(NewMemoryPlayerStore(), WithRand(rand.New(rand.NewSource(42))))
		code, _ := s.drawCode()
		return code
	}
	if identity.CodeKey(draw()) != identity.CodeKey(draw()) {
		t.Error("the same seed should draw the same code")
	}
}
