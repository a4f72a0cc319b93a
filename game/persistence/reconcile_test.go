package persistence

import (
	"testing"
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
)

func TestReconcile_DurableProgressWins(t *testing.T) {
	durable := newTestState(t, "meadow")
	durable.PlayerEmoji = "🐢"
	durable.MathSettings = &engine.MathSettings{Operations: []string{"add"}, MaxOperand: 10}
	durable.AdventureLength = engine.Medium
	_ = durable.CompleteChallenge(durable.Challenges[1].ID)
	_ = durable.CollectFriendly(durable.Friendlies[0].ID)
	durable.Visit(durable.Challenges[1].Position)

	launch := engine.LaunchConfig{
		ThemeID:         "meadow",
		PlayerEmoji:     "🦊",
		AdventureLength: engine.Long,
		MathSettings:    &engine.MathSettings{Operations: []string{"mul"}, MaxOperand: 99},
	}
	later := testNow.Add(time.Hour)

	got := Reconcile(durable, launch, later)

	if got.PlayerPos != durable.PlayerPos || got.CompletedCount != 1 || len(got.CollectedFriends) != 1 {
		t.Error("progress should come from the durable state")
	}
	if got.PlayerEmoji != "🐢" {
		t.Errorf("durable emoji should win, got %q", got.PlayerEmoji)
	}
	if got.MathSettings.Operations[0] != "add" {
		t.Errorf("durable math settings should win, got %+v", got.MathSettings)
	}
	if got.AdventureLength != engine.Medium {
		t.Errorf("durable length should win, got %q", got.AdventureLength)
	}
	if !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(durable.CreatedAt) {
		t.Errorf("unexpected timestamps created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("reconciled state should be valid: %v", err)
	}
}

func TestReconcile_LaunchFillsGaps(t *testing.T) {
	durable := newTestState(t, "meadow")
	durable.PlayerEmoji = ""
	durable.MathSettings = nil
	durable.AdventureLength = "legacy"

	launch := engine.LaunchConfig{
		PlayerEmoji:     "🦊",
		AdventureLength: engine.Long,
		MathSettings:    &engine.MathSettings{Operations: []string{"sub"}},
	}
	got := Reconcile(durable, launch, testNow)

	if got.PlayerEmoji != "🦊" {
		t.Errorf("expected launch emoji, got %q", got.PlayerEmoji)
	}
	if got.MathSettings == nil || got.MathSettings.Operations[0] != "sub" {
		t.Errorf("expected launch math settings, got %+v", got.MathSettings)
	}
	if got.AdventureLength != engine.Long {
		t.Errorf("expected launch length, got %q", got.AdventureLength)
	}

	launch.MathSettings.Operations[0] = "div"
	if got.MathSettings.Operations[0] != "sub" {
		t.Error("reconciled state shares math settings with the launch")
	}
	if durable.PlayerEmoji != "" {
		t.Error("durable state was modified")
	}
}

func TestReconcile_Nil(t *testing.T) {
	if Reconcile(nil, engine.LaunchConfig{}, testNow) != nil {
		t.Error("reconciling nothing should give nil")
	}
}
