package persistence

import (
	"time"

	"github.com/wricardo/emoji-maze-quest/game/engine"
)

// Reconcile merges a durable adventure with the launch configuration that
// resumed it. Progress always comes from the durable state; the launch only
// fills fields the durable state leaves empty. The durable state is not
// modified.
func Reconcile(durable *engine.GameState, launch engine.LaunchConfig, now time.Time) *engine.GameState {
	out := durable.Clone()
	if out == nil {
		return nil
	}

	if out.PlayerEmoji == "" {
		out.PlayerEmoji = launch.PlayerEmoji
	}
	if out.MathSettings == nil && launch.MathSettings != nil {
		ms := *launch.MathSettings
		ms.Operations = append([]string(nil), launch.MathSettings.Operations...)
		out.MathSettings = &ms
	}
	if !out.AdventureLength.Valid() {
		out.AdventureLength = launch.AdventureLength
		if !out.AdventureLength.Valid() {
			out.AdventureLength = engine.Short
		}
	}
	out.UpdatedAt = now
	return out
}
