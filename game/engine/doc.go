// Package engine provides the core maze logic for Emoji Maze Quest.
//
// The engine package implements:
//   - Procedural maze generation from an explicit random source
//   - Entity placement (start, exit, challenges, friendlies) with spacing
//   - The GameState model and its structural invariants
//   - Adventure length tiers and theme validation
//
// Core Types:
//
// Maze is a square grid of cells where odd row/odd column cells are path
// junctions. GameState holds one adventure: the maze, entity layout and
// progress. It is the single unit of durable persistence. Theme describes the
// friends, exercise kinds and messages of a themed adventure.
//
// Usage:
//
//	rng := engine.NewRand(42)
//	maze := engine.GenerateMaze(15, engine.DefaultBraid, rng)
//	placement, err := engine.PlaceEntities(maze, engine.Medium.Tier(), rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Or build a complete adventure
//	state, err := engine.NewGameState(theme, launch, 42, time.Now())
//
// Guarantees:
//
// Every path cell is reachable from the start cell, no two entities share a
// cell and no entity sits on a wall. The same seed always produces the same
// maze and layout.
package engine
