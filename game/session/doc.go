// Package session runs live maze adventures.
//
// A Controller is the state machine of one adventure: one profile playing one
// theme. Every player input is an event method (Start, Move, Answer,
// TakeFriend, Acknowledge, ...) that either returns the resulting View or an
// error; a rejected event never changes the session. Events are serialised by
// a mutex, so concurrent requests for the same session are safe.
//
// Timing rules run on an injected Clock:
//
//   - moves closer together than MoveInterval fail with ErrMoveTooSoon
//   - modal actions within ModalLockout of the modal opening fail with
//     ErrInputLocked
//   - a solved challenge closes itself once Tick observes AutoCloseDelay
//
// Every mutation is written through persistence.Manager, and milestones are
// uploaded to the identity service in background goroutines whose results
// are only logged.
//
// Manager is the registry of live controllers on a server. It hands out short
// session IDs and prunes sessions idle for longer than a day.
//
// Usage:
//
//	manager := session.NewManager(session.Options{Syncer: identityClient})
//	c, _ := manager.GetOrCreate(theme, records)
//	view, err := c.Start(ctx, launch)
//	view, err = c.Move(ctx, engine.Right)
package session
