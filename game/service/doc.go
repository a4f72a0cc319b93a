// Package service provides the transport-neutral operations of the maze
// server.
//
// GameService is used by the REST API and the MCP bridge alike. It resolves
// profiles to persistence.Manager instances, themes through a ThemeCatalog,
// live adventures through the session registry and identity codes through
// the remote identity API.
//
// Onboarding:
//
// Bootstrap reports which surface a client should render first. When the
// identity service cannot be reached the surface is always service_down, so
// a returning player never sees a code entry screen with missing emoji.
//
// Usage:
//
//	sessions := session.NewManager(session.Options{Syncer: client})
//	themes, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, themes, store, client)
//
//	view, err := svc.CreateSession(ctx, service.CreateSessionRequest{Profile: "alice", ThemeID: "meadow"})
//	view, err = svc.Move(ctx, view.SessionID, "right")
package service
