// Package websocket pushes session views to browsers.
//
// A central Hub owns every connection. Its Run goroutine is the only code
// that touches the client map; registration, removal and broadcasts all
// arrive over channels. Each connection has a read pump that keeps the
// socket alive and a write pump that drains its send queue.
//
// Message Protocol:
//
// Clients subscribe with ?session=<id>. The server sends JSON messages:
//
//	{"session_id": "ab12", "event": "snapshot", "view": {...}}
//	{"session_id": "ab12", "event": "view", "view": {...}}
//
// The first message is a snapshot of the session; every accepted event on
// the session controller is followed by a view message. Clients never send
// game input over the socket; they use the REST API.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	sessions := session.NewManager(session.Options{OnChange: hub.BroadcastView})
package websocket
