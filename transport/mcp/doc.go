// Package mcp exposes the maze game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool calls the REST API and renders the
// returned session view as text, with the maze drawn using a one character
// legend (P player, C challenge, F friend, E exit, # wall).
//
// MCP Tools:
//   - list_themes, bootstrap
//   - create_session, list_sessions, get_session, leave_session
//   - move, answer, action
//   - describe_cell, game_instructions
//
// Transport Modes:
//   - Stdio: Client.ServeStdio for local MCP clients
//   - HTTP: Client.HTTPHandler, mounted at /mcp by the game server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	apiServer.Mount("/mcp", client.HTTPHandler())
package mcp
