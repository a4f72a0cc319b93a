// Package api provides the HTTP REST API of the maze game server.
//
// Endpoints:
//
// Themes:
//   - GET /api/themes - List playable themes
//   - GET /api/themes/{id} - Full theme definition
//
// Profiles:
//   - GET /api/profiles/{profile}/bootstrap - Onboarding surface, identity, stats
//   - POST /api/profiles/{profile}/identity - Create a new emoji code
//   - DELETE /api/profiles/{profile}/identity - Forget the remembered code
//   - POST /api/profiles/{profile}/login - Validate and remember a code
//   - GET /api/profiles/{profile}/stats - Lifetime stats
//
// Sessions:
//   - POST /api/sessions - Start or rejoin an adventure
//   - GET /api/sessions - List live sessions (sort, order, limit)
//   - GET /api/sessions/{id} - Current view
//   - DELETE /api/sessions/{id} - Save and leave
//   - POST /api/sessions/{id}/move - {"direction": "up"}
//   - POST /api/sessions/{id}/answer - {"correct": true}
//   - POST /api/sessions/{id}/action - {"action": "take"}
//
// Every session endpoint answers with a session view. Failures use one
// envelope:
//
//	{
//	  "error": {"code": "too_soon", "message": "..."}
//	}
//
// Identity failures keep their kind: invalid_code (400), code_not_found
// (404), service_unavailable (503) and creation_failed (502). Rejected
// events answer invalid_transition (409) or too_soon (429).
package api
