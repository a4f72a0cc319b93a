package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/service"
	"github.com/wricardo/emoji-maze-quest/game/session"
)

// corridor is a 5x5 maze with one open corridor:
//
//	#####
//	#PC.#
//	###F#
//	#E..#
//	#####
func corridor() *engine.GameState {
	rows := []string{"#####", "#...#", "###.#", "#...#", "#####"}
	m := engine.NewMaze(5)
	for y, row := range rows {
		for x, ch := range row {
			m.Cells[y][x].Wall = ch == '#'
		}
	}
	return &engine.GameState{
		ThemeID:    "meadow",
		Maze:       m,
		Start:      engine.Position{X: 1, Y: 1},
		Exit:       engine.Position{X: 1, Y: 3},
		PlayerPos:  engine.Position{X: 1, Y: 1},
		Challenges: []engine.Challenge{{ID: "c1", Position: engine.Position{X: 2, Y: 1}}},
		Friendlies: []engine.Friendly{{ID: "f1", Position: engine.Position{X: 3, Y: 2}, Emoji: "🐰"}},
	}
}

func testView() session.View {
	return session.View{
		SessionID:       "ab12",
		Profile:         "ada",
		ThemeID:         "meadow",
		State:           session.Exploring,
		Outcome:         session.OutcomeMoved,
		Game:            corridor(),
		PossibleMoves:   []engine.Direction{engine.Right},
		TotalChallenges: 1,
		RemainingCount:  1,
		MissingFriends:  1,
	}
}

type recorded struct {
	method string
	path   string
	body   map[string]any
}

// fakeAPI serves canned REST responses and records requests
func fakeAPI(t *testing.T) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		json.NewDecoder(r.Body).Decode(&rec.body)
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/themes":
			json.NewEncoder(w).Encode([]service.ThemeInfo{{
				ID: "meadow", Name: "Meadow", PlayerEmojis: []string{"🐻"}, FriendCount: 4,
				MazeSizes: map[engine.AdventureLength]int{engine.Short: 11},
			}})
		case r.URL.Path == "/api/profiles/ada/bootstrap":
			json.NewEncoder(w).Encode(service.Bootstrap{
				Profile: "ada", Surface: service.SurfaceServiceDown, Error: "identity down",
				Stats: engine.LifetimeStats{MazesCompleted: 2},
			})
		case r.URL.Path == "/api/sessions" && r.Method == "GET":
			json.NewEncoder(w).Encode(map[string]any{
				"count":    1,
				"sessions": []service.SessionInfo{{ID: "ab12", Profile: "ada", ThemeID: "meadow", State: session.Exploring}},
			})
		case strings.HasPrefix(r.URL.Path, "/api/sessions/zz99"):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"session_not_found","message":"session not found: zz99"}}`))
		default:
			json.NewEncoder(w).Encode(testView())
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCallError(t *testing.T) {
	srv, _ := fakeAPI(t)
	client := NewClient(srv.URL)

	err := client.apiCall(context.Background(), "GET", "/api/sessions/zz99", nil, nil)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "session_not_found") || !strings.Contains(err.Error(), "zz99") {
		t.Errorf("Expected code and message in error, got %v", err)
	}
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name       string
		call       func(*Client, context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args       map[string]any
		wantMethod string
		wantPath   string
		wantBody   map[string]any
		wantText   []string
	}{
		{
			name:       "list themes",
			call:       (*Client).handleListThemes,
			wantMethod: "GET", wantPath: "/api/themes",
			wantText: []string{"meadow (Meadow)", "short: 11x11"},
		},
		{
			name:       "bootstrap",
			call:       (*Client).handleBootstrap,
			args:       map[string]any{"profile": "ada"},
			wantMethod: "GET", wantPath: "/api/profiles/ada/bootstrap",
			wantText: []string{"Surface: service_down", "identity down", "Mazes completed: 2"},
		},
		{
			name:       "create session",
			call:       (*Client).handleCreateSession,
			args:       map[string]any{"profile": "ada", "theme_id": "meadow", "adventure_length": "short", "seed": float64(7)},
			wantMethod: "POST", wantPath: "/api/sessions",
			wantBody: map[string]any{"profile": "ada", "theme_id": "meadow", "adventure_length": "short", "seed": float64(7)},
			wantText: []string{"Session: ab12", "State: exploring"},
		},
		{
			name:       "list sessions",
			call:       (*Client).handleListSessions,
			wantMethod: "GET", wantPath: "/api/sessions",
			wantText: []string{"Active Sessions (1)", "ab12 (Profile: ada, Theme: meadow, State: exploring"},
		},
		{
			name:       "get session draws the maze",
			call:       (*Client).handleGetSession,
			args:       map[string]any{"session_id": "ab12"},
			wantMethod: "GET", wantPath: "/api/sessions/ab12",
			wantText: []string{"#PC.#", "###F#", "#E..#", "Possible moves: right"},
		},
		{
			name:       "move",
			call:       (*Client).handleMove,
			args:       map[string]any{"session_id": "ab12", "direction": "right", "intent": "reach the challenge"},
			wantMethod: "POST", wantPath: "/api/sessions/ab12/move",
			wantBody: map[string]any{"direction": "right"},
			wantText: []string{"Last: moved"},
		},
		{
			name:       "answer",
			call:       (*Client).handleAnswer,
			args:       map[string]any{"session_id": "ab12", "correct": true},
			wantMethod: "POST", wantPath: "/api/sessions/ab12/answer",
			wantBody: map[string]any{"correct": true},
		},
		{
			name:       "action",
			call:       (*Client).handleAction,
			args:       map[string]any{"session_id": "ab12", "action": "take"},
			wantMethod: "POST", wantPath: "/api/sessions/ab12/action",
			wantBody: map[string]any{"action": "take"},
		},
		{
			name:       "leave",
			call:       (*Client).handleLeaveSession,
			args:       map[string]any{"session_id": "ab12"},
			wantMethod: "DELETE", wantPath: "/api/sessions/ab12",
		},
		{
			name:       "describe cell",
			call:       (*Client).handleDescribeCell,
			args:       map[string]any{"session_id": "ab12", "x": float64(3), "y": float64(2)},
			wantMethod: "GET", wantPath: "/api/sessions/ab12",
			wantText: []string{"Cell (3, 2) 'F'", "🐰 is waiting here"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeAPI(t)
			client := NewClient(srv.URL)

			result, err := tt.call(client, context.Background(), callTool(tt.name, tt.args))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			text := resultText(t, result)
			if result.IsError {
				t.Fatalf("Unexpected tool error: %s", text)
			}

			recordedCalls := calls()
			if len(recordedCalls) != 1 {
				t.Fatalf("Expected 1 API call, got %d", len(recordedCalls))
			}
			got := recordedCalls[0]
			if got.method != tt.wantMethod || got.path != tt.wantPath {
				t.Errorf("Expected %s %s, got %s %s", tt.wantMethod, tt.wantPath, got.method, got.path)
			}
			for k, v := range tt.wantBody {
				if got.body[k] != v {
					t.Errorf("Body %s: expected %v, got %v", k, v, got.body[k])
				}
			}
			for _, want := range tt.wantText {
				if !strings.Contains(text, want) {
					t.Errorf("Expected %q in:\n%s", want, text)
				}
			}
		})
	}
}

func TestHandlerErrors(t *testing.T) {
	srv, calls := fakeAPI(t)
	client := NewClient(srv.URL)

	result, _ := client.handleMove(context.Background(), callTool("move", map[string]any{"direction": "up"}))
	if !result.IsError {
		t.Error("Expected a tool error without session_id")
	}
	if len(calls()) != 0 {
		t.Error("No API call expected for invalid arguments")
	}

	result, _ = client.handleGetSession(context.Background(), callTool("get_session", map[string]any{"session_id": "zz99"}))
	if !result.IsError || !strings.Contains(resultText(t, result), "session_not_found") {
		t.Errorf("Expected the API error to surface, got %+v", result)
	}

	result, _ = client.handleDescribeCell(context.Background(), callTool("describe_cell", map[string]any{"session_id": "ab12", "x": float64(9), "y": float64(0)}))
	if !strings.Contains(resultText(t, result), "out of bounds") {
		t.Errorf("Expected out of bounds message, got %s", resultText(t, result))
	}
}

func TestGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:0")
	result, err := client.handleGameInstructions(context.Background(), callTool("game_instructions", nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := resultText(t, result)
	for _, want := range []string{"MAP LEGEND", "leave_anyway", "acknowledge"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in instructions", want)
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	client := NewClient("http://localhost:0")
	handler := client.HTTPHandler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range resp.Result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"create_session", "move", "answer", "action", "leave_session", "describe_cell"} {
		if !names[want] {
			t.Errorf("Expected tool %s to be listed", want)
		}
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for a notification, got %d", w.Code)
	}
}
