package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/emoji-maze-quest/game/engine"
	"github.com/wricardo/emoji-maze-quest/game/service"
	"github.com/wricardo/emoji-maze-quest/game/session"
)

const (
	ServerName    = "Emoji Maze Quest"
	ServerVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Emoji Maze Quest - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Walk your emoji through the maze, solve every challenge and rescue the hidden
friends, then reach the exit.

AVAILABLE TOOLS:
- list_themes: Themes and their adventure lengths
- bootstrap: Onboarding state of a profile
- create_session: Start or rejoin an adventure
- list_sessions / get_session: Inspect live sessions
- move: Single move (up/down/left/right) - requires intent explanation
- answer: Report the result of the open challenge
- action: continue, restart, close, take, decline, dismiss, keep_searching, leave_anyway, acknowledge
- leave_session: Save and leave
- describe_cell: What is at a given cell
- game_instructions: Rules and legend

NOTE: The 'intent' parameter on move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

var sessionIDProp = stringProp("Session ID")

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_themes",
		Description: "List playable themes with their maze sizes",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, c.handleListThemes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bootstrap",
		Description: "Get the onboarding surface, identity and stats of a profile",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"profile": stringProp("Local profile name")},
			Required:   []string{"profile"},
		},
	}, c.handleBootstrap)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Start a new adventure, or rejoin the saved one for this profile and theme",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"profile":      stringProp("Local profile name"),
				"theme_id":     stringProp("Theme to play (optional, defaults to the server default)"),
				"player_emoji": stringProp("Player emoji (optional)"),
				"adventure_length": map[string]any{
					"type":        "string",
					"description": "Adventure length",
					"enum":        lengthNames(),
				},
				"seed": map[string]any{
					"type":        "number",
					"description": "Generation seed for a reproducible maze (optional)",
				},
			},
			Required: []string{"profile"},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live game sessions",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the current view of a session with the maze drawn",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionIDProp},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_session",
		Description: "Save the adventure and close the session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionIDProp},
			Required:   []string{"session_id"},
		},
	}, c.handleLeaveSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the player one cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProp,
				"direction": map[string]any{
					"type":        "string",
					"description": "Direction to move",
					"enum":        []string{"up", "down", "left", "right"},
				},
				"intent": stringProp("Why you are making this move"),
			},
			Required: []string{"session_id", "direction", "intent"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "answer",
		Description: "Report whether the open challenge was answered correctly",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProp,
				"correct":    map[string]any{"type": "boolean", "description": "Whether the answer was right"},
			},
			Required: []string{"session_id", "correct"},
		},
	}, c.handleAnswer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action",
		Description: "Answer the open dialog or resume prompt",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProp,
				"action": map[string]any{
					"type":        "string",
					"description": "Action to apply",
					"enum":        service.Actions(),
				},
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what is at a given cell of the maze",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionIDProp,
				"x":          map[string]any{"type": "number", "description": "Column, 0 is the left edge"},
				"y":          map[string]any{"type": "number", "description": "Row, 0 is the top edge"},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules, the map legend and the dialog flow",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio runs the MCP server over stdin and stdout until it ends
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// HTTPHandler answers single JSON-RPC messages posted to it
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no reply
			w.WriteHeader(http.StatusAccepted)
			return
		}

		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%s: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(id string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) viewResult(ctx context.Context, method, path string, body any) (*mcp.CallToolResult, error) {
	var view session.View
	if err := c.apiCall(ctx, method, path, body, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatView(&view)), nil
}

// Tool handlers

func (c *Client) handleListThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var themes []service.ThemeInfo
	if err := c.apiCall(ctx, "GET", "/api/themes", nil, &themes); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Themes (%d):\n\n", len(themes))
	for _, t := range themes {
		fmt.Fprintf(&b, "- %s (%s): %s\n  players: %s  friends: %d\n", t.ID, t.Name, t.Description,
			strings.Join(t.PlayerEmojis, " "), t.FriendCount)
		for _, l := range engine.AdventureLengths() {
			if size, ok := t.MazeSizes[l]; ok {
				fmt.Fprintf(&b, "  %s: %dx%d\n", l, size, size)
			}
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleBootstrap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := request.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b service.Bootstrap
	if err := c.apiCall(ctx, "GET", "/api/profiles/"+url.PathEscape(profile)+"/bootstrap", nil, &b); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Profile: %s\nSurface: %s\n", b.Profile, b.Surface)
	if b.Error != "" {
		fmt.Fprintf(&out, "Identity service: %s\n", b.Error)
	}
	if b.Identity != nil {
		fmt.Fprintf(&out, "Code: %s\n", strings.Join(b.Identity.Code, "-"))
	}
	fmt.Fprintf(&out, "Mazes completed: %d  Friends saved: %d\n", b.Stats.MazesCompleted, b.Stats.FriendsSaved)
	if len(b.SavedThemes) > 0 {
		fmt.Fprintf(&out, "Saved adventures: %s\n", strings.Join(b.SavedThemes, ", "))
	}
	return mcp.NewToolResultText(out.String()), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	profile, err := request.RequireString("profile")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.CreateSessionRequest{
		Profile:         profile,
		ThemeID:         request.GetString("theme_id", ""),
		PlayerEmoji:     request.GetString("player_emoji", ""),
		AdventureLength: request.GetString("adventure_length", ""),
	}
	if _, ok := request.GetArguments()["seed"]; ok {
		seed := int64(request.GetFloat("seed", 0))
		req.Seed = &seed
	}

	return c.viewResult(ctx, "POST", "/api/sessions", req)
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Profile: %s, Theme: %s, State: %s, Created: %s)\n",
			s.ID, s.Profile, s.ThemeID, s.State, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.viewResult(ctx, "GET", sessionPath(sessionID, ""), nil)
}

func (c *Client) handleLeaveSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.viewResult(ctx, "DELETE", sessionPath(sessionID, ""), nil)
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	direction, err := request.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	log.Debug().Str("session", sessionID).Str("dir", direction).Str("intent", request.GetString("intent", "")).Msg("mcp move")

	return c.viewResult(ctx, "POST", sessionPath(sessionID, "/move"), map[string]string{"direction": direction})
}

func (c *Client) handleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	correct, err := request.RequireBool("correct")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.viewResult(ctx, "POST", sessionPath(sessionID, "/answer"), map[string]bool{"correct": correct})
}

func (c *Client) handleAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.viewResult(ctx, "POST", sessionPath(sessionID, "/action"), map[string]string{"action": action})
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, err := request.RequireInt("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := request.RequireInt("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var view session.View
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if view.Game == nil || view.Game.Maze == nil {
		return mcp.NewToolResultError("No adventure is running in this session"), nil
	}
	return mcp.NewToolResultText(describeCell(view.Game, engine.Position{X: x, Y: y})), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `🧭 Emoji Maze Quest - Instructions

GAME OBJECTIVE:
Reach the exit after solving every challenge and rescuing every hidden friend.

MAP LEGEND (get_session):
• P - You
• C - Unsolved challenge
• F - Friend waiting to be rescued
• E - Exit
• # - Wall
• . - Path

FLOW:
1. create_session. If a saved adventure exists the state is pending_resume:
   action continue keeps it, action restart throws it away.
2. move one cell at a time. Moves sent too quickly are rejected (too_soon).
3. Stepping on C opens a challenge. Report your answer with answer; a correct
   answer closes it shortly after. action close leaves it for later.
4. Stepping on F opens a dialog. action take rescues the friend, decline
   leaves it. action dismiss closes the dialog once the friend is handled.
5. Reaching E with work left opens a warning: keep_searching returns to the
   maze, leave_anyway (friends only) ends the adventure early.
6. After winning, acknowledge records the result.

Just after a dialog opens, input is briefly locked (too_soon). Wait and retry.`

	return mcp.NewToolResultText(instructions), nil
}

func lengthNames() []string {
	lengths := engine.AdventureLengths()
	out := make([]string, len(lengths))
	for i, l := range lengths {
		out[i] = string(l)
	}
	return out
}

// formatView renders a session view as text for agents
func formatView(v *session.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s  Profile: %s  Theme: %s\n", v.SessionID, v.Profile, v.ThemeID)
	fmt.Fprintf(&b, "State: %s", v.State)
	if v.Outcome != "" {
		fmt.Fprintf(&b, "  Last: %s", v.Outcome)
	}
	b.WriteString("\n")
	if v.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", v.Message)
	}

	if v.Resume != nil {
		fmt.Fprintf(&b, "\nSaved adventure (%s): %d/%d challenges, %d/%d friends. Use action continue or restart.\n",
			v.Resume.AdventureLength, v.Resume.CompletedCount, v.Resume.TotalChallenges,
			len(v.Resume.CollectedFriends), v.Resume.TotalFriends)
	}
	if v.Stats != nil {
		fmt.Fprintf(&b, "\nMazes completed: %d  Friends saved: %d\n", v.Stats.MazesCompleted, v.Stats.FriendsSaved)
	}

	gs := v.Game
	if gs == nil || gs.Maze == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "\nPosition: (%d,%d)  Challenges left: %d/%d  Friends missing: %d\n",
		gs.PlayerPos.X, gs.PlayerPos.Y, v.RemainingCount, v.TotalChallenges, v.MissingFriends)
	if len(v.PossibleMoves) > 0 {
		moves := make([]string, len(v.PossibleMoves))
		for i, d := range v.PossibleMoves {
			moves[i] = string(d)
		}
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(moves, ", "))
	}
	if v.ActiveChallenge != nil {
		fmt.Fprintf(&b, "Challenge %s (%s) attempts: %d solved: %t\n", v.ActiveChallenge.ID, v.ActiveChallenge.Kind, v.Attempts, v.Solved)
	}
	if v.ActiveFriendly != nil {
		fmt.Fprintf(&b, "Friend %s %s says: %s\n", v.ActiveFriendly.Emoji, v.ActiveFriendly.Name, v.ActiveFriendly.Message)
	}

	b.WriteString("\nMaze:\n")
	b.WriteString(drawMaze(gs))
	return b.String()
}

// drawMaze draws the maze with the legend of game_instructions
func drawMaze(gs *engine.GameState) string {
	var b strings.Builder
	for y := 0; y < gs.Maze.Size; y++ {
		for x := 0; x < gs.Maze.Size; x++ {
			b.WriteByte(cellChar(gs, engine.Position{X: x, Y: y}))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func cellChar(gs *engine.GameState, p engine.Position) byte {
	switch {
	case p == gs.PlayerPos:
		return 'P'
	case gs.Maze.Cells[p.Y][p.X].Wall:
		return '#'
	case gs.IsExit(p):
		return 'E'
	}
	if i := gs.ChallengeAt(p); i >= 0 && !gs.Challenges[i].Completed {
		return 'C'
	}
	if i := gs.FriendlyAt(p); i >= 0 && !gs.Friendlies[i].Collected {
		return 'F'
	}
	return '.'
}

func describeCell(gs *engine.GameState, p engine.Position) string {
	if !gs.Maze.InBounds(p) {
		return fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Maze size is %dx%d (0-%d for both x and y)",
			p.X, p.Y, gs.Maze.Size, gs.Maze.Size, gs.Maze.Size-1)
	}

	var notes []string
	if p == gs.PlayerPos {
		notes = append(notes, "your current position")
	}
	if gs.Maze.Cells[p.Y][p.X].Wall {
		notes = append(notes, "wall, impassable")
	} else {
		notes = append(notes, "path")
		if gs.Maze.Cells[p.Y][p.X].Visited {
			notes = append(notes, "already visited")
		}
	}
	if gs.IsExit(p) {
		notes = append(notes, "the exit")
	}
	if i := gs.ChallengeAt(p); i >= 0 {
		if gs.Challenges[i].Completed {
			notes = append(notes, "solved challenge")
		} else {
			notes = append(notes, "unsolved challenge")
		}
	}
	if i := gs.FriendlyAt(p); i >= 0 {
		f := gs.Friendlies[i]
		if f.Collected {
			notes = append(notes, fmt.Sprintf("%s was rescued here", f.Emoji))
		} else {
			notes = append(notes, fmt.Sprintf("%s is waiting here", f.Emoji))
		}
	}
	return fmt.Sprintf("Cell (%d, %d) '%c': %s", p.X, p.Y, cellChar(gs, p), strings.Join(notes, ", "))
}
