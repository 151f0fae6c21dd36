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

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
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
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memory Match Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Match Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find every pair of matching face-down cards in as few moves as possible.

AVAILABLE TOOLS:
- create_session: Start a new session at a difficulty (easy, medium, hard)
- game_state: Show the board, move count and timer
- flip_card: Flip one card by index
- new_game: Start over, optionally at another difficulty
- save_game / restore_game: Save and resume a game
- stats: Lifetime statistics and leaderboard
- list_sessions, get_session, list_configs, game_instructions

Call game_instructions for the full rules.`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Difficulty to play (easy, medium, hard). Defaults to medium.",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, move count and timer for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "flip_card",
		Description: "Flip a face-down card. Two flips make one move. Mismatched pairs turn back over after a short delay.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"index": map[string]interface{}{
					"type":        "integer",
					"description": "Card index, 0-based in row-major order",
				},
			},
			Required: []string{"session_id", "index"},
		},
	}, c.handleFlipCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Start a new game in a session, discarding the current one",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Optional difficulty to switch to",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_game",
		Description: "Save the current game so it can be resumed later",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleSaveGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restore_game",
		Description: "Restore the last saved game of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRestoreGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "stats",
		Description: "Lifetime statistics and the fastest wins",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the leaderboard to one difficulty",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Leaderboard entries to return",
				},
			},
		},
	}, c.handleStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available difficulty configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
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
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	difficulty, _ := arguments(request)["difficulty"].(string)

	body := map[string]string{}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nDifficulty: %s\n\n%s", info.ID, info.Difficulty, formatGameState(info.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "unknown"
		if s.GameState != nil {
			status = fmt.Sprintf("%s, %d/%d pairs", s.GameState.Status, s.GameState.MatchedPairs, s.GameState.TotalPairs)
		}
		fmt.Fprintf(&b, "- %s (%s, %s, created %s)\n", s.ID, s.Difficulty, status, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var info service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleFlipCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	index, ok := args["index"].(float64)
	if !ok {
		return mcp.NewToolResultError("index is required"), nil
	}

	var result service.FlipResult
	body := map[string]int{"index": int(index)}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/flip"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatFlipResult(&result)), nil
}

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	difficulty, _ := args["difficulty"].(string)

	body := map[string]string{}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/new-game"), body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("New game started\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleSaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var saved service.SaveResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/save"), nil, &saved); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result := fmt.Sprintf("Saved game %s (%s) at %d moves, %s elapsed",
		saved.GameID, saved.Difficulty, saved.MoveCount, formatSeconds(saved.ElapsedSeconds))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleRestoreGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/restore"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Restored saved game\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	query := url.Values{}
	if difficulty, _ := args["difficulty"].(string); difficulty != "" {
		query.Set("difficulty", difficulty)
	}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", int(limit)))
	}
	path := "/api/stats"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var resp service.StatsResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatStats(&resp)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Difficulties:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s\n  %s\n  Grid: %dx%d, Pairs: %d, Mismatch delay: %dms\n\n",
			cfg.ConfigID, cfg.Description, cfg.GridSize, cfg.GridSize, cfg.Pairs, cfg.MismatchDelayMS)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Memory Match Game - Instructions

OBJECTIVE:
Every card has exactly one twin. Turn all pairs face up.

HOW A MOVE WORKS:
• Flip one face-down card with flip_card, then flip a second one.
• If the two values match, both stay face up for the rest of the game.
• If they differ, both turn back face down after the mismatch delay.
• Each pair of flips counts as one move, matched or not.
• While a mismatched pair is still showing, further flips are rejected (code pair_pending).

BOARD:
• Cards are numbered 0..N-1 in row-major order. On a 4x4 board card 5 is row 1, column 1.
• In game_state output "?" is a face-down card, a letter is face up, and [X] is matched.

REJECTED FLIPS:
• card_face_up: the card is already showing
• card_matched: the card is already matched
• invalid_index: the index is off the board
• game_won: the game is over, start a new_game

TIMER:
The clock starts with the first flip and stops when the last pair is matched.

DIFFICULTIES:
• easy: 2x2, 2 pairs
• medium: 4x4, 8 pairs
• hard: 6x6, 18 pairs

STRATEGY:
Remember every value you have seen. When the first card of a move reveals a value
you already know the location of, flip that location next.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nDifficulty: %s\nCreated: %s\nLast accessed: %s\n\n%s",
		info.ID, info.Difficulty,
		info.CreatedAt.Format(time.RFC3339), info.LastAccessedAt.Format(time.RFC3339),
		formatGameState(info.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "Game state unavailable"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game %s (%s, %dx%d)\n", state.GameID, state.Difficulty, state.GridSize, state.GridSize)
	fmt.Fprintf(&b, "Status: %s  Phase: %s\n", state.Status, state.Phase)
	fmt.Fprintf(&b, "Moves: %d  Pairs: %d/%d  %s\n\n", state.MoveCount, state.MatchedPairs, state.TotalPairs, state.TimerText)
	b.WriteString(formatBoard(state))
	if state.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Message)
	}
	return b.String()
}

// formatBoard renders the grid with one cell per card index
func formatBoard(state *engine.GameState) string {
	size := state.GridSize
	if size <= 0 {
		return ""
	}

	var b strings.Builder
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			i := row*size + col
			if i >= len(state.Cards) {
				b.WriteString("  .  ")
				continue
			}
			b.WriteString(cellText(state.Cards[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func cellText(card engine.Card) string {
	switch {
	case card.Matched:
		return fmt.Sprintf("%2d[%s]", card.Index, card.Value)
	case card.Flipped:
		return fmt.Sprintf("%2d %s ", card.Index, card.Value)
	default:
		return fmt.Sprintf("%2d ? ", card.Index)
	}
}

func formatFlipResult(result *service.FlipResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "✓ %s\n", result.Message)
	} else {
		fmt.Fprintf(&b, "✗ Rejected (%s): %s\n", result.Code, result.Message)
	}
	for _, e := range result.Events {
		fmt.Fprintf(&b, "• %s: %s\n", e.Type, e.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatStats(resp *service.StatsResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lifetime moves: %d\n\n", resp.LifetimeMoves)

	if len(resp.Totals) > 0 {
		b.WriteString("Per difficulty:\n")
		for _, t := range resp.Totals {
			fmt.Fprintf(&b, "• %s: %d games, best %d moves / %s, avg %.1f moves\n",
				t.Difficulty, t.Games, t.BestMoves, formatSeconds(t.BestSeconds), t.AvgMoves)
		}
		b.WriteString("\n")
	}

	title := "Leaderboard"
	if resp.Difficulty != "" {
		title += " (" + resp.Difficulty + ")"
	}
	fmt.Fprintf(&b, "%s:\n", title)
	if len(resp.Leaderboard) == 0 {
		b.WriteString("(no completed games)\n")
	}
	for i, r := range resp.Leaderboard {
		fmt.Fprintf(&b, "%d. %d moves in %s (%s, %s)\n",
			i+1, r.Moves, formatSeconds(r.ElapsedSeconds), r.Difficulty, r.CompletedAt.Format("2006-01-02"))
	}
	return b.String()
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
