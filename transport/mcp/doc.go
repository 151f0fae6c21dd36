// Package mcp exposes the memory game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API, and the JSON response is rendered as text the agent
// can read. Face-down cards are shown as "?" so the agent has to remember
// what it has seen, the same as a human player.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: board, move count, timer and status
//   - flip_card: flip one card by index
//   - new_game: start over, optionally at another difficulty
//   - save_game, restore_game
//   - stats: lifetime moves, per-difficulty totals and leaderboard
//   - list_configs, game_instructions
//
// Transport Modes:
//
// The returned server can be served over stdio for local MCP clients or
// mounted as a streamable HTTP handler next to the REST API:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
