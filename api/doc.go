// Package api provides the HTTP REST API for the memory match game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"difficulty":"hard"}, optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/unified - Several sessions at once (?sessionIds=a,b or ?difficulty=easy)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/flip - Flip a card ({"index":3})
//   - POST /api/sessions/{id}/new-game - Deal a new board ({"difficulty":"easy"}, optional)
//   - POST /api/sessions/{id}/save - Write the resume snapshot
//   - POST /api/sessions/{id}/restore - Reload the resume snapshot
//
// Stats and Configuration:
//   - GET /api/stats - Lifetime moves, totals and leaderboard (?difficulty=&limit=)
//   - GET /api/configs - List difficulties
//   - POST /api/configs - Save a difficulty
//   - GET /api/configs/{name} - Get a difficulty
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket display surface and input source
//
// A flip that the game rejects is not an HTTP error. It answers 200 with
// success false and a code such as pair_pending or card_matched.
//
// Errors are returned as JSON:
//
//	{
//	  "error": "error message",
//	  "code": 404
//	}
package api
