package service

import (
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/stats"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	Difficulty     string             `json:"difficulty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// Rejection codes reported when a flip is not accepted
const (
	CodePairPending  = "pair_pending"
	CodeCardMatched  = "card_matched"
	CodeCardFaceUp   = "card_face_up"
	CodeInvalidIndex = "invalid_index"
	CodeGameWon      = "game_won"
)

// FlipResult contains the result of a flip operation
type FlipResult struct {
	Success   bool               `json:"success"`
	Code      string             `json:"code,omitempty"`
	Message   string             `json:"message"`
	Flip      *engine.FlipResult `json:"flip,omitempty"`
	GameState *engine.GameState  `json:"game_state"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during a call
type GameEvent struct {
	Type      string    `json:"type"` // "flip", "match", "mismatch", "won"
	Message   string    `json:"message"`
	Cards     []int     `json:"cards,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveResult describes a snapshot written to the durable resume slot
type SaveResult struct {
	SessionID      string    `json:"session_id"`
	GameID         string    `json:"game_id"`
	Difficulty     string    `json:"difficulty"`
	MoveCount      int       `json:"move_count"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	SavedAt        time.Time `json:"saved_at"`
}

// StatsResponse aggregates lifetime stats and a leaderboard
type StatsResponse struct {
	Difficulty    string         `json:"difficulty,omitempty"`
	LifetimeMoves int64          `json:"lifetime_moves"`
	Totals        []stats.Totals `json:"totals"`
	Leaderboard   []stats.Result `json:"leaderboard"`
}

// ConfigInfo provides information about a difficulty configuration
type ConfigInfo struct {
	Filename        string `json:"filename"`
	ConfigID        string `json:"config_id"` // The identifier to use for session creation
	Name            string `json:"name"`
	Description     string `json:"description"`
	GridSize        int    `json:"grid_size"`
	Pairs           int    `json:"pairs"`
	MismatchDelayMS int    `json:"mismatch_delay_ms"`
}
