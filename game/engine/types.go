package engine

import "time"

// Status represents the lifecycle status of a game
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
)

// Phase represents the flip/match state machine phase
type Phase string

const (
	// PhaseIdle means zero or one card is flipped-unmatched
	PhaseIdle Phase = "idle"
	// PhaseEvaluating means two cards are flipped-unmatched and being compared
	PhaseEvaluating Phase = "evaluating"
	// PhaseResolving means a mismatch is waiting for its visible delay
	PhaseResolving Phase = "resolving"
)

const (
	// Alphabet supplies the face values, in order
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Validation constants
	MinGridSize          = 2
	MaxGridSize          = 7
	DefaultGridSize      = 4
	DefaultMismatchDelay = 1 * time.Second
	DefaultTickInterval  = 1 * time.Second
	MaxPendingCards      = 2
	SnapshotVersion      = 1
)

// Card is a single card on the board. Its identity is its index.
type Card struct {
	Index   int    `json:"index"`
	Value   string `json:"value"`
	Flipped bool   `json:"flipped"`
	Matched bool   `json:"matched"`
}

// Board is the ordered sequence of cards for one game
type Board struct {
	GridSize int    `json:"grid_size"`
	Cards    []Card `json:"cards"`
}

// GameConfig represents a difficulty level loaded from JSON
type GameConfig struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	GridSize        int    `json:"grid_size"`
	MismatchDelayMS int    `json:"mismatch_delay_ms,omitempty"`
	TickIntervalMS  int    `json:"tick_interval_ms,omitempty"`
	Messages        struct {
		Welcome  string `json:"welcome"`
		Moves    string `json:"moves"`
		Timer    string `json:"timer"`
		GameOver string `json:"game_over"`
		Match    string `json:"match,omitempty"`
		Mismatch string `json:"mismatch,omitempty"`
	} `json:"messages"`
}

// GameState is the public projection of a running game
type GameState struct {
	GameID         string `json:"game_id"`
	Generation     uint64 `json:"generation"`
	Difficulty     string `json:"difficulty"`
	GridSize       int    `json:"grid_size"`
	Cards          []Card `json:"cards"`
	PendingCards   []int  `json:"pending_cards"`
	MoveCount      int    `json:"move_count"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Status         Status `json:"status"`
	Phase          Phase  `json:"phase"`
	Message        string `json:"message"`
	TimerText      string `json:"timer_text"`
	MatchedPairs   int    `json:"matched_pairs"`
	TotalPairs     int    `json:"total_pairs"`
	TimerRunning   bool   `json:"timer_running"`
}

// EventType names a state-changing transition
type EventType string

const (
	EventNewGame  EventType = "new_game"
	EventRestored EventType = "restored"
	EventFlip     EventType = "flip"
	EventMatch    EventType = "match"
	EventMismatch EventType = "mismatch"
	EventResolved EventType = "resolved"
	EventTick     EventType = "tick"
	EventWon      EventType = "won"
)

// Event describes a transition. Observers receive one per mutation.
type Event struct {
	Type           EventType `json:"type"`
	GameID         string    `json:"game_id"`
	Generation     uint64    `json:"generation"`
	Difficulty     string    `json:"difficulty"`
	GridSize       int       `json:"grid_size"`
	Cards          []int     `json:"cards,omitempty"`
	MoveCount      int       `json:"move_count"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Timestamp      time.Time `json:"timestamp"`
}

// FlipResult reports the outcome of an accepted flip
type FlipResult struct {
	Card      Card      `json:"card"`
	Outcome   EventType `json:"outcome"`
	MoveCount int       `json:"move_count"`
	Phase     Phase     `json:"phase"`
	Status    Status    `json:"status"`
}
