package service

import (
	"context"
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/stats"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, difficulty string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Flip(ctx context.Context, sessionID string, index int) (*FlipResult, error)
	NewGame(ctx context.Context, sessionID, difficulty string) (*engine.GameState, error)
	SaveGame(ctx context.Context, sessionID string) (*SaveResult, error)
	RestoreGame(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetStats(ctx context.Context, difficulty string, limit int) (*StatsResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, name string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, name string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
	// SaveResume writes the session's game to the durable resume slot
	SaveResume(id string) (*engine.Snapshot, error)
	// Restore reloads the durable resume snapshot into the running game
	Restore(id string) (*engine.GameState, error)
}

// RemovalNotifier is implemented by session managers that drop sessions on
// their own, through expiry or memory-only removal. The service forgets
// what it wired into those sessions' games.
type RemovalNotifier interface {
	OnRemove(fn func(*Session))
}

// ConfigManager handles difficulty configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// SurfaceProvider supplies the display and audio a session's game renders to
type SurfaceProvider interface {
	Surface(sessionID string) (engine.Display, engine.Audio)
}

// StatsRecorder records finished games and answers stats queries
type StatsRecorder interface {
	Observer(sessionID string) engine.Observer
	Leaderboard(ctx context.Context, difficulty string, limit int) ([]stats.Result, error)
	Totals(ctx context.Context) ([]stats.Totals, error)
	LifetimeMoves(ctx context.Context) (int64, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	Game           *engine.Game
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Difficulty returns the name of the session's active difficulty
func (s *Session) Difficulty() string {
	return s.Game.Config().Name
}
