package session

import (
	"errors"
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
)

// ErrNoSavedGame is returned when a session has no resume snapshot
var ErrNoSavedGame = errors.New("no saved game")

// SessionPersistence defines the interface for persisting sessions. The
// session record and resume snapshot live in the durable scope; the current
// game snapshot lives in the volatile scope.
type SessionPersistence interface {
	// Save persists a session record
	Save(data *PersistedSessionData) error

	// Load retrieves a session record by ID
	Load(id string) (*PersistedSessionData, error)

	// Delete removes a session record and every snapshot it owns
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session record exists
	Exists(id string) bool

	// SaveSnapshot writes the current game to the volatile scope
	SaveSnapshot(id string, snap *engine.Snapshot) error

	// ClearVolatile drops the current game from the volatile scope
	ClearVolatile(id string) error

	// LoadSnapshot returns the snapshot to resume from at startup: the
	// volatile one if present, else the durable resume snapshot, else nil.
	LoadSnapshot(id string) (*engine.Snapshot, error)

	// SaveResume writes an explicit "resume this exact game" snapshot
	SaveResume(id string, snap *engine.Snapshot) error

	// LoadResume returns the resume snapshot or ErrNoSavedGame
	LoadResume(id string) (*engine.Snapshot, error)
}

// PersistedSessionData represents the JSON structure for persisted sessions
type PersistedSessionData struct {
	ID             string    `json:"id"`
	ConfigName     string    `json:"config_name"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}
