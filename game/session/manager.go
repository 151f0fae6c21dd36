package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// ConfigSource resolves difficulties for sessions loaded from persistence
type ConfigSource interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	GetDefault() *engine.GameConfig
}

// Manager handles game session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	configs     ConfigSource
	engineOpts  []engine.Option
	mu          sync.RWMutex

	// writers serializes snapshot writes per session so an older
	// snapshot never lands after a newer one
	writers  map[*service.Session]*sync.Mutex
	onRemove []func(*service.Session)
}

// Option configures a Manager
type Option func(*Manager)

// WithEngineOptions passes opts to every game the manager constructs
func WithEngineOptions(opts ...engine.Option) Option {
	return func(m *Manager) { m.engineOpts = append(m.engineOpts, opts...) }
}

// WithConfigs sets the difficulty source used when reloading sessions
func WithConfigs(c ConfigSource) Option {
	return func(m *Manager) { m.configs = c }
}

// NewManager creates a new in-memory session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		writers:  make(map[*service.Session]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a new session manager with persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	m := NewManager(opts...)
	m.persistence = persistence
	return m
}

func (m *Manager) newGame(config *engine.GameConfig) (*engine.Game, error) {
	game, err := engine.New(config, m.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// Create creates a new session with the given ID and starts its first game
func (m *Manager) Create(id string, config *engine.GameConfig) (*service.Session, error) {
	game, err := m.newGame(config)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if id == "" {
		id = m.uniqueSessionID()
	}
	if m.sessionExists(id) || (m.persistence != nil && m.persistence.Exists(id)) {
		m.mu.Unlock()
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		Game:           game,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.sessions[strings.ToLower(id)] = sess
	m.mu.Unlock()

	m.watch(sess)
	if _, err := game.Start(); err != nil {
		m.DeleteFromMemory(id)
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	return sess, nil
}

// watch mirrors every transition of the session's game into persistence
func (m *Manager) watch(sess *service.Session) {
	if m.persistence == nil {
		return
	}

	sess.Game.AddObserver(engine.ObserverFunc(func(ev engine.Event) {
		switch ev.Type {
		case engine.EventNewGame:
			if err := m.persistence.ClearVolatile(sess.ID); err != nil {
				log.Warn().Err(err).Str("session", sess.ID).Msg("failed to clear previous game")
			}
			m.persistSnapshot(sess)
			m.persistRecord(sess)
		case engine.EventRestored:
			m.persistSnapshot(sess)
			m.persistRecord(sess)
		default:
			m.persistSnapshot(sess)
		}
	}))
}

func (m *Manager) persistSnapshot(sess *service.Session) {
	if err := m.writeSnapshot(sess); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("failed to persist game snapshot")
	}
}

// writeSnapshot takes the snapshot and writes it while holding the
// session's writer lock
func (m *Manager) writeSnapshot(sess *service.Session) error {
	w := m.writer(sess)
	w.Lock()
	defer w.Unlock()
	return m.persistence.SaveSnapshot(sess.ID, sess.Game.Snapshot())
}

func (m *Manager) writer(sess *service.Session) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.writers[sess]; ok {
		return w
	}
	w := &sync.Mutex{}
	// a removed session's late writes get a lock nobody keeps
	if m.sessions[strings.ToLower(sess.ID)] == sess {
		m.writers[sess] = w
	}
	return w
}

// OnRemove registers fn to run after a session leaves memory, whether by
// Delete, DeleteFromMemory or expiry
func (m *Manager) OnRemove(fn func(*service.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

// removed closes the session's game and runs the removal hooks
func (m *Manager) removed(sess *service.Session) {
	sess.Game.Close()

	m.mu.Lock()
	delete(m.writers, sess)
	hooks := append(([]func(*service.Session))(nil), m.onRemove...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(sess)
	}
}

func (m *Manager) persistRecord(sess *service.Session) {
	m.mu.RLock()
	data := record(sess)
	m.mu.RUnlock()

	if err := m.persistence.Save(data); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("failed to persist session")
	}
}

func record(sess *service.Session) *PersistedSessionData {
	return &PersistedSessionData{
		ID:             sess.ID,
		ConfigName:     sess.Difficulty(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
}

// Get retrieves a session by ID (case-insensitive), loading it from
// persistence when it is not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		return sess, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		return m.load(id)
	}

	return nil, ErrSessionNotFound
}

// load rebuilds a session from its record and latest snapshot
func (m *Manager) load(id string) (*service.Session, error) {
	data, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	snap, err := m.persistence.LoadSnapshot(id)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("failed to load game snapshot, starting a new game")
		snap = nil
	}

	difficulty := data.ConfigName
	if snap != nil && snap.Difficulty != "" {
		difficulty = snap.Difficulty
	}
	game, err := m.newGame(m.configFor(difficulty))
	if err != nil {
		return nil, err
	}

	sess := &service.Session{
		ID:             data.ID,
		Game:           game,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}

	m.mu.Lock()
	if existing, ok := m.sessions[strings.ToLower(id)]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[strings.ToLower(id)] = sess
	m.mu.Unlock()

	m.watch(sess)
	if snap != nil {
		game.Restore(snap)
	} else if _, err := game.Start(); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	return sess, nil
}

func (m *Manager) configFor(difficulty string) *engine.GameConfig {
	if m.configs == nil {
		return engine.DefaultConfig()
	}
	if difficulty != "" {
		config, err := m.configs.LoadConfig(difficulty)
		if err == nil {
			return config
		}
		log.Warn().Err(err).Str("difficulty", difficulty).Msg("unknown difficulty, using default")
	}
	if def := m.configs.GetDefault(); def != nil {
		return def
	}
	return engine.DefaultConfig()
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, config *engine.GameConfig) (*service.Session, error) {
	sess, err := m.Get(id)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, config)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}

	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	sess, inMemory := m.remove(id)
	if inMemory {
		m.removed(sess)
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory removes a session from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	sess, ok := m.remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.removed(sess)
	return nil
}

func (m *Manager) remove(id string) (*service.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	sess, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	return sess, ok
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	data := record(sess)
	m.mu.Unlock()

	if m.persistence != nil {
		if err := m.persistence.Save(data); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to persist session after access update")
		}
	}

	return nil
}

// Save writes a session's record and current game to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		m.mu.RUnlock()
		return ErrSessionNotFound
	}
	data := record(sess)
	m.mu.RUnlock()

	if err := m.persistence.Save(data); err != nil {
		return err
	}
	return m.writeSnapshot(sess)
}

// SaveResume writes the session's game to the durable resume slot
func (m *Manager) SaveResume(id string) (*engine.Snapshot, error) {
	if m.persistence == nil {
		return nil, fmt.Errorf("persistence is not configured")
	}

	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	snap := sess.Game.Snapshot()
	if err := m.persistence.SaveResume(sess.ID, snap); err != nil {
		return nil, err
	}
	log.Info().Str("session", sess.ID).Str("game", snap.GameID).Int("moves", snap.MoveCount).Msg("game saved")
	return snap, nil
}

// Restore replaces the session's running game with its resume snapshot
func (m *Manager) Restore(id string) (*engine.GameState, error) {
	if m.persistence == nil {
		return nil, ErrNoSavedGame
	}

	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	snap, err := m.persistence.LoadResume(sess.ID)
	if err != nil {
		return nil, err
	}

	config := sess.Game.Config()
	if snap.Difficulty != "" && snap.Difficulty != config.Name {
		config = m.configFor(snap.Difficulty)
	}
	state, err := sess.Game.RestoreWithConfig(config, snap)
	if err != nil {
		return nil, err
	}
	log.Info().Str("session", sess.ID).Str("game", state.GameID).Msg("game restored")
	return state, nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*service.Session
	for key, sess := range m.sessions {
		if sess.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		m.removed(sess)
	}
	return len(expired)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// uniqueSessionID retries until the ID is free; caller holds m.mu
func (m *Manager) uniqueSessionID() string {
	for {
		id := m.generateSessionID()
		if !m.sessionExists(id) && (m.persistence == nil || !m.persistence.Exists(id)) {
			return id
		}
	}
}

func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}

// LoadPersistedSessions loads all persisted sessions into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		m.mu.RLock()
		exists := m.sessionExists(id)
		m.mu.RUnlock()
		if exists {
			continue
		}

		if _, err := m.load(id); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to load persisted session")
			continue
		}
		loaded++
	}

	if loaded > 0 {
		log.Info().Int("count", loaded).Msg("loaded persisted sessions from storage")
	}
	return nil
}

// SaveAllSessions saves all in-memory sessions to persistence
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, sess := range m.List() {
		if err := m.Save(sess.ID); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("failed to save session")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}
