package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/engine"
)

// ErrStatsUnavailable is returned by GetStats when no recorder is configured
var ErrStatsUnavailable = errors.New("stats are not enabled")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	surfaces SurfaceProvider
	stats    StatsRecorder

	mu       sync.Mutex
	attached map[*engine.Game]bool
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithSurfaces renders every session's game to the provider's surfaces
func WithSurfaces(p SurfaceProvider) Option {
	return func(s *gameServiceImpl) { s.surfaces = p }
}

// WithStats records moves and wins through r
func WithStats(r StatsRecorder) Option {
	return func(s *gameServiceImpl) { s.stats = r }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		attached: make(map[*engine.Game]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if n, ok := sessions.(RemovalNotifier); ok {
		n.OnRemove(s.detach)
	}
	return s
}

// session fetches a session, marks it accessed and makes sure its game is
// wired to the configured surfaces and stats recorder
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	s.attach(sess)
	return sess, nil
}

func (s *gameServiceImpl) attach(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached[sess.Game] {
		return
	}
	s.attached[sess.Game] = true

	if s.surfaces != nil {
		display, audio := s.surfaces.Surface(sess.ID)
		sess.Game.SetDisplay(display)
		sess.Game.SetAudio(audio)
	}
	if s.stats != nil {
		sess.Game.AddObserver(s.stats.Observer(sess.ID))
	}
}

func (s *gameServiceImpl) detach(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attached, sess.Game)
}

// resolveConfig loads a difficulty by name, listing the available ones when
// the name is unknown. An empty name selects the default difficulty.
func (s *gameServiceImpl) resolveConfig(difficulty string) (*engine.GameConfig, error) {
	if difficulty == "" {
		return s.configs.GetDefault(), nil
	}

	config, err := s.configs.LoadConfig(difficulty)
	if err == nil {
		return config, nil
	}
	if strings.Contains(err.Error(), "configuration not found") {
		available, listErr := s.configs.ListConfigs()
		if listErr == nil && len(available) > 0 {
			var ids []string
			for _, cfg := range available {
				ids = append(ids, cfg.ConfigID)
			}
			return nil, fmt.Errorf("difficulty '%s' not found. Available difficulties: %v: %w", difficulty, ids, err)
		}
		return nil, fmt.Errorf("difficulty '%s' not found. Use /api/configs to list available difficulties: %w", difficulty, err)
	}
	return nil, fmt.Errorf("failed to load difficulty %s: %w", difficulty, err)
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		Difficulty:     sess.Difficulty(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Game.State(),
		GameConfig:     sess.Game.Config(),
	}
}

// CreateSession creates a new game session and starts its first game
func (s *gameServiceImpl) CreateSession(ctx context.Context, difficulty string) (*SessionInfo, error) {
	config, err := s.resolveConfig(difficulty)
	if err != nil {
		return nil, err
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.attach(sess)

	log.Info().Str("session", sess.ID).Str("difficulty", config.Name).Msg("session created")
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err == nil {
		s.detach(sess)
	}
	return s.sessions.Delete(sessionID)
}

// Flip turns a card face up. Rejected flips are reported with Success false
// and a code; only an unknown session is an error.
func (s *gameServiceImpl) Flip(ctx context.Context, sessionID string, index int) (*FlipResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	flip, err := sess.Game.Flip(index)
	state := sess.Game.State()
	if err != nil {
		return &FlipResult{
			Success:   false,
			Code:      rejectionCode(err),
			Message:   err.Error(),
			GameState: state,
		}, nil
	}

	return &FlipResult{
		Success:   true,
		Message:   state.Message,
		Flip:      flip,
		GameState: state,
		Events:    flipEvents(flip, index, state),
	}, nil
}

func rejectionCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrPairPending):
		return CodePairPending
	case errors.Is(err, engine.ErrCardMatched):
		return CodeCardMatched
	case errors.Is(err, engine.ErrCardFaceUp):
		return CodeCardFaceUp
	case errors.Is(err, engine.ErrInvalidCardIndex):
		return CodeInvalidIndex
	case errors.Is(err, engine.ErrGameWon):
		return CodeGameWon
	default:
		return "rejected"
	}
}

// flipEvents describes what an accepted flip did
func flipEvents(flip *engine.FlipResult, index int, state *engine.GameState) []GameEvent {
	now := time.Now()
	events := []GameEvent{{
		Type:      string(engine.EventFlip),
		Message:   fmt.Sprintf("Card %d shows %s", index, flip.Card.Value),
		Cards:     []int{index},
		Timestamp: now,
	}}

	switch flip.Outcome {
	case engine.EventMatch, engine.EventWon:
		events = append(events, GameEvent{
			Type:      string(engine.EventMatch),
			Message:   fmt.Sprintf("Pair of %s matched (%d/%d)", flip.Card.Value, state.MatchedPairs, state.TotalPairs),
			Timestamp: now,
		})
	case engine.EventMismatch:
		events = append(events, GameEvent{
			Type:      string(engine.EventMismatch),
			Message:   "No match, the cards flip back shortly",
			Cards:     append([]int(nil), state.PendingCards...),
			Timestamp: now,
		})
	}

	if flip.Outcome == engine.EventWon {
		events = append(events, GameEvent{
			Type:      string(engine.EventWon),
			Message:   state.Message,
			Timestamp: now,
		})
	}
	return events
}

// NewGame deals a new board, optionally switching difficulty
func (s *gameServiceImpl) NewGame(ctx context.Context, sessionID, difficulty string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if difficulty == "" {
		return sess.Game.Start()
	}
	config, err := s.resolveConfig(difficulty)
	if err != nil {
		return nil, err
	}
	return sess.Game.StartWithConfig(config)
}

// SaveGame writes the current game to the durable resume slot
func (s *gameServiceImpl) SaveGame(ctx context.Context, sessionID string) (*SaveResult, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, err
	}

	snap, err := s.sessions.SaveResume(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}
	return &SaveResult{
		SessionID:      sessionID,
		GameID:         snap.GameID,
		Difficulty:     snap.Difficulty,
		MoveCount:      snap.MoveCount,
		ElapsedSeconds: snap.ElapsedSeconds,
		SavedAt:        snap.SavedAt,
	}, nil
}

// RestoreGame replaces the running game with the durable resume snapshot
func (s *gameServiceImpl) RestoreGame(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, err
	}
	return s.sessions.Restore(sessionID)
}

// GetGameState returns the current game state for a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Game.State(), nil
}

// GetStats returns lifetime moves, per-difficulty totals and a leaderboard
func (s *gameServiceImpl) GetStats(ctx context.Context, difficulty string, limit int) (*StatsResponse, error) {
	if s.stats == nil {
		return nil, ErrStatsUnavailable
	}

	lifetime, err := s.stats.LifetimeMoves(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.stats.Totals(ctx)
	if err != nil {
		return nil, err
	}
	board, err := s.stats.Leaderboard(ctx, difficulty, limit)
	if err != nil {
		return nil, err
	}

	return &StatsResponse{
		Difficulty:    difficulty,
		LifetimeMoves: lifetime,
		Totals:        totals,
		Leaderboard:   board,
	}, nil
}

// ListConfigs returns available difficulties
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific difficulty configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, name string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(name)
}

// SaveConfig saves a difficulty configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, name string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(name, config)
}
