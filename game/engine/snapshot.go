package engine

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Snapshot is the serialized form of a game used for save and restore
type Snapshot struct {
	Version        int       `json:"version"`
	GameID         string    `json:"game_id"`
	Difficulty     string    `json:"difficulty"`
	GridSize       int       `json:"grid_size"`
	MoveCount      int       `json:"move_count"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	Status         Status    `json:"status"`
	Cards          []Card    `json:"cards"`
	SavedAt        time.Time `json:"saved_at"`
}

// Snapshot captures the current board and counters
func (g *Game) Snapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	cards := make([]Card, len(g.board.Cards))
	copy(cards, g.board.Cards)

	return &Snapshot{
		Version:        SnapshotVersion,
		GameID:         g.gameID,
		Difficulty:     g.config.Name,
		GridSize:       g.board.GridSize,
		MoveCount:      g.moveCount,
		ElapsedSeconds: g.elapsed,
		Status:         g.status,
		Cards:          cards,
		SavedAt:        time.Now().UTC(),
	}
}

// EncodeSnapshot serializes a snapshot to JSON
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses a snapshot field by field. Missing or malformed
// fields fall back to zero values so that a partially corrupted save still
// restores what it can. Returns nil if data is not a JSON object at all.
func DecodeSnapshot(data []byte) *Snapshot {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Msg("snapshot is not a JSON object, ignoring")
		return nil
	}

	s := &Snapshot{}
	field := func(name string, dst interface{}) {
		v, ok := raw[name]
		if !ok {
			return
		}
		if err := json.Unmarshal(v, dst); err != nil {
			log.Warn().Err(err).Str("field", name).Msg("ignoring malformed snapshot field")
		}
	}

	field("version", &s.Version)
	field("game_id", &s.GameID)
	field("difficulty", &s.Difficulty)
	field("grid_size", &s.GridSize)
	field("move_count", &s.MoveCount)
	field("elapsed_seconds", &s.ElapsedSeconds)
	field("status", &s.Status)
	field("saved_at", &s.SavedAt)

	var cards []Card
	field("cards", &cards)
	s.Cards = cards

	return s
}

// Restore replaces the board and counters with a snapshot. Inconsistent
// snapshots are repaired rather than rejected: an unusable board is
// replaced by a fresh deal, matched cards are forced face up, and more than
// two face-up cards are turned down. A snapshot saved mid-mismatch resumes
// the flip-back without counting another move.
func (g *Game) Restore(snap *Snapshot) *GameState {
	if snap == nil {
		snap = &Snapshot{}
	}

	g.mu.Lock()
	g.cancelLocked()

	gridSize := snap.GridSize
	var board *Board
	if IsValidBoard(gridSize, snap.Cards) {
		cards := make([]Card, len(snap.Cards))
		copy(cards, snap.Cards)
		board = &Board{GridSize: gridSize, Cards: cards}
	} else {
		if len(snap.Cards) > 0 {
			log.Warn().Str("game_id", snap.GameID).Int("grid_size", gridSize).Int("cards", len(snap.Cards)).
				Msg("snapshot board is invalid, dealing a fresh one")
		}
		if ValidateGridSize(gridSize) != nil {
			gridSize = g.config.GridSize
		}
		var err error
		board, err = GenerateBoard(gridSize, g.rng)
		if err != nil {
			// config is validated on construction, so this only happens if
			// the alphabet changes underneath a running game
			board = g.board
		}
	}

	g.resetLocked(board)
	if snap.GameID != "" {
		g.gameID = snap.GameID
	}
	if snap.MoveCount > 0 {
		g.moveCount = snap.MoveCount
	}
	if snap.ElapsedSeconds > 0 {
		g.elapsed = snap.ElapsedSeconds
	}
	g.timerText = g.config.FormatTimer(g.elapsed)
	if g.moveCount > 0 {
		g.message = g.config.FormatMoves(g.moveCount)
	}

	sanitizeCards(g.board.Cards)

	fx := g.effectsLocked()

	pending := pendingIndices(g.board.Cards)
	switch {
	case len(pending) > MaxPendingCards:
		for _, i := range pending {
			g.board.Cards[i].Flipped = false
		}
	case len(pending) == MaxPendingCards:
		a, b := pending[0], pending[1]
		if g.board.Cards[a].Value == g.board.Cards[b].Value {
			g.board.Cards[a].Matched = true
			g.board.Cards[b].Matched = true
		} else {
			g.pending = pending
			g.phase = PhaseResolving
			g.scheduleResolveLocked(a, b)
		}
	case len(pending) == 1:
		g.pending = pending
	}

	redraw := g.redrawLocked()
	fx.fns = append(fx.fns, redraw.fns...)

	if CountMatched(g.board.Cards) == len(g.board.Cards) {
		// already won when saved: no cues, no second won event
		g.status = StatusWon
		g.message = g.config.FormatGameOver(g.moveCount, g.elapsed)
		display := g.display
		text := g.message
		fx.add(func() { display.ShowGameOver(text) })
	} else {
		g.startTimerLocked()
	}

	fx.observe(g.eventLocked(EventRestored))
	state := g.stateLocked()
	g.unlockAndRun(fx)
	return state
}

// RestoreWithConfig switches difficulty and restores a snapshot in one step
func (g *Game) RestoreWithConfig(config *GameConfig, snap *Snapshot) (*GameState, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.config = config
	g.mu.Unlock()
	return g.Restore(snap), nil
}

// sanitizeCards forces matched cards face up and clears a matched flag that
// has no matched partner.
func sanitizeCards(cards []Card) {
	matched := make(map[string]int)
	for _, c := range cards {
		if c.Matched {
			matched[c.Value]++
		}
	}
	for i := range cards {
		if !cards[i].Matched {
			continue
		}
		if matched[cards[i].Value] != 2 {
			cards[i].Matched = false
			continue
		}
		cards[i].Flipped = true
	}
}
