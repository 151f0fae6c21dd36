// Package stats records completed games in SQLite and keeps the lifetime
// move counter in the durable key-value scope.
//
// Responsibilities:
//   - Opening the SQLite database with WAL and a busy timeout.
//   - Applying the schema migrations (idempotent, recorded in _migrations).
//   - Win history and per-difficulty leaderboards.
//   - The cumulative move counter shared by every game.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/storage"
)

// LifetimeMovesKey is the durable key holding the cumulative move count
const LifetimeMovesKey = "stats:lifetime_moves"

const defaultLeaderboardLimit = 20

// Result is one completed game
type Result struct {
	SessionID      string    `json:"session_id"`
	GameID         string    `json:"game_id"`
	Difficulty     string    `json:"difficulty"`
	GridSize       int       `json:"grid_size"`
	Moves          int       `json:"moves"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Totals summarizes completed games for one difficulty
type Totals struct {
	Difficulty  string  `json:"difficulty"`
	Games       int     `json:"games"`
	BestMoves   int     `json:"best_moves"`
	BestSeconds int     `json:"best_seconds"`
	AvgMoves    float64 `json:"avg_moves"`
	AvgSeconds  float64 `json:"avg_seconds"`
}

// Tracker stores completed games and the lifetime move counter
type Tracker struct {
	db *sql.DB
	kv storage.Store

	mu sync.Mutex // serializes counter read-modify-write
}

var migrations = []struct {
	name string
	sql  string
}{
	{"001_results", `
        CREATE TABLE IF NOT EXISTS results (
            id              INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id      TEXT NOT NULL,
            game_id         TEXT NOT NULL UNIQUE,
            difficulty      TEXT NOT NULL,
            grid_size       INTEGER NOT NULL,
            moves           INTEGER NOT NULL,
            elapsed_seconds INTEGER NOT NULL,
            completed_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`},
	{"002_results_leaderboard_idx", `
        CREATE INDEX IF NOT EXISTS idx_results_leaderboard
            ON results (difficulty, moves, elapsed_seconds);`},
}

// Open opens (and creates if missing) the stats database. kv holds the
// lifetime counter; it may be nil, in which case the counter stays at zero.
func Open(dsn string, kv storage.Store) (*Tracker, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Tracker{db: db, kv: kv}, nil
}

func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, m.name).Scan(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.name, err)
		}
		log.Info().Str("migration", m.name).Msg("applied")
	}
	return nil
}

// Close closes the database
func (t *Tracker) Close() error {
	return t.db.Close()
}

// RecordWin stores a completed game. A game ID is recorded at most once.
func (t *Tracker) RecordWin(ctx context.Context, r Result) error {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO results
            (session_id, game_id, difficulty, grid_size, moves, elapsed_seconds, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.GameID, r.Difficulty, r.GridSize, r.Moves, r.ElapsedSeconds, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	return nil
}

// Leaderboard returns the best games for a difficulty, fewest moves first,
// then fastest, then earliest. An empty difficulty ranks every game.
func (t *Tracker) Leaderboard(ctx context.Context, difficulty string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	rows, err := t.db.QueryContext(ctx, `
        SELECT session_id, game_id, difficulty, grid_size, moves, elapsed_seconds, completed_at
        FROM results
        WHERE (? = '' OR difficulty = ?)
        ORDER BY moves ASC, elapsed_seconds ASC, completed_at ASC
        LIMIT ?`, difficulty, difficulty, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]Result, 0, limit)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.SessionID, &r.GameID, &r.Difficulty, &r.GridSize, &r.Moves, &r.ElapsedSeconds, &r.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Totals summarizes completed games per difficulty, ordered by grid size
func (t *Tracker) Totals(ctx context.Context) ([]Totals, error) {
	rows, err := t.db.QueryContext(ctx, `
        SELECT difficulty, COUNT(1), MIN(moves), MIN(elapsed_seconds),
               AVG(moves), AVG(elapsed_seconds)
        FROM results
        GROUP BY difficulty
        ORDER BY MIN(grid_size) ASC, difficulty ASC`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	var out []Totals
	for rows.Next() {
		var tot Totals
		if err := rows.Scan(&tot.Difficulty, &tot.Games, &tot.BestMoves, &tot.BestSeconds, &tot.AvgMoves, &tot.AvgSeconds); err != nil {
			return nil, err
		}
		out = append(out, tot)
	}
	return out, rows.Err()
}

// AddMoves adds n to the lifetime move counter and returns the new total
func (t *Tracker) AddMoves(ctx context.Context, n int) (int64, error) {
	if t.kv == nil {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	total, err := t.lifetimeMoves(ctx)
	if err != nil {
		return 0, err
	}
	total += int64(n)
	if err := t.kv.Set(ctx, LifetimeMovesKey, strconv.FormatInt(total, 10)); err != nil {
		return 0, fmt.Errorf("save lifetime moves: %w", err)
	}
	return total, nil
}

// LifetimeMoves returns the cumulative number of moves across all games
func (t *Tracker) LifetimeMoves(ctx context.Context) (int64, error) {
	if t.kv == nil {
		return 0, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lifetimeMoves(ctx)
}

func (t *Tracker) lifetimeMoves(ctx context.Context) (int64, error) {
	raw, err := t.kv.Get(ctx, LifetimeMovesKey)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load lifetime moves: %w", err)
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn().Str("value", raw).Msg("lifetime move counter is corrupt, resetting")
		return 0, nil
	}
	return total, nil
}

// Observer returns an engine observer that counts every compared pair and
// records wins for the given session. Failures are logged and swallowed.
func (t *Tracker) Observer(sessionID string) engine.Observer {
	return engine.ObserverFunc(func(ev engine.Event) {
		ctx := context.Background()
		switch ev.Type {
		case engine.EventMatch, engine.EventMismatch:
			if _, err := t.AddMoves(ctx, 1); err != nil {
				log.Warn().Err(err).Str("session", sessionID).Msg("failed to update lifetime moves")
			}
		case engine.EventWon:
			err := t.RecordWin(ctx, Result{
				SessionID:      sessionID,
				GameID:         ev.GameID,
				Difficulty:     ev.Difficulty,
				GridSize:       ev.GridSize,
				Moves:          ev.MoveCount,
				ElapsedSeconds: ev.ElapsedSeconds,
				CompletedAt:    ev.Timestamp.UTC(),
			})
			if err != nil {
				log.Warn().Err(err).Str("session", sessionID).Str("game_id", ev.GameID).Msg("failed to record win")
				return
			}
			log.Info().Str("session", sessionID).Str("difficulty", ev.Difficulty).
				Int("moves", ev.MoveCount).Int("seconds", ev.ElapsedSeconds).Msg("game won")
		}
	})
}
