package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultWelcome  = "Find all the pairs!"
	defaultMoves    = "Moves: %d"
	defaultTimer    = "Time: %02d:%02d"
	defaultGameOver = "Game Over! You won in %d moves and %d seconds."
)

// ValidateGameConfig validates a difficulty configuration
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}
	if err := ValidateGridSize(config.GridSize); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if config.MismatchDelayMS < 0 {
		return fmt.Errorf("config validation: mismatch_delay_ms cannot be negative, got %d", config.MismatchDelayMS)
	}
	if config.TickIntervalMS < 0 {
		return fmt.Errorf("config validation: tick_interval_ms cannot be negative, got %d", config.TickIntervalMS)
	}

	if config.Messages.Moves != "" && strings.Count(config.Messages.Moves, "%d") != 1 {
		return fmt.Errorf("config validation: messages.moves must contain exactly one %%d")
	}
	if config.Messages.GameOver != "" && strings.Count(config.Messages.GameOver, "%d") != 2 {
		return fmt.Errorf("config validation: messages.game_over must contain %%d for moves and seconds")
	}
	if config.Messages.Timer != "" && strings.Count(config.Messages.Timer, "%02d") != 2 {
		return fmt.Errorf("config validation: messages.timer must contain %%02d for minutes and seconds")
	}

	return nil
}

// LoadGameConfig loads and validates a difficulty configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns the built-in 4x4 difficulty
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:            "medium",
		Description:     "4x4 grid, eight pairs",
		GridSize:        DefaultGridSize,
		MismatchDelayMS: int(DefaultMismatchDelay / time.Millisecond),
		TickIntervalMS:  int(DefaultTickInterval / time.Millisecond),
	}
	config.Messages.Welcome = defaultWelcome
	config.Messages.Moves = defaultMoves
	config.Messages.Timer = defaultTimer
	config.Messages.GameOver = defaultGameOver
	return config
}

// MismatchDelay returns the visible delay before a mismatched pair flips back
func (c *GameConfig) MismatchDelay() time.Duration {
	if c == nil || c.MismatchDelayMS <= 0 {
		return DefaultMismatchDelay
	}
	return time.Duration(c.MismatchDelayMS) * time.Millisecond
}

// TickInterval returns the timer granularity
func (c *GameConfig) TickInterval() time.Duration {
	if c == nil || c.TickIntervalMS <= 0 {
		return DefaultTickInterval
	}
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// FormatMoves renders the move counter message
func (c *GameConfig) FormatMoves(moves int) string {
	format := defaultMoves
	if c != nil && c.Messages.Moves != "" {
		format = c.Messages.Moves
	}
	return fmt.Sprintf(format, moves)
}

// FormatTimer renders elapsed seconds as MM:SS
func (c *GameConfig) FormatTimer(elapsed int) string {
	format := defaultTimer
	if c != nil && c.Messages.Timer != "" {
		format = c.Messages.Timer
	}
	return fmt.Sprintf(format, elapsed/60, elapsed%60)
}

// FormatGameOver renders the terminal win message
func (c *GameConfig) FormatGameOver(moves, elapsed int) string {
	format := defaultGameOver
	if c != nil && c.Messages.GameOver != "" {
		format = c.Messages.GameOver
	}
	return fmt.Sprintf(format, moves, elapsed)
}

// WelcomeMessage returns the message shown when a game starts
func (c *GameConfig) WelcomeMessage() string {
	if c != nil && c.Messages.Welcome != "" {
		return c.Messages.Welcome
	}
	return defaultWelcome
}
