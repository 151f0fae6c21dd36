package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/session"
)

// resumeSlot is the durable key the terminal saves its game under
const resumeSlot = "terminal"

// difficultyKeys maps number keys to difficulty names
var difficultyKeys = map[rune]string{'1': "easy", '2': "medium", '3': "hard"}

// App is one terminal game: a screen, the game it shows and the place it
// saves to
type App struct {
	screen      tcell.Screen
	surface     *Surface
	game        *engine.Game
	configs     *config.Manager
	persistence session.SessionPersistence
}

// NewApp builds the game for difficulty and either restores the saved
// terminal game or deals a fresh one. A saved game wins over the requested
// difficulty unless fresh is set. Every transition is saved as it happens.
func NewApp(screen tcell.Screen, configs *config.Manager, persistence session.SessionPersistence, difficulty string, fresh bool, opts ...engine.Option) (*App, error) {
	gameConfig, err := loadConfig(configs, difficulty)
	if err != nil {
		return nil, err
	}

	surface := NewSurface(screen)
	opts = append(opts, engine.WithDisplay(surface), engine.WithAudio(surface))
	game, err := engine.New(gameConfig, opts...)
	if err != nil {
		return nil, err
	}

	app := &App{
		screen:      screen,
		surface:     surface,
		game:        game,
		configs:     configs,
		persistence: persistence,
	}
	game.AddObserver(engine.ObserverFunc(app.autosave))

	if !fresh && app.restore() {
		return app, nil
	}
	surface.SetDifficulty(gameConfig.Name)
	if _, err := game.Start(); err != nil {
		return nil, err
	}
	return app, nil
}

func loadConfig(configs *config.Manager, name string) (*engine.GameConfig, error) {
	if name == "" {
		return configs.GetDefault(), nil
	}
	c, err := configs.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("difficulty %q: %w", name, err)
	}
	return c, nil
}

// restore loads the saved game, reporting whether one was restored
func (a *App) restore() bool {
	snap, err := a.persistence.LoadResume(resumeSlot)
	if err != nil {
		if !errors.Is(err, session.ErrNoSavedGame) {
			log.Warn().Err(err).Msg("could not read saved game")
		}
		return false
	}

	gameConfig, err := a.configs.LoadConfig(snap.Difficulty)
	if err != nil {
		gameConfig = a.game.Config()
	}
	a.surface.SetDifficulty(gameConfig.Name)
	if _, err := a.game.RestoreWithConfig(gameConfig, snap); err != nil {
		log.Warn().Err(err).Msg("could not restore saved game")
		return false
	}
	log.Info().Str("game_id", snap.GameID).Str("difficulty", gameConfig.Name).Msg("restored saved game")
	return true
}

// Save writes the current game to the resume slot
func (a *App) Save() error {
	if err := a.persistence.SaveResume(resumeSlot, a.game.Snapshot()); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

func (a *App) autosave(ev engine.Event) {
	if err := a.Save(); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("autosave failed")
	}
}

// Close stops the game's timers
func (a *App) Close() {
	a.game.Close()
}

// newGame deals a new board, switching difficulty when name is set
func (a *App) newGame(name string) {
	if name == "" {
		if _, err := a.game.Start(); err != nil {
			a.surface.SetMessageText(err.Error())
		}
		return
	}
	gameConfig, err := a.configs.LoadConfig(name)
	if err != nil {
		a.surface.SetMessageText(fmt.Sprintf("Unknown difficulty %s", name))
		return
	}
	a.surface.SetDifficulty(gameConfig.Name)
	if _, err := a.game.StartWithConfig(gameConfig); err != nil {
		a.surface.SetMessageText(err.Error())
	}
}

// flip turns the card under the cursor. Rejections are silent, the same as
// clicking a card that cannot move.
func (a *App) flip() {
	index := a.surface.Cursor()
	if _, err := a.game.Flip(index); err != nil {
		log.Debug().Err(err).Int("index", index).Msg("flip rejected")
	}
}

// HandleKey applies one key press and reports whether the app should quit
func (a *App) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		a.surface.MoveCursor(0, -1)
	case tcell.KeyDown:
		a.surface.MoveCursor(0, 1)
	case tcell.KeyLeft:
		a.surface.MoveCursor(-1, 0)
	case tcell.KeyRight:
		a.surface.MoveCursor(1, 0)
	case tcell.KeyEnter:
		a.flip()
	case tcell.KeyRune:
		return a.handleRune(ev.Rune())
	}
	return false
}

func (a *App) handleRune(r rune) bool {
	switch r {
	case 'q', 'Q':
		return true
	case 'k':
		a.surface.MoveCursor(0, -1)
	case 'j':
		a.surface.MoveCursor(0, 1)
	case 'h':
		a.surface.MoveCursor(-1, 0)
	case 'l':
		a.surface.MoveCursor(1, 0)
	case ' ':
		a.flip()
	case 'n':
		a.newGame("")
	default:
		if name, ok := difficultyKeys[r]; ok {
			a.newGame(name)
		}
	}
	return false
}

// Run reads terminal events until the user quits or ctx ends, then saves
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	defer func() {
		if err := a.Save(); err != nil {
			log.Error().Err(err).Msg("save on quit failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if a.HandleKey(ev) {
					return nil
				}
			case *tcell.EventResize:
				a.screen.Sync()
			}
		}
	}
}
