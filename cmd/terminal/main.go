// Command terminal plays the memory game in a terminal window. The game is
// saved to the sessions directory after every move and picked up again on
// the next launch. Wins go to the same stats database the server uses.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/session"
	"github.com/wricardo/memory-match-game/stats"
	"github.com/wricardo/memory-match-game/storage"
)

// screenFactory is replaced in tests with a simulation screen
var screenFactory = tcell.NewScreen

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "terminal",
		Usage: "play the memory game in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing difficulty configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "directory the game is saved to",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "difficulty",
				Aliases: []string{"d"},
				Usage:   "difficulty for a new game (easy, medium, hard)",
			},
			&cli.StringFlag{
				Name:    "stats-db",
				Value:   "data/stats.db",
				Usage:   "SQLite database for completed games, empty to disable",
				Sources: cli.EnvVars("STATS_DB"),
			},
			&cli.BoolFlag{
				Name:  "new",
				Usage: "ignore the saved game and deal a fresh board",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "write logs here instead of discarding them",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			var out io.Writer = io.Discard
			if path := cmd.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return ctx, fmt.Errorf("failed to open log file: %w", err)
				}
				out = f
			}
			log.Logger = zerolog.New(out).With().Timestamp().Logger()
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configs, err := config.NewManager(cmd.String("config-dir"))
			if err != nil {
				return err
			}
			durable, err := storage.NewFileStore(cmd.String("sessions-dir"))
			if err != nil {
				return fmt.Errorf("failed to create sessions directory: %w", err)
			}
			persistence, err := session.NewStorePersistence(durable, storage.NewMemory())
			if err != nil {
				return err
			}

			var opts []engine.Option
			if dsn := cmd.String("stats-db"); dsn != "" {
				tracker, err := stats.Open(dsn, durable)
				if err != nil {
					return fmt.Errorf("failed to open stats database: %w", err)
				}
				defer tracker.Close()
				opts = append(opts, engine.WithObserver(tracker.Observer(resumeSlot)))
			}

			screen, err := screenFactory()
			if err != nil {
				return fmt.Errorf("failed to create screen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("failed to initialize screen: %w", err)
			}
			defer screen.Fini()
			screen.HideCursor()

			app, err := NewApp(screen, configs, persistence, cmd.String("difficulty"), cmd.Bool("new"), opts...)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
