// Command autoplay plays memory match games over the REST API with a
// perfect memory: every revealed card is remembered, and a known pair is
// always taken before a new card is turned over.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/memory-match-game/game/engine"
)

// resumeSession picks the session to continue: the explicit flag first,
// then the session file
func resumeSession(explicit, sessionFile string) string {
	if explicit != "" {
		return explicit
	}
	if sessionFile == "" {
		return ""
	}
	data, err := os.ReadFile(sessionFile)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

func run(ctx context.Context, cmd *cli.Command) error {
	client := NewClient(cmd.String("url"))
	difficulty := cmd.String("difficulty")
	sessionFile := cmd.String("session-file")

	if id := resumeSession(cmd.String("continue"), sessionFile); id != "" {
		client.sessionID = id
		if _, err := client.GetState(ctx); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("failed to resume session, creating a new one")
			client.sessionID = ""
		} else {
			log.Info().Str("session", id).Msg("resuming session")
		}
	}

	if client.sessionID == "" {
		if _, err := client.CreateSession(ctx, difficulty); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		log.Info().Str("session", client.sessionID).Msg("session created")
		if sessionFile != "" {
			if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
				log.Warn().Err(err).Msg("failed to save session ID")
			}
		}
	}

	player := NewPlayer(client, int(cmd.Int("max-moves")), cmd.Duration("poll"))
	games := int(cmd.Int("games"))

	totalMoves := 0
	for n := 1; n <= games; n++ {
		state, err := client.GetState(ctx)
		if err != nil {
			return err
		}
		if n > 1 || state.Status == engine.StatusWon || (difficulty != "" && state.Difficulty != difficulty) {
			if _, err := client.NewGame(ctx, difficulty); err != nil {
				return fmt.Errorf("new game: %w", err)
			}
		}

		final, err := player.Play(ctx)
		if err != nil {
			return fmt.Errorf("game %d: %w", n, err)
		}
		totalMoves += final.MoveCount
		fmt.Fprintf(cmd.Root().Writer, "game %d: %s won in %d moves (%d pairs) %s\n",
			n, final.Difficulty, final.MoveCount, final.TotalPairs, final.TimerText)
	}

	if games > 1 {
		fmt.Fprintf(cmd.Root().Writer, "average: %.1f moves over %d games\n", float64(totalMoves)/float64(games), games)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play memory match games with a perfect memory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("GAME_URL")},
			&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "difficulty to play (easy, medium, hard)"},
			&cli.StringFlag{Name: "continue", Usage: "resume an existing session by ID"},
			&cli.StringFlag{Name: "session-file", Value: ".session", Usage: "file remembering the session between runs"},
			&cli.IntFlag{Name: "games", Aliases: []string{"n"}, Value: 1, Usage: "games to play"},
			&cli.IntFlag{Name: "max-moves", Value: 500, Usage: "give up a game after this many moves"},
			&cli.DurationFlag{Name: "poll", Value: 100 * time.Millisecond, Usage: "wait between retries while a mismatch is showing"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if cmd.Bool("v") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return ctx, nil
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Error().Err(err).Msg("autoplay failed")
		os.Exit(1)
	}
}
