// Command analyze prints lifetime statistics from the stats database:
// per-difficulty totals, the leaderboard and the lifetime move counter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/memory-match-game/stats"
	"github.com/wricardo/memory-match-game/storage"
)

// Report is everything analyze prints
type Report struct {
	LifetimeMoves int64          `json:"lifetime_moves"`
	Totals        []stats.Totals `json:"totals"`
	Difficulty    string         `json:"difficulty,omitempty"`
	Leaderboard   []stats.Result `json:"leaderboard"`
}

func buildReport(ctx context.Context, tracker *stats.Tracker, difficulty string, limit int) (*Report, error) {
	lifetime, err := tracker.LifetimeMoves(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := tracker.Totals(ctx)
	if err != nil {
		return nil, err
	}
	board, err := tracker.Leaderboard(ctx, difficulty, limit)
	if err != nil {
		return nil, err
	}
	return &Report{
		LifetimeMoves: lifetime,
		Totals:        totals,
		Difficulty:    difficulty,
		Leaderboard:   board,
	}, nil
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Lifetime moves: %d\n", r.LifetimeMoves)

	fmt.Fprintf(w, "\n=== Totals ===\n")
	if len(r.Totals) == 0 {
		fmt.Fprintln(w, "No completed games yet")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DIFFICULTY\tGAMES\tBEST MOVES\tBEST TIME\tAVG MOVES\tAVG TIME")
		for _, t := range r.Totals {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.1f\t%s\n",
				t.Difficulty, t.Games, t.BestMoves, clock(t.BestSeconds), t.AvgMoves, clock(int(t.AvgSeconds+0.5)))
		}
		tw.Flush()
	}

	title := "all difficulties"
	if r.Difficulty != "" {
		title = r.Difficulty
	}
	fmt.Fprintf(w, "\n=== Leaderboard (%s) ===\n", title)
	if len(r.Leaderboard) == 0 {
		fmt.Fprintln(w, "No entries")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMOVES\tTIME\tDIFFICULTY\tSESSION\tDATE")
	for i, res := range r.Leaderboard {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			i+1, res.Moves, clock(res.ElapsedSeconds), res.Difficulty, res.SessionID, res.CompletedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

// openCounterStore opens the store holding the lifetime move counter, the
// same durable store the server uses
func openCounterStore(ctx context.Context, redisURL, sessionsDir string) (storage.Store, func() error, error) {
	if redisURL != "" {
		rs, err := storage.NewRedisStore(ctx, redisURL, "memory-match")
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	}
	if _, err := os.Stat(sessionsDir); err != nil {
		// no counter without a sessions directory
		return nil, func() error { return nil }, nil
	}
	fs, err := storage.NewFileStore(sessionsDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() error { return nil }, nil
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "print completed-game statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "stats-db", Value: "data/stats.db", Usage: "SQLite stats database", Sources: cli.EnvVars("STATS_DB")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "directory holding the lifetime move counter", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "redis-url", Usage: "read the lifetime move counter from Redis", Sources: cli.EnvVars("REDIS_URL")},
			&cli.StringFlag{Name: "difficulty", Aliases: []string{"d"}, Usage: "restrict the leaderboard to one difficulty"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "leaderboard entries"},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of tables"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := os.Stat(cmd.String("stats-db")); err != nil {
				return fmt.Errorf("stats database: %w", err)
			}

			kv, closeKV, err := openCounterStore(ctx, cmd.String("redis-url"), cmd.String("sessions-dir"))
			if err != nil {
				return fmt.Errorf("open counter store: %w", err)
			}
			defer closeKV()

			tracker, err := stats.Open(cmd.String("stats-db"), kv)
			if err != nil {
				return err
			}
			defer tracker.Close()

			report, err := buildReport(ctx, tracker, cmd.String("difficulty"), int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, report)
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
