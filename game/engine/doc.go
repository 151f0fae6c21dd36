// Package engine provides the core logic of the memory match game.
//
// The engine package implements:
//   - Board generation (first N/2 letters, duplicated, Fisher-Yates shuffled)
//   - The flip/match state machine with its mismatch delay
//   - The elapsed-time timer
//   - Snapshots for save and restore
//   - Difficulty configuration loading and validation
//
// Core Types:
//
// Game owns one board at a time. Each board carries a generation number;
// deferred callbacks (mismatch resolution, timer ticks) are tagged with the
// generation they were scheduled for and are dropped if the board has been
// replaced in the meantime. Time is driven by a Scheduler so tests can use
// ManualScheduler instead of the wall clock.
//
// Display, Audio and Observer are the collaborators a game talks to. They are
// always invoked after the game has released its internal lock.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/medium.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game, err := engine.New(config, engine.WithDisplay(display))
//	if err != nil {
//		log.Fatal(err)
//	}
//	game.Start()
//
//	result, err := game.Flip(3)
//	if errors.Is(err, engine.ErrPairPending) {
//		// wait for the mismatch to resolve
//	}
//
// Game Rules:
//
// Cards are turned face up two at a time. A matching pair stays face up; a
// mismatch flips back after a short delay, during which no other card can be
// turned. Every compared pair counts as one move. The game is won when all
// pairs are matched, which stops the timer.
package engine
