// Package config provides difficulty management for the memory match game.
//
// The config package handles:
//   - Loading difficulty configurations from JSON files
//   - Validation through engine.ValidateGameConfig
//   - Default difficulty selection
//   - Discovery and listing, smallest grid first
//
// Configuration Format:
//
// Each file in the configs directory defines one difficulty:
//
//	{
//	  "name": "medium",
//	  "description": "4x4 grid, eight pairs",
//	  "grid_size": 4,
//	  "mismatch_delay_ms": 1000,
//	  "messages": {
//	    "welcome": "Find all the pairs!",
//	    "moves": "Moves: %d",
//	    "timer": "Time: %02d:%02d",
//	    "game_over": "Game Over! You won in %d moves and %d seconds."
//	  }
//	}
//
// The file name (without .json) is the difficulty ID used when creating a
// session or starting a new game.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	hard, err := manager.LoadConfig("hard")
//	defaultConfig := manager.GetDefault()
package config
