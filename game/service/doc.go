// Package service provides the business logic layer for the memory match game.
//
// The service package implements:
//   - Multi-session game management
//   - Difficulty selection and configuration management
//   - Flip processing with rejection codes
//   - Explicit save and restore of the current game
//   - Stats queries (lifetime moves, leaderboards)
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, persistence and lifecycle.
// ConfigManager manages difficulty configuration loading and validation.
// SurfaceProvider and StatsRecorder are optional collaborators attached to each
// session's game the first time the service touches it.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// game engine. Each session owns its own engine.Game; the service never
// mutates game state directly, it only calls into the engine and reports what
// happened.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "easy")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Flip(ctx, info.ID, 0)
//
// Session Management:
//
// Sessions are identified by 4-character IDs and hold independent games. A
// session survives restarts through the session manager's persistence layer.
package service
