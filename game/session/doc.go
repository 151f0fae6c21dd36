// Package session provides session management for the memory match game.
//
// A session owns one running engine.Game and survives across games: a new
// game replaces the board but keeps the session. Sessions use 4-character
// hex IDs and are looked up case-insensitively.
//
// Persistence:
//
// StorePersistence keeps each session in two scopes built on storage.Store:
//
//	durable   session:{id}  session record (difficulty, timestamps)
//	durable   resume:{id}   explicit save of one game
//	volatile  game:{id}     the current game, rewritten on every transition
//
// When a session is loaded the manager restores the volatile snapshot if
// there is one, otherwise the resume snapshot, otherwise it deals a new
// game. Starting a new game clears the volatile snapshot first.
//
// Usage:
//
//	p, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(p, session.WithConfigs(configs))
//
//	sess, err := manager.Create("", config)
//	sess.Game.Flip(3)
//
//	manager.SaveResume(sess.ID)
//	manager.Restore(sess.ID)
package session
