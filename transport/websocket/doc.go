// Package websocket is the browser-facing display surface and input source
// for game sessions.
//
// Each session's game renders through Hub.Surface, which turns display and
// audio calls into JSON events for every client watching that session:
//
//	{"session_id":"ab12","event":"render_card","data":{"index":3,"card":{...}}}
//	{"session_id":"ab12","event":"timer","data":{"text":"Time: 00:07"}}
//	{"session_id":"ab12","event":"audio","data":{"cue":"mismatch"}}
//
// Other events are message, grid, game_over, state and flip_result. Several
// queued events may share one frame, separated by newlines.
//
// Clients connect with ?session=ab12 and receive the current state first.
// Inbound actions are routed to the game service:
//
//	{"action":"flip","index":3}
//	{"action":"new_game","difficulty":"hard"}
//	{"action":"state"} | {"action":"save"} | {"action":"restore"}
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	svc := service.NewGameService(sessions, configs, service.WithSurfaces(hub))
//	hub.SetService(svc)
package websocket
