package websocket

import (
	"github.com/wricardo/memory-match-game/game/engine"
)

// Audio cue names carried by audio events
const (
	CueMatch    = "match"
	CueMismatch = "mismatch"
	CueWin      = "win"
)

// AudioData is the payload of an audio event
type AudioData struct {
	Cue string `json:"cue"`
}

// GridData is the payload of a grid event
type GridData struct {
	Size int `json:"size"`
}

// sessionSurface forwards one session's display and audio calls to every
// client watching it
type sessionSurface struct {
	hub       *Hub
	sessionID string
}

// Surface returns the display and audio for a session's game
func (h *Hub) Surface(sessionID string) (engine.Display, engine.Audio) {
	s := &sessionSurface{hub: h, sessionID: sessionID}
	return s, s
}

func (s *sessionSurface) RenderCard(index int, card engine.Card) {
	s.hub.Publish(s.sessionID, EventRenderCard, CardData{Index: index, Card: card})
}

func (s *sessionSurface) SetTimerText(text string) {
	s.hub.Publish(s.sessionID, EventTimer, TextData{Text: text})
}

func (s *sessionSurface) SetMessageText(text string) {
	s.hub.Publish(s.sessionID, EventMessage, TextData{Text: text})
}

func (s *sessionSurface) SetGridDimensions(size int) {
	s.hub.Publish(s.sessionID, EventGrid, GridData{Size: size})
}

func (s *sessionSurface) ShowGameOver(text string) {
	s.hub.Publish(s.sessionID, EventGameOver, TextData{Text: text})
}

func (s *sessionSurface) PlayMatch() {
	s.hub.Publish(s.sessionID, EventAudio, AudioData{Cue: CueMatch})
}

func (s *sessionSurface) PlayMismatch() {
	s.hub.Publish(s.sessionID, EventAudio, AudioData{Cue: CueMismatch})
}

func (s *sessionSurface) PlayWin() {
	s.hub.Publish(s.sessionID, EventAudio, AudioData{Cue: CueWin})
}
