package engine

// Display is the surface the game renders to. Calls happen after the game
// has released its lock, so implementations may read game state.
type Display interface {
	RenderCard(index int, card Card)
	SetTimerText(text string)
	SetMessageText(text string)
	SetGridDimensions(size int)
	ShowGameOver(text string)
}

// Audio plays feedback cues. Calls are fire-and-forget.
type Audio interface {
	PlayMatch()
	PlayMismatch()
	PlayWin()
}

// Observer is notified once per state-changing transition. The persistence
// bridge and stats recorder hang off this hook.
type Observer interface {
	GameEvent(event Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(event Event)

// GameEvent implements Observer
func (f ObserverFunc) GameEvent(event Event) { f(event) }

// NopDisplay discards all rendering
type NopDisplay struct{}

func (NopDisplay) RenderCard(int, Card)  {}
func (NopDisplay) SetTimerText(string)   {}
func (NopDisplay) SetMessageText(string) {}
func (NopDisplay) SetGridDimensions(int) {}
func (NopDisplay) ShowGameOver(string)   {}

// NopAudio discards all cues
type NopAudio struct{}

func (NopAudio) PlayMatch()    {}
func (NopAudio) PlayMismatch() {}
func (NopAudio) PlayWin()      {}
