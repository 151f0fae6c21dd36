package main

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/memory-match-game/game/engine"
)

// Layout
const (
	cellWidth = 6
	gridTop   = 4
	gridLeft  = 2
)

var (
	styleText    = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleHidden  = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleFaceUp  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleMatched = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleBanner  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen).Bold(true)
	styleHelp    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

const helpText = "arrows/hjkl move  space flip  n new  1/2/3 difficulty  q quit"

// Surface renders the game onto a tcell screen. It implements
// engine.Display and engine.Audio and keeps its own copy of what is on
// screen, so timer ticks from the scheduler goroutine can repaint safely.
type Surface struct {
	screen tcell.Screen
	beep   func()

	mu         sync.Mutex
	difficulty string
	gridSize   int
	cards      []engine.Card
	cursor     int
	message    string
	timer      string
	gameOver   string
}

// NewSurface creates a surface drawing to screen
func NewSurface(screen tcell.Screen) *Surface {
	s := &Surface{screen: screen}
	s.beep = func() { screen.Beep() }
	return s
}

// SetGridDimensions implements engine.Display. A new grid clears the
// game-over banner and clamps the cursor.
func (s *Surface) SetGridDimensions(size int) {
	s.mu.Lock()
	s.gridSize = size
	s.cards = make([]engine.Card, size*size)
	for i := range s.cards {
		s.cards[i].Index = i
	}
	s.gameOver = ""
	if s.cursor >= len(s.cards) {
		s.cursor = 0
	}
	s.mu.Unlock()
	s.draw()
}

// RenderCard implements engine.Display
func (s *Surface) RenderCard(index int, card engine.Card) {
	s.mu.Lock()
	if index >= 0 && index < len(s.cards) {
		s.cards[index] = card
	}
	s.mu.Unlock()
	s.draw()
}

// SetTimerText implements engine.Display
func (s *Surface) SetTimerText(text string) {
	s.mu.Lock()
	s.timer = text
	s.mu.Unlock()
	s.draw()
}

// SetMessageText implements engine.Display
func (s *Surface) SetMessageText(text string) {
	s.mu.Lock()
	s.message = text
	s.mu.Unlock()
	s.draw()
}

// ShowGameOver implements engine.Display
func (s *Surface) ShowGameOver(text string) {
	s.mu.Lock()
	s.gameOver = text
	s.mu.Unlock()
	s.draw()
}

// PlayMatch implements engine.Audio
func (s *Surface) PlayMatch() { s.beep() }

// PlayMismatch implements engine.Audio. The terminal bell has one tone, so
// only matches and wins ring it.
func (s *Surface) PlayMismatch() {}

// PlayWin implements engine.Audio
func (s *Surface) PlayWin() {
	s.beep()
	s.beep()
}

// SetDifficulty changes the title line
func (s *Surface) SetDifficulty(name string) {
	s.mu.Lock()
	s.difficulty = name
	s.mu.Unlock()
	s.draw()
}

// Cursor returns the index of the selected card
func (s *Surface) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// MoveCursor moves the selection by dx columns and dy rows, stopping at
// the edges of the grid
func (s *Surface) MoveCursor(dx, dy int) {
	s.mu.Lock()
	if s.gridSize > 0 {
		row, col := s.cursor/s.gridSize, s.cursor%s.gridSize
		row = clamp(row+dy, 0, s.gridSize-1)
		col = clamp(col+dx, 0, s.gridSize-1)
		if i := row*s.gridSize + col; i < len(s.cards) {
			s.cursor = i
		}
	}
	s.mu.Unlock()
	s.draw()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// label is what a card shows on screen
func label(card engine.Card) (string, tcell.Style) {
	switch {
	case card.Matched:
		return "[" + card.Value + "]", styleMatched
	case card.Flipped:
		return " " + card.Value + " ", styleFaceUp
	default:
		return " ? ", styleHidden
	}
}

func (s *Surface) draw() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Clear()
	drawText(s.screen, gridLeft, 0, styleTitle, "Memory Match ("+s.difficulty+")")
	drawText(s.screen, gridLeft, 1, styleText, s.message)
	drawText(s.screen, gridLeft, 2, styleText, s.timer)

	for i, card := range s.cards {
		row, col := i/s.gridSize, i%s.gridSize
		text, style := label(card)
		if i == s.cursor {
			style = style.Reverse(true)
		}
		drawText(s.screen, gridLeft+col*cellWidth, gridTop+row*2, style, text)
	}

	bottom := gridTop + s.gridSize*2
	if s.gameOver != "" {
		drawText(s.screen, gridLeft, bottom, styleBanner, " "+s.gameOver+" ")
		bottom += 2
	}
	drawText(s.screen, gridLeft, bottom, styleHelp, helpText)
	s.screen.Show()
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
