package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCardIndex = errors.New("card index out of range")
	ErrPairPending      = errors.New("two cards are already face up")
	ErrCardMatched      = errors.New("card is already matched")
	ErrCardFaceUp       = errors.New("card is already face up")
	ErrGameWon          = errors.New("game is already won")
)

// Game owns one board and the flip/match state machine, the move counter
// and the elapsed-time timer. All methods are safe for concurrent use;
// transitions are serialized by an internal lock and every deferred
// callback carries the board generation it was scheduled for.
//
// Surface and observer calls reach their targets in transition order. When
// another goroutine is still delivering an earlier transition, a method can
// return before its own calls have been made. Observers must not call the
// mutating methods (Flip, Start, Restore) of the game they observe.
type Game struct {
	mu        sync.Mutex
	dispatch  dispatcher
	config    *GameConfig
	scheduler Scheduler
	rng       *rand.Rand
	display   Display
	audio     Audio
	observers []Observer

	gameID     string
	generation uint64
	board      *Board
	pending    []int
	moveCount  int
	elapsed    int
	status     Status
	phase      Phase
	message    string
	timerText  string

	tick       Handle
	timerSeq   uint64
	timerOn    bool
	resolve    Handle
	resolveFor [2]int
}

// Option configures a Game
type Option func(*Game)

// WithScheduler sets the scheduler used for the timer and mismatch delay
func WithScheduler(s Scheduler) Option {
	return func(g *Game) { g.scheduler = s }
}

// WithRand sets the random source used to shuffle boards
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithDisplay sets the display surface
func WithDisplay(d Display) Option {
	return func(g *Game) { g.display = d }
}

// WithAudio sets the audio feedback sink
func WithAudio(a Audio) Option {
	return func(g *Game) { g.audio = a }
}

// WithObserver registers a state-change observer
func WithObserver(o Observer) Option {
	return func(g *Game) { g.observers = append(g.observers, o) }
}

// New creates a game for the given difficulty with a freshly dealt board.
// The timer does not run until Start or Restore is called.
func New(config *GameConfig, opts ...Option) (*Game, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	g := &Game{
		config:    config,
		scheduler: RealScheduler{},
		display:   NopDisplay{},
		audio:     NopAudio{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	board, err := GenerateBoard(config.GridSize, g.rng)
	if err != nil {
		return nil, err
	}
	g.resetLocked(board)
	return g, nil
}

// SetDisplay replaces the display surface
func (g *Game) SetDisplay(d Display) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d == nil {
		d = NopDisplay{}
	}
	g.display = d
}

// SetAudio replaces the audio sink
func (g *Game) SetAudio(a Audio) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if a == nil {
		a = NopAudio{}
	}
	g.audio = a
}

// AddObserver registers an additional observer
func (g *Game) AddObserver(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// Config returns the active difficulty configuration
func (g *Game) Config() *GameConfig {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.config
}

// Start deals a new board and starts the timer. Any pending mismatch
// resolution or tick from the previous board is cancelled.
func (g *Game) Start() (*GameState, error) {
	g.mu.Lock()
	board, err := GenerateBoard(g.config.GridSize, g.rng)
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}

	g.cancelLocked()
	g.resetLocked(board)
	g.startTimerLocked()

	fx := g.redrawLocked()
	fx.observe(g.eventLocked(EventNewGame))
	state := g.stateLocked()
	g.unlockAndRun(fx)
	return state, nil
}

// StartWithConfig switches difficulty and starts a new game
func (g *Game) StartWithConfig(config *GameConfig) (*GameState, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.config = config
	g.mu.Unlock()
	return g.Start()
}

// Flip turns a card face up. Rejected flips return an error and leave the
// board unchanged.
func (g *Game) Flip(index int) (*FlipResult, error) {
	g.mu.Lock()

	if err := g.checkFlipLocked(index); err != nil {
		g.mu.Unlock()
		return nil, err
	}

	card := &g.board.Cards[index]
	card.Flipped = true
	g.pending = append(g.pending, index)

	fx := g.effectsLocked()
	fx.render(g.display, index, *card)
	fx.observe(g.eventLocked(EventFlip, index))

	outcome := EventFlip
	if len(g.pending) == MaxPendingCards {
		outcome = g.evaluateLocked(fx)
	}

	result := &FlipResult{
		Card:      g.board.Cards[index],
		Outcome:   outcome,
		MoveCount: g.moveCount,
		Phase:     g.phase,
		Status:    g.status,
	}
	g.unlockAndRun(fx)
	return result, nil
}

func (g *Game) checkFlipLocked(index int) error {
	if g.status == StatusWon {
		return ErrGameWon
	}
	if index < 0 || index >= len(g.board.Cards) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidCardIndex, index, len(g.board.Cards))
	}
	if len(g.pending) >= MaxPendingCards {
		return ErrPairPending
	}
	card := g.board.Cards[index]
	if card.Matched {
		return ErrCardMatched
	}
	if card.Flipped {
		return ErrCardFaceUp
	}
	return nil
}

// evaluateLocked compares the two pending cards. The move counter moves
// here, once per pair, before the outcome is known.
func (g *Game) evaluateLocked(fx *effects) EventType {
	g.phase = PhaseEvaluating
	g.moveCount++
	g.message = g.config.FormatMoves(g.moveCount)
	fx.message(g.display, g.message)

	a, b := g.pending[0], g.pending[1]
	first, second := &g.board.Cards[a], &g.board.Cards[b]

	if first.Value != second.Value {
		g.phase = PhaseResolving
		g.scheduleResolveLocked(a, b)
		fx.observe(g.eventLocked(EventMismatch, a, b))
		return EventMismatch
	}

	first.Matched = true
	second.Matched = true
	g.pending = nil
	g.phase = PhaseIdle
	fx.render(g.display, a, *first)
	fx.render(g.display, b, *second)
	fx.add(g.audio.PlayMatch)
	fx.observe(g.eventLocked(EventMatch, a, b))

	if g.checkWinLocked(fx) {
		return EventWon
	}
	return EventMatch
}

// checkWinLocked transitions to Won once every card is matched
func (g *Game) checkWinLocked(fx *effects) bool {
	if CountMatched(g.board.Cards) != len(g.board.Cards) {
		return false
	}

	g.status = StatusWon
	g.stopTimerLocked()
	g.message = g.config.FormatGameOver(g.moveCount, g.elapsed)

	display := g.display
	text := g.message
	fx.add(func() { display.ShowGameOver(text) })
	fx.add(g.audio.PlayWin)
	fx.observe(g.eventLocked(EventWon))
	return true
}

func (g *Game) scheduleResolveLocked(a, b int) {
	gen := g.generation
	g.resolveFor = [2]int{a, b}
	g.resolve = g.scheduler.AfterFunc(g.config.MismatchDelay(), func() {
		g.resolveMismatch(gen, a, b)
	})
}

// resolveMismatch flips a mismatched pair back face down. Callbacks from a
// replaced board are dropped.
func (g *Game) resolveMismatch(gen uint64, a, b int) {
	g.mu.Lock()
	if gen != g.generation || g.phase != PhaseResolving || g.resolveFor != [2]int{a, b} {
		g.mu.Unlock()
		log.Debug().Uint64("generation", gen).Int("a", a).Int("b", b).Msg("dropping stale mismatch resolution")
		return
	}

	g.board.Cards[a].Flipped = false
	g.board.Cards[b].Flipped = false
	g.pending = nil
	g.phase = PhaseIdle
	g.resolve = nil

	fx := g.effectsLocked()
	fx.render(g.display, a, g.board.Cards[a])
	fx.render(g.display, b, g.board.Cards[b])
	fx.add(g.audio.PlayMismatch)
	fx.observe(g.eventLocked(EventResolved, a, b))
	g.unlockAndRun(fx)
}

// StartTimer starts the one-second tick, replacing any running tick
func (g *Game) StartTimer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status == StatusWon {
		return
	}
	g.startTimerLocked()
}

// StopTimer stops the tick. Safe to call when no timer runs.
func (g *Game) StopTimer() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopTimerLocked()
}

func (g *Game) startTimerLocked() {
	g.stopTimerLocked()
	g.timerOn = true
	g.armTickLocked()
}

func (g *Game) armTickLocked() {
	seq := g.timerSeq
	gen := g.generation
	g.tick = g.scheduler.AfterFunc(g.config.TickInterval(), func() {
		g.onTick(gen, seq)
	})
}

func (g *Game) stopTimerLocked() {
	if g.tick != nil {
		g.tick.Stop()
		g.tick = nil
	}
	g.timerOn = false
	g.timerSeq++
}

func (g *Game) onTick(gen, seq uint64) {
	g.mu.Lock()
	if gen != g.generation || seq != g.timerSeq || !g.timerOn || g.status == StatusWon {
		g.mu.Unlock()
		return
	}

	g.elapsed++
	g.timerText = g.config.FormatTimer(g.elapsed)
	g.armTickLocked()

	fx := g.effectsLocked()
	display := g.display
	text := g.timerText
	fx.add(func() { display.SetTimerText(text) })
	fx.observe(g.eventLocked(EventTick))
	g.unlockAndRun(fx)
}

// Close cancels the timer and any pending mismatch resolution. Callbacks
// already in flight see a new generation and do nothing.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelLocked()
	g.generation++
}

func (g *Game) cancelLocked() {
	g.stopTimerLocked()
	if g.resolve != nil {
		g.resolve.Stop()
		g.resolve = nil
	}
}

// resetLocked installs a fresh board under a new generation
func (g *Game) resetLocked(board *Board) {
	g.generation++
	g.gameID = uuid.NewString()
	g.board = board
	g.pending = nil
	g.moveCount = 0
	g.elapsed = 0
	g.status = StatusInProgress
	g.phase = PhaseIdle
	g.message = g.config.WelcomeMessage()
	g.timerText = g.config.FormatTimer(0)
	g.resolveFor = [2]int{-1, -1}
}

// redrawLocked queues a full repaint of the display
func (g *Game) redrawLocked() *effects {
	fx := g.effectsLocked()
	display := g.display
	size := g.board.GridSize
	message := g.message
	timer := g.timerText
	fx.add(func() { display.SetGridDimensions(size) })
	for i, c := range g.board.Cards {
		fx.render(display, i, c)
	}
	fx.add(func() {
		display.SetMessageText(message)
		display.SetTimerText(timer)
	})
	return fx
}

// State returns a copy of the current game state
func (g *Game) State() *GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Game) stateLocked() *GameState {
	cards := make([]Card, len(g.board.Cards))
	copy(cards, g.board.Cards)
	pending := make([]int, len(g.pending))
	copy(pending, g.pending)

	return &GameState{
		GameID:         g.gameID,
		Generation:     g.generation,
		Difficulty:     g.config.Name,
		GridSize:       g.board.GridSize,
		Cards:          cards,
		PendingCards:   pending,
		MoveCount:      g.moveCount,
		ElapsedSeconds: g.elapsed,
		Status:         g.status,
		Phase:          g.phase,
		Message:        g.message,
		TimerText:      g.timerText,
		MatchedPairs:   CountMatched(g.board.Cards) / 2,
		TotalPairs:     len(g.board.Cards) / 2,
		TimerRunning:   g.timerOn,
	}
}

// IsWon reports whether every pair has been matched
func (g *Game) IsWon() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status == StatusWon
}

// MoveCount returns the number of pairs compared so far
func (g *Game) MoveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moveCount
}

// ElapsedSeconds returns the elapsed game time
func (g *Game) ElapsedSeconds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.elapsed
}

// GameID returns the identity of the current board
func (g *Game) GameID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gameID
}

// Generation returns the current board generation
func (g *Game) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

func (g *Game) eventLocked(t EventType, cards ...int) Event {
	return Event{
		Type:           t,
		GameID:         g.gameID,
		Generation:     g.generation,
		Difficulty:     g.config.Name,
		GridSize:       g.board.GridSize,
		Cards:          cards,
		MoveCount:      g.moveCount,
		ElapsedSeconds: g.elapsed,
		Timestamp:      time.Now(),
	}
}

// effects collects surface and observer calls made while the lock is held;
// they run after it is released, in order.
type effects struct {
	observers []Observer
	fns       []func()
}

// effectsLocked starts a batch bound to the current observer set
func (g *Game) effectsLocked() *effects {
	observers := make([]Observer, len(g.observers))
	copy(observers, g.observers)
	return &effects{observers: observers}
}

func (fx *effects) add(f func()) {
	fx.fns = append(fx.fns, f)
}

func (fx *effects) render(d Display, index int, card Card) {
	fx.add(func() { d.RenderCard(index, card) })
}

func (fx *effects) message(d Display, text string) {
	fx.add(func() { d.SetMessageText(text) })
}

func (fx *effects) observe(ev Event) {
	observers := fx.observers
	fx.add(func() {
		for _, o := range observers {
			o.GameEvent(ev)
		}
	})
}

func (fx *effects) run() {
	for _, f := range fx.fns {
		f()
	}
}

// dispatcher runs effect batches one at a time in the order they were
// queued. Whichever goroutine finds it idle drains the queue.
type dispatcher struct {
	mu       sync.Mutex
	queue    []*effects
	draining bool
}

// enqueue adds fx and reports whether the caller must drain
func (d *dispatcher) enqueue(fx *effects) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, fx)
	if d.draining {
		return false
	}
	d.draining = true
	return true
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.draining = false
			d.mu.Unlock()
			return
		}
		fx := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fx.run()
	}
}

// unlockAndRun queues fx while g.mu is still held, so batches queue in
// transition order, then releases the lock and delivers
func (g *Game) unlockAndRun(fx *effects) {
	drain := g.dispatch.enqueue(fx)
	g.mu.Unlock()
	if drain {
		g.dispatch.drain()
	}
}
