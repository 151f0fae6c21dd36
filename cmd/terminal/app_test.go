package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/memory-match-game/game/config"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/session"
	"github.com/wricardo/memory-match-game/stats"
	"github.com/wricardo/memory-match-game/storage"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	screen.SetSize(80, 25)
	t.Cleanup(screen.Fini)
	return screen
}

// screenText returns the visible screen as lines of text
func screenText(screen tcell.SimulationScreen) string {
	cells, width, height := screen.GetContents()
	var b strings.Builder
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			runes := cells[y*width+x].Runes
			if len(runes) == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(runes[0])
		}
		b.WriteRune('\n')
	}
	return b.String()
}

type harness struct {
	screen      tcell.SimulationScreen
	app         *App
	scheduler   *engine.ManualScheduler
	configs     *config.Manager
	persistence *session.StorePersistence
	beeps       int
}

func newHarness(t *testing.T, difficulty string, persistence *session.StorePersistence, opts ...engine.Option) *harness {
	t.Helper()
	configs, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to load configs: %v", err)
	}
	if persistence == nil {
		persistence, err = session.NewStorePersistence(storage.NewMemory(), nil)
		if err != nil {
			t.Fatalf("Failed to create persistence: %v", err)
		}
	}

	h := &harness{
		screen:      newScreen(t),
		scheduler:   engine.NewManualScheduler(),
		configs:     configs,
		persistence: persistence,
	}
	opts = append(opts, engine.WithScheduler(h.scheduler))
	h.app, err = NewApp(h.screen, configs, persistence, difficulty, false, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	h.app.surface.beep = func() { h.beeps++ }
	t.Cleanup(h.app.Close)
	return h
}

func (h *harness) press(r rune) {
	h.app.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
}

// flipAt moves the cursor to index and flips it
func (h *harness) flipAt(index int) {
	size := h.app.game.State().GridSize
	for h.app.surface.Cursor()/size > index/size {
		h.press('k')
	}
	for h.app.surface.Cursor()/size < index/size {
		h.press('j')
	}
	for h.app.surface.Cursor()%size > index%size {
		h.press('h')
	}
	for h.app.surface.Cursor()%size < index%size {
		h.press('l')
	}
	h.press(' ')
}

func pairsOf(state *engine.GameState) map[string][]int {
	pairs := map[string][]int{}
	for _, c := range state.Cards {
		pairs[c.Value] = append(pairs[c.Value], c.Index)
	}
	return pairs
}

func TestNewAppDrawsFreshBoard(t *testing.T) {
	h := newHarness(t, "easy", nil)

	text := screenText(h.screen)
	for _, want := range []string{"Memory Match (easy)", "Find the two pairs!", "Time: 00:00", " ? ", helpText} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q on screen:\n%s", want, text)
		}
	}
	if strings.Count(text, " ? ") != 4 {
		t.Errorf("Expected 4 face-down cards:\n%s", text)
	}
}

func TestUnknownDifficulty(t *testing.T) {
	configs, _ := config.NewManager("../../configs")
	persistence, _ := session.NewStorePersistence(storage.NewMemory(), nil)
	if _, err := NewApp(newScreen(t), configs, persistence, "nightmare", false); err == nil {
		t.Error("Expected error for unknown difficulty")
	}
}

func TestCursorStaysOnGrid(t *testing.T) {
	h := newHarness(t, "easy", nil)

	h.press('k')
	h.press('h')
	if h.app.surface.Cursor() != 0 {
		t.Errorf("Expected cursor at 0, got %d", h.app.surface.Cursor())
	}

	h.app.HandleKey(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	h.app.HandleKey(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	h.press('l')
	h.press('j')
	if h.app.surface.Cursor() != 3 {
		t.Errorf("Expected cursor at 3, got %d", h.app.surface.Cursor())
	}
}

func TestPlayToWin(t *testing.T) {
	h := newHarness(t, "easy", nil)

	for _, pair := range pairsOf(h.app.game.State()) {
		h.flipAt(pair[0])
		h.flipAt(pair[1])
	}

	if !h.app.game.IsWon() {
		t.Fatal("Expected game to be won")
	}
	text := screenText(h.screen)
	if !strings.Contains(text, "You won in 2 moves") {
		t.Errorf("Expected game-over banner:\n%s", text)
	}
	if strings.Contains(text, " ? ") {
		t.Errorf("Expected every card face up:\n%s", text)
	}
	if h.beeps != 4 {
		t.Errorf("Expected 4 beeps (two matches, win), got %d", h.beeps)
	}
}

func TestMismatchFlipsBackAfterDelay(t *testing.T) {
	h := newHarness(t, "easy", nil)

	state := h.app.game.State()
	other := -1
	for _, c := range state.Cards[1:] {
		if c.Value != state.Cards[0].Value {
			other = c.Index
			break
		}
	}
	h.flipAt(0)
	h.flipAt(other)

	if strings.Count(screenText(h.screen), " ? ") != 2 {
		t.Errorf("Expected two cards face up during the delay:\n%s", screenText(h.screen))
	}

	// a third flip during the delay is ignored
	h.press(' ')
	if h.app.game.MoveCount() != 1 {
		t.Errorf("Expected 1 move, got %d", h.app.game.MoveCount())
	}

	h.scheduler.Advance(time.Second)
	if strings.Count(screenText(h.screen), " ? ") != 4 {
		t.Errorf("Expected cards face down after the delay:\n%s", screenText(h.screen))
	}
	if h.beeps != 0 {
		t.Errorf("Expected no beeps on mismatch, got %d", h.beeps)
	}
}

func TestTimerRedraws(t *testing.T) {
	h := newHarness(t, "easy", nil)

	h.scheduler.Advance(3 * time.Second)
	if !strings.Contains(screenText(h.screen), "Time: 00:03") {
		t.Errorf("Expected timer on screen:\n%s", screenText(h.screen))
	}
}

func TestDifficultyKeys(t *testing.T) {
	h := newHarness(t, "easy", nil)

	h.press('2')
	state := h.app.game.State()
	if state.Difficulty != "medium" || state.GridSize != 4 {
		t.Errorf("Expected medium 4x4, got %s %dx%d", state.Difficulty, state.GridSize, state.GridSize)
	}
	if !strings.Contains(screenText(h.screen), "Memory Match (medium)") {
		t.Errorf("Expected title to change:\n%s", screenText(h.screen))
	}

	id := state.GameID
	h.press('n')
	if h.app.game.GameID() == id {
		t.Error("Expected n to deal a new game")
	}
	if h.app.game.State().Difficulty != "medium" {
		t.Error("Expected n to keep the difficulty")
	}
}

func TestQuitKeys(t *testing.T) {
	h := newHarness(t, "easy", nil)

	if !h.app.HandleKey(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("Expected Esc to quit")
	}
	if !h.app.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("Expected q to quit")
	}
	if h.app.HandleKey(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("Expected x to be ignored")
	}
}

func TestSaveAndRestore(t *testing.T) {
	persistence, err := session.NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}

	first := newHarness(t, "medium", persistence)
	pair := pairsOf(first.app.game.State())["A"]
	first.flipAt(pair[0])
	first.flipAt(pair[1])
	first.flipAt(firstUnmatched(first.app.game.State()))
	if err := first.app.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	saved := first.app.game.State()

	// the saved difficulty wins over the requested one
	second := newHarness(t, "easy", persistence)
	restored := second.app.game.State()
	if restored.GameID != saved.GameID || restored.Difficulty != "medium" {
		t.Errorf("Expected saved medium game %s, got %s %s", saved.GameID, restored.Difficulty, restored.GameID)
	}
	if restored.MoveCount != 1 || restored.MatchedPairs != 1 {
		t.Errorf("Expected 1 move and 1 pair, got %d moves %d pairs", restored.MoveCount, restored.MatchedPairs)
	}
	if len(restored.PendingCards) != 1 {
		t.Errorf("Expected the half move to survive, got %v", restored.PendingCards)
	}
	if !strings.Contains(screenText(second.screen), "[A]") {
		t.Errorf("Expected matched pair on screen:\n%s", screenText(second.screen))
	}

	configs, _ := config.NewManager("../../configs")
	fresh, err := NewApp(newScreen(t), configs, persistence, "easy", true, engine.WithScheduler(engine.NewManualScheduler()))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer fresh.Close()
	if fresh.game.State().Difficulty != "easy" || fresh.game.MoveCount() != 0 {
		t.Error("Expected --new to ignore the saved game")
	}
}

func TestMovesAreSavedAsTheyHappen(t *testing.T) {
	h := newHarness(t, "easy", nil)

	state := h.app.game.State()
	pair := pairsOf(state)[state.Cards[0].Value]
	h.flipAt(pair[0])
	h.flipAt(pair[1])
	h.flipAt(firstUnmatched(h.app.game.State()))

	// nothing called Save; a crash here keeps the game
	snap, err := h.persistence.LoadResume(resumeSlot)
	if err != nil {
		t.Fatalf("Expected the game on disk without quitting: %v", err)
	}
	faceUp := 0
	for _, c := range snap.Cards {
		if c.Flipped && !c.Matched {
			faceUp++
		}
	}
	if snap.MoveCount != 1 || faceUp != 1 {
		t.Errorf("Expected 1 move and a half move saved, got %d moves %d face up", snap.MoveCount, faceUp)
	}

	h.scheduler.Advance(2 * time.Second)
	snap, _ = h.persistence.LoadResume(resumeSlot)
	if snap.ElapsedSeconds != 2 {
		t.Errorf("Expected ticks saved, got %d seconds", snap.ElapsedSeconds)
	}
}

func TestWinsAreRecordedInStats(t *testing.T) {
	kv := storage.NewMemory()
	tracker, err := stats.Open(filepath.Join(t.TempDir(), "stats.db"), kv)
	if err != nil {
		t.Fatalf("stats.Open failed: %v", err)
	}
	defer tracker.Close()

	h := newHarness(t, "easy", nil, engine.WithObserver(tracker.Observer(resumeSlot)))
	for _, pair := range pairsOf(h.app.game.State()) {
		h.flipAt(pair[0])
		h.flipAt(pair[1])
	}
	if !h.app.game.IsWon() {
		t.Fatal("Expected game to be won")
	}

	ctx := context.Background()
	board, err := tracker.Leaderboard(ctx, "easy", 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board) != 1 || board[0].Moves != 2 || board[0].SessionID != resumeSlot {
		t.Errorf("Expected one 2-move terminal win, got %+v", board)
	}
	moves, err := tracker.LifetimeMoves(ctx)
	if err != nil || moves != 2 {
		t.Errorf("Expected 2 lifetime moves, got %d (%v)", moves, err)
	}
}

func firstUnmatched(state *engine.GameState) int {
	for _, c := range state.Cards {
		if !c.Matched {
			return c.Index
		}
	}
	return -1
}

func TestRunSavesOnQuit(t *testing.T) {
	persistence, _ := session.NewStorePersistence(storage.NewMemory(), nil)
	h := newHarness(t, "easy", persistence)

	done := make(chan error, 1)
	go func() { done <- h.app.Run(context.Background()) }()

	h.screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	h.screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after q")
	}

	snap, err := persistence.LoadResume(resumeSlot)
	if err != nil {
		t.Fatalf("Expected saved game: %v", err)
	}
	if snap.GameID != h.app.game.GameID() {
		t.Errorf("Expected snapshot of %s, got %s", h.app.game.GameID(), snap.GameID)
	}
	if !snap.Cards[0].Flipped {
		t.Error("Expected the flipped card in the snapshot")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	h := newHarness(t, "easy", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.app.Run(ctx); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if _, err := h.persistence.LoadResume(resumeSlot); err != nil {
		t.Errorf("Expected save on cancelled run: %v", err)
	}
}

func TestCommandMissingConfigDir(t *testing.T) {
	cmd := newCommand()
	err := cmd.Run(context.Background(), []string{"terminal", "--config-dir", "/non/existent", "--sessions-dir", t.TempDir()})
	if err == nil {
		t.Error("Expected error for missing config dir")
	}
}

func TestCommandQuits(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	old := screenFactory
	screenFactory = func() (tcell.Screen, error) { return screen, nil }
	defer func() { screenFactory = old }()

	dir := t.TempDir()
	statsDB := filepath.Join(t.TempDir(), "stats.db")
	done := make(chan error, 1)
	go func() {
		done <- newCommand().Run(context.Background(), []string{"terminal", "--config-dir", "../../configs", "--sessions-dir", dir,
			"--stats-db", statsDB, "-d", "hard"})
	}()

	// keys are queued until the screen is initialised and polled
	time.Sleep(100 * time.Millisecond)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Command failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Command did not exit")
	}

	persistence, _ := session.NewFilePersistence(dir)
	snap, err := persistence.LoadResume(resumeSlot)
	if err != nil {
		t.Fatalf("Expected saved game on disk: %v", err)
	}
	if snap.Difficulty != "hard" || snap.GridSize != 6 {
		t.Errorf("Expected hard 6x6 snapshot, got %s %d", snap.Difficulty, snap.GridSize)
	}
	if _, err := os.Stat(statsDB); err != nil {
		t.Errorf("Expected stats database to be created: %v", err)
	}
}
