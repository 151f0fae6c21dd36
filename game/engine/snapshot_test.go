package engine

import (
	"math/rand"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := newTestGame(t, 4)
	g.Start()
	g.clock.Advance(7 * time.Second)

	pair := pairs(g.State().Cards)["C"]
	mustFlip(t, g, pair[0])
	mustFlip(t, g, pair[1])
	single := -1
	for _, c := range g.State().Cards {
		if !c.Matched {
			single = c.Index
			break
		}
	}
	mustFlip(t, g, single)

	data, err := EncodeSnapshot(g.Snapshot())
	if err != nil {
		t.Fatalf("EncodeSnapshot failed: %v", err)
	}
	snap := DecodeSnapshot(data)
	if snap == nil {
		t.Fatal("DecodeSnapshot returned nil")
	}

	restored := newTestGame(t, 4)
	state := restored.Restore(snap)
	original := g.State()

	if state.MoveCount != original.MoveCount {
		t.Errorf("Move count: expected %d, got %d", original.MoveCount, state.MoveCount)
	}
	if state.ElapsedSeconds != original.ElapsedSeconds {
		t.Errorf("Elapsed: expected %d, got %d", original.ElapsedSeconds, state.ElapsedSeconds)
	}
	if state.GameID != original.GameID {
		t.Errorf("Game ID: expected %s, got %s", original.GameID, state.GameID)
	}
	for i := range original.Cards {
		if state.Cards[i] != original.Cards[i] {
			t.Errorf("Card %d: expected %+v, got %+v", i, original.Cards[i], state.Cards[i])
		}
	}
	if len(state.PendingCards) != 1 || state.PendingCards[0] != single {
		t.Errorf("Expected pending [%d], got %v", single, state.PendingCards)
	}
	if !state.TimerRunning {
		t.Error("Restore should start the timer")
	}

	// the restored game plays on from where it was saved
	restored.clock.Advance(time.Second)
	if restored.ElapsedSeconds() != original.ElapsedSeconds+1 {
		t.Errorf("Expected timer to resume from %d, got %d", original.ElapsedSeconds, restored.ElapsedSeconds())
	}
}

func TestDecodeSnapshotMalformedFields(t *testing.T) {
	data := []byte(`{"move_count":"lots","elapsed_seconds":12,"grid_size":4,"cards":5,"status":"won"}`)
	snap := DecodeSnapshot(data)
	if snap == nil {
		t.Fatal("Partial snapshot should decode")
	}
	if snap.MoveCount != 0 {
		t.Errorf("Malformed move_count should default to 0, got %d", snap.MoveCount)
	}
	if snap.ElapsedSeconds != 12 {
		t.Errorf("Expected elapsed 12, got %d", snap.ElapsedSeconds)
	}
	if snap.GridSize != 4 {
		t.Errorf("Expected grid size 4, got %d", snap.GridSize)
	}
	if snap.Cards != nil {
		t.Errorf("Malformed cards should default to nil, got %v", snap.Cards)
	}
}

func TestDecodeSnapshotNotJSON(t *testing.T) {
	for _, input := range []string{"", "garbage", "[1,2,3]", "42"} {
		if snap := DecodeSnapshot([]byte(input)); snap != nil {
			t.Errorf("DecodeSnapshot(%q) should return nil, got %+v", input, snap)
		}
	}
}

func TestDecodeSnapshotEmptyObject(t *testing.T) {
	snap := DecodeSnapshot([]byte(`{}`))
	if snap == nil {
		t.Fatal("Empty object should decode")
	}

	g := newTestGame(t, 4)
	state := g.Restore(snap)
	if len(state.Cards) != 16 || state.MoveCount != 0 || state.ElapsedSeconds != 0 {
		t.Errorf("Empty snapshot should restore a fresh default game, got %+v", state)
	}
}

func TestRestoreInvalidBoardDealsFresh(t *testing.T) {
	g := newTestGame(t, 4)
	snap := &Snapshot{
		GridSize:       2,
		MoveCount:      4,
		ElapsedSeconds: 30,
		Cards:          []Card{{Index: 0, Value: "A"}, {Index: 1, Value: "A"}, {Index: 2, Value: "A"}, {Index: 3, Value: "A"}},
	}

	state := g.Restore(snap)
	if state.GridSize != 2 || !IsValidBoard(2, state.Cards) {
		t.Errorf("Expected a fresh valid 2x2 board, got %+v", state.Cards)
	}
	if state.MoveCount != 4 || state.ElapsedSeconds != 30 {
		t.Errorf("Counters should be kept, got moves=%d elapsed=%d", state.MoveCount, state.ElapsedSeconds)
	}
}

func TestRestoreSanitizesCards(t *testing.T) {
	board, _ := GenerateBoard(4, rand.New(rand.NewSource(11)))
	cards := board.Cards
	p := pairs(cards)

	// matched but face down, and an orphan matched card
	cards[p["A"][0]].Matched = true
	cards[p["A"][1]].Matched = true
	cards[p["B"][0]].Matched = true
	cards[p["B"][0]].Flipped = true
	// three more face-up cards
	cards[p["C"][0]].Flipped = true
	cards[p["D"][0]].Flipped = true

	g := newTestGame(t, 4)
	state := g.Restore(&Snapshot{GridSize: 4, Cards: cards})

	for _, i := range p["A"] {
		if !state.Cards[i].Flipped {
			t.Errorf("Matched card %d should be face up", i)
		}
	}
	if state.Cards[p["B"][0]].Matched {
		t.Error("Orphan matched flag should be cleared")
	}
	for _, i := range []int{p["B"][0], p["C"][0], p["D"][0]} {
		if state.Cards[i].Flipped {
			t.Errorf("Card %d should be turned down when more than two are pending", i)
		}
	}
	if len(state.PendingCards) != 0 {
		t.Errorf("Expected no pending cards, got %v", state.PendingCards)
	}
}

func TestRestoreMidMismatch(t *testing.T) {
	board, _ := GenerateBoard(4, rand.New(rand.NewSource(12)))
	a, b := mismatch(board.Cards)
	board.Cards[a].Flipped = true
	board.Cards[b].Flipped = true

	g := newTestGame(t, 4)
	state := g.Restore(&Snapshot{GridSize: 4, MoveCount: 3, Cards: board.Cards})
	if state.Phase != PhaseResolving {
		t.Fatalf("Expected resolving phase, got %s", state.Phase)
	}
	if _, err := g.Flip(a ^ 1); err == nil {
		t.Error("Flips should be rejected while the restored mismatch resolves")
	}

	g.clock.Advance(time.Second)
	state = g.State()
	if state.Cards[a].Flipped || state.Cards[b].Flipped {
		t.Error("Restored mismatch should flip back after the delay")
	}
	if state.MoveCount != 3 {
		t.Errorf("Resuming a mismatch must not count a move, got %d", state.MoveCount)
	}
}

func TestRestoreWonGame(t *testing.T) {
	board, _ := GenerateBoard(2, rand.New(rand.NewSource(13)))
	for i := range board.Cards {
		board.Cards[i].Matched = true
	}

	g := newTestGame(t, 4)
	state := g.Restore(&Snapshot{GridSize: 2, MoveCount: 2, ElapsedSeconds: 9, Cards: board.Cards})
	if state.Status != StatusWon {
		t.Fatalf("Expected won, got %s", state.Status)
	}
	if state.TimerRunning {
		t.Error("Timer should not run for a won game")
	}
	if g.display.gameOver != "Game Over! You won in 2 moves and 9 seconds." {
		t.Errorf("Unexpected game over text %q", g.display.gameOver)
	}
	if g.audio.win != 0 || g.events.count(EventWon) != 0 {
		t.Error("Restoring a won game must not replay the win")
	}

	g.clock.Advance(5 * time.Second)
	if g.ElapsedSeconds() != 9 {
		t.Errorf("Elapsed changed after restoring a won game: %d", g.ElapsedSeconds())
	}
}

func TestRestoreCancelsPendingMismatch(t *testing.T) {
	g := newTestGame(t, 4)
	g.Start()
	a, b := mismatch(g.State().Cards)
	mustFlip(t, g, a)
	mustFlip(t, g, b)

	snap := g.Snapshot()
	for i := range snap.Cards {
		snap.Cards[i].Flipped = false
	}
	g.Restore(snap)
	mustFlip(t, g, a)

	g.clock.Advance(2 * time.Second)
	if !g.State().Cards[a].Flipped {
		t.Error("Mismatch from before the restore flipped a card afterwards")
	}
}
