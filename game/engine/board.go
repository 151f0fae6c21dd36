package engine

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrInvalidGridSize  = errors.New("grid size must be positive")
	ErrOddCardCount     = errors.New("grid size yields an odd number of cards")
	ErrAlphabetExceeded = errors.New("grid size needs more face values than the alphabet holds")
)

// ValidateGridSize checks that gridSize can produce a full board of pairs
func ValidateGridSize(gridSize int) error {
	if gridSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidGridSize, gridSize)
	}
	n := gridSize * gridSize
	if n%2 != 0 {
		return fmt.Errorf("%w: %dx%d = %d cards", ErrOddCardCount, gridSize, gridSize, n)
	}
	if n/2 > len(Alphabet) {
		return fmt.Errorf("%w: %d pairs needed, %d letters available", ErrAlphabetExceeded, n/2, len(Alphabet))
	}
	return nil
}

// GenerateBoard deals a new shuffled board of gridSize x gridSize cards
func GenerateBoard(gridSize int, rng *rand.Rand) (*Board, error) {
	if err := ValidateGridSize(gridSize); err != nil {
		return nil, err
	}

	values := CardValues(gridSize * gridSize)
	Shuffle(values, rng)

	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{Index: i, Value: v}
	}

	return &Board{GridSize: gridSize, Cards: cards}, nil
}

// CardValues returns the first n/2 letters of the alphabet, twice, in order
func CardValues(n int) []string {
	pairs := n / 2
	values := make([]string, 0, pairs*2)
	for i := 0; i < pairs; i++ {
		values = append(values, string(Alphabet[i]))
	}
	return append(values, values...)
}

// Shuffle applies a Fisher-Yates shuffle in place
func Shuffle(values []string, rng *rand.Rand) {
	for i := len(values) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}

// IsValidBoard reports whether cards form a complete board for gridSize:
// right count, indexes matching positions, exactly two copies of each of the
// first N/2 letters.
func IsValidBoard(gridSize int, cards []Card) bool {
	if ValidateGridSize(gridSize) != nil {
		return false
	}
	n := gridSize * gridSize
	if len(cards) != n {
		return false
	}

	counts := make(map[string]int, n/2)
	for i, c := range cards {
		if c.Index != i {
			return false
		}
		counts[c.Value]++
	}
	for _, v := range CardValues(n)[:n/2] {
		if counts[v] != 2 {
			return false
		}
	}
	return len(counts) == n/2
}

// CountMatched counts matched cards
func CountMatched(cards []Card) int {
	count := 0
	for _, c := range cards {
		if c.Matched {
			count++
		}
	}
	return count
}

// pendingIndices returns indexes of flipped-unmatched cards in board order
func pendingIndices(cards []Card) []int {
	var out []int
	for _, c := range cards {
		if c.Flipped && !c.Matched {
			out = append(out, c.Index)
		}
	}
	return out
}
