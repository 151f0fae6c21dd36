package main

import "sort"

// Memory is a perfect-memory player. It only learns values from cards it
// has seen face up and never forgets one.
type Memory struct {
	total   int
	seen    map[int]string
	matched map[int]bool
}

func NewMemory(cards int) *Memory {
	return &Memory{
		total:   cards,
		seen:    make(map[int]string),
		matched: make(map[int]bool),
	}
}

// Reset forgets everything, for a new board
func (m *Memory) Reset(cards int) {
	*m = *NewMemory(cards)
}

// Saw records a card revealed by a flip
func (m *Memory) Saw(index int, value string) {
	if value != "" {
		m.seen[index] = value
	}
}

// Matched removes a pair from play
func (m *Memory) Matched(a, b int) {
	m.matched[a] = true
	m.matched[b] = true
}

// Remaining is the number of unmatched cards
func (m *Memory) Remaining() int {
	return m.total - len(m.matched)
}

// knownPair returns two unmatched indexes already seen with the same value
func (m *Memory) knownPair() (int, int, bool) {
	byValue := make(map[string]int)
	for _, i := range m.sortedSeen() {
		if m.matched[i] {
			continue
		}
		v := m.seen[i]
		if j, ok := byValue[v]; ok {
			return j, i, true
		}
		byValue[v] = i
	}
	return 0, 0, false
}

func (m *Memory) sortedSeen() []int {
	idx := make([]int, 0, len(m.seen))
	for i := range m.seen {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// unseen returns the lowest unmatched index never seen, skipping exclude
func (m *Memory) unseen(exclude int) (int, bool) {
	for i := 0; i < m.total; i++ {
		if i == exclude || m.matched[i] {
			continue
		}
		if _, ok := m.seen[i]; !ok {
			return i, true
		}
	}
	return 0, false
}

// First picks the first card of a move: half of a known pair when there is
// one, otherwise a card never seen.
func (m *Memory) First() (int, bool) {
	if a, _, ok := m.knownPair(); ok {
		return a, true
	}
	if i, ok := m.unseen(-1); ok {
		return i, true
	}
	// everything seen but nothing pairs up: only possible after a missed update
	for _, i := range m.sortedSeen() {
		if !m.matched[i] {
			return i, true
		}
	}
	return 0, false
}

// Second picks the partner for first once its value is known
func (m *Memory) Second(first int, value string) (int, bool) {
	for _, i := range m.sortedSeen() {
		if i != first && !m.matched[i] && m.seen[i] == value {
			return i, true
		}
	}
	if i, ok := m.unseen(first); ok {
		return i, true
	}
	for _, i := range m.sortedSeen() {
		if i != first && !m.matched[i] {
			return i, true
		}
	}
	return 0, false
}
