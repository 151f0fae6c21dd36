package engine

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs deferred callbacks. The game uses it for the mismatch
// delay and the one-second timer tick.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Handle
}

// Handle cancels a scheduled callback
type Handle interface {
	// Stop prevents the callback from firing. It is safe to call more than once.
	Stop() bool
}

// RealScheduler schedules callbacks on the Go runtime timer
type RealScheduler struct{}

// AfterFunc implements Scheduler
func (RealScheduler) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}

// ManualScheduler is a virtual clock. Callbacks fire only from Advance, in
// the order their deadlines expire (ties in scheduling order).
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTask
}

type manualTask struct {
	s        *ManualScheduler
	deadline time.Duration
	seq      int
	f        func()
	stopped  bool
}

// NewManualScheduler creates a virtual clock at time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &manualTask{s: s, deadline: s.now + d, seq: s.seq, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Stop implements Handle
func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	for i, p := range t.s.pending {
		if p == t {
			t.s.pending = append(t.s.pending[:i], t.s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Advance moves virtual time forward by d, running every callback that
// comes due. Callbacks scheduled while advancing run too if they fall
// inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		sort.SliceStable(s.pending, func(i, j int) bool {
			if s.pending[i].deadline == s.pending[j].deadline {
				return s.pending[i].seq < s.pending[j].seq
			}
			return s.pending[i].deadline < s.pending[j].deadline
		})
		if len(s.pending) == 0 || s.pending[0].deadline > target {
			s.now = target
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		next.stopped = true
		s.now = next.deadline
		s.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of callbacks waiting to fire
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Now returns the current virtual time
func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}
