package engine

import (
	"testing"
	"time"
)

func TestManualSchedulerOrder(t *testing.T) {
	s := NewManualScheduler()
	var order []string

	s.AfterFunc(2*time.Second, func() { order = append(order, "two") })
	s.AfterFunc(1*time.Second, func() { order = append(order, "one-a") })
	s.AfterFunc(1*time.Second, func() { order = append(order, "one-b") })

	s.Advance(1500 * time.Millisecond)
	if len(order) != 2 || order[0] != "one-a" || order[1] != "one-b" {
		t.Fatalf("Unexpected order after 1.5s: %v", order)
	}

	s.Advance(time.Second)
	if len(order) != 3 || order[2] != "two" {
		t.Fatalf("Unexpected order after 2.5s: %v", order)
	}
	if s.Now() != 2500*time.Millisecond {
		t.Errorf("Expected virtual time 2.5s, got %v", s.Now())
	}
}

func TestManualSchedulerStop(t *testing.T) {
	s := NewManualScheduler()
	fired := false
	h := s.AfterFunc(time.Second, func() { fired = true })

	if !h.Stop() {
		t.Error("First Stop should report true")
	}
	if h.Stop() {
		t.Error("Second Stop should report false")
	}

	s.Advance(2 * time.Second)
	if fired {
		t.Error("Stopped callback fired")
	}
	if s.Pending() != 0 {
		t.Errorf("Expected no pending callbacks, got %d", s.Pending())
	}
}

func TestManualSchedulerRescheduleWithinWindow(t *testing.T) {
	s := NewManualScheduler()
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		s.AfterFunc(time.Second, tick)
	}
	s.AfterFunc(time.Second, tick)

	s.Advance(5 * time.Second)
	if ticks != 5 {
		t.Errorf("Expected 5 ticks, got %d", ticks)
	}
	if s.Pending() != 1 {
		t.Errorf("Expected the next tick to be pending, got %d", s.Pending())
	}
}

func TestRealSchedulerFires(t *testing.T) {
	done := make(chan struct{})
	RealScheduler{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RealScheduler callback did not fire")
	}
}
