package sched

import (
	"testing"
	"time"
)

func TestDebounceKeepsLastTask(t *testing.T) {
	clock := &Manual{}
	d := NewDebounce(clock, 100*time.Millisecond)
	var fired []string
	d.Schedule(func() { fired = append(fired, "first") })
	clock.Advance(60 * time.Millisecond)
	d.Schedule(func() { fired = append(fired, "second") })
	clock.Advance(60 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("debounced task fired early: %v", fired)
	}
	if !d.Pending() {
		t.Fatalf("expected pending task")
	}
	clock.Advance(40 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "second" {
		t.Fatalf("expected only the last task, got %v", fired)
	}
	if d.Pending() || clock.Pending() != 0 {
		t.Fatalf("expected no pending tasks")
	}
}

func TestDebounceStop(t *testing.T) {
	clock := &Manual{}
	d := NewDebounce(clock, time.Second)
	ran := false
	d.Schedule(func() { ran = true })
	if !d.Stop() {
		t.Fatalf("expected stop to cancel the pending task")
	}
	clock.Advance(2 * time.Second)
	if ran {
		t.Fatalf("stopped task ran")
	}
	if d.Stop() {
		t.Fatalf("second stop must report nothing pending")
	}
}

func TestManualRunsInDueOrder(t *testing.T) {
	clock := &Manual{}
	var order []int
	clock.AfterFunc(30*time.Millisecond, func() { order = append(order, 3) })
	clock.AfterFunc(10*time.Millisecond, func() {
		order = append(order, 1)
		clock.AfterFunc(10*time.Millisecond, func() { order = append(order, 2) })
	})
	clock.Advance(50 * time.Millisecond)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestTimersFire(t *testing.T) {
	done := make(chan struct{})
	Timers{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timer did not fire")
	}
}
