package timectrl

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerDeliversTicks(t *testing.T) {
	s := NewStepScheduler(5 * time.Millisecond)

	var ticks atomic.Int64
	s.AddListener(func(time.Time) { ticks.Add(1) })

	<-s.RunFor(40 * time.Millisecond)

	if got := ticks.Load(); got < 1 {
		t.Fatalf("expected at least one tick, got %d", got)
	}
	if s.Running() {
		t.Fatal("scheduler should be stopped after RunFor completes")
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s := NewStepScheduler(5 * time.Millisecond)
	s.AddListener(func(time.Time) {})

	s.Stop() // not running: no-op

	s.Start()
	if !s.Running() {
		t.Fatal("scheduler should report running after Start")
	}
	s.Start() // already running: no-op

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should report stopped after Stop")
	}
}

func TestSchedulerStopWaitsForLoopExit(t *testing.T) {
	s := NewStepScheduler(time.Millisecond)

	var inFlight atomic.Bool
	s.AddListener(func(time.Time) {
		inFlight.Store(true)
		time.Sleep(3 * time.Millisecond)
		inFlight.Store(false)
	})

	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop()

	// Stop returns only after the loop goroutine has exited, so no
	// listener can still be running.
	if inFlight.Load() {
		t.Fatal("listener still in flight after Stop returned")
	}
}

func TestSchedulerDefaultTick(t *testing.T) {
	if got := NewStepScheduler(0).Tick(); got != 500*time.Millisecond {
		t.Fatalf("default tick = %v, want 500ms", got)
	}
	if got := NewStepScheduler(-time.Second).Tick(); got != 500*time.Millisecond {
		t.Fatalf("negative tick = %v, want 500ms", got)
	}
	if got := NewStepScheduler(time.Second).Tick(); got != time.Second {
		t.Fatalf("tick = %v, want 1s", got)
	}
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	s := NewStepScheduler(5 * time.Millisecond)

	var ticks atomic.Int64
	s.AddListener(func(time.Time) { ticks.Add(1) })

	<-s.RunFor(25 * time.Millisecond)
	first := ticks.Load()

	<-s.RunFor(25 * time.Millisecond)
	if ticks.Load() <= first {
		t.Fatal("scheduler should deliver ticks again after a restart")
	}
}
