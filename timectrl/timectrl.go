package timectrl

import (
	"sync"
	"time"
)

// StepScheduler drives the simulation's autorun mode: it invokes its
// listeners on a fixed wall-clock tick until stopped. Steps themselves are
// not preemptible, so stopping only prevents future ticks from being
// delivered; a tick in flight completes.
type StepScheduler struct {
	mu        sync.Mutex
	tick      time.Duration
	listeners []func(time.Time)

	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewStepScheduler constructs a scheduler with the given tick interval.
func NewStepScheduler(tick time.Duration) *StepScheduler {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &StepScheduler{tick: tick}
}

// Tick returns the configured tick interval.
func (s *StepScheduler) Tick() time.Duration { return s.tick }

// AddListener registers a callback invoked on every tick. Register before
// Start; registration is not synchronised with a running loop.
func (s *StepScheduler) AddListener(fn func(time.Time)) {
	if fn == nil {
		return
	}
	s.listeners = append(s.listeners, fn)
}

// Start begins delivering ticks in a background goroutine. It is a no-op
// when already running.
func (s *StepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stop, s.done)
}

// Stop halts tick delivery and waits for the loop goroutine to exit. It is
// a no-op when not running.
func (s *StepScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the scheduler is delivering ticks.
func (s *StepScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunFor delivers ticks for the given duration, then stops. It returns a
// channel closed when the run finishes. Used by hosts that want a bounded
// batch run instead of open-ended autorun.
func (s *StepScheduler) RunFor(duration time.Duration) <-chan struct{} {
	finished := make(chan struct{})
	s.Start()
	go func() {
		defer close(finished)
		timer := time.NewTimer(duration)
		defer timer.Stop()
		<-timer.C
		s.Stop()
	}()
	return finished
}

func (s *StepScheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			for _, fn := range s.listeners {
				fn(now)
			}
		}
	}
}
