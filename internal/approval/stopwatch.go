package approval

import (
	"context"
	"sync"
	"time"
)

// Stopwatch measures elapsed time toward a total budget, excluding any
// interval during which the engine is paused waiting on a human approval
// (§4.D "elicitation stopwatch"). Pauses are reference-counted: nested
// PauseFor calls each increment a counter, and the clock only resumes once
// the counter returns to zero.
type Stopwatch struct {
	mu         sync.Mutex
	budget     time.Duration
	elapsed    time.Duration // accumulated running time, frozen while paused
	runningAt  time.Time     // zero value means not currently running
	pauseCount int

	cancelOnce sync.Once
	cancelCh   chan struct{}
	timer      *time.Timer
}

// NewStopwatch creates a stopwatch with total budget and starts its clock
// running immediately.
func NewStopwatch(budget time.Duration) *Stopwatch {
	s := &Stopwatch{
		budget:   budget,
		cancelCh: make(chan struct{}),
	}
	s.runningAt = time.Now()
	s.timer = time.AfterFunc(budget, s.fire)
	return s
}

func (s *Stopwatch) fire() {
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

// CancellationToken returns a channel that closes once accumulated elapsed
// running time reaches the budget.
func (s *Stopwatch) CancellationToken() <-chan struct{} {
	return s.cancelCh
}

// PauseFor pauses the clock for the duration of fn, resuming it afterward.
// Nested/concurrent calls are reference-counted: the clock stays paused
// until every outstanding PauseFor has returned.
func (s *Stopwatch) PauseFor(ctx context.Context, fn func(context.Context) error) error {
	s.pause()
	defer s.resume()
	return fn(ctx)
}

func (s *Stopwatch) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseCount == 0 && !s.runningAt.IsZero() {
		s.elapsed += time.Since(s.runningAt)
		s.runningAt = time.Time{}
		s.timer.Stop()
	}
	s.pauseCount++
}

func (s *Stopwatch) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseCount--
	if s.pauseCount <= 0 {
		s.pauseCount = 0
		s.runningAt = time.Now()
		remaining := s.budget - s.elapsed
		if remaining <= 0 {
			go s.fire()
			return
		}
		s.timer = time.AfterFunc(remaining, s.fire)
	}
}

// Elapsed returns the accumulated running time, excluding any time
// currently spent paused.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := s.elapsed
	if !s.runningAt.IsZero() {
		elapsed += time.Since(s.runningAt)
	}
	return elapsed
}

// Stop releases the underlying timer; safe to call multiple times.
func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}
