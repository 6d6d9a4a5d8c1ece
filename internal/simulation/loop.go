// Package simulation drives a game: the wall-clock turn loop, the runner that turns
// intents into one tick of updates, and replay verification.
package simulation

import (
	"context"
	"sync"
	"time"
)

// maxCatchUp bounds how many turns run back to back after a stall. Time beyond that
// is dropped so a slow host degrades to a slower game instead of a burst.
const maxCatchUp = 5

// StepFunc advances the game by one turn. Returning false stops the loop.
type StepFunc func(step time.Duration) bool

// Loop drives a fixed timestep turn loop at the configured interval.
type Loop struct {
	step     time.Duration
	stepFunc StepFunc
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewLoop configures a loop that runs one turn per interval.
func NewLoop(interval time.Duration, step StepFunc) *Loop {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if step == nil {
		step = func(time.Duration) bool { return true }
	}
	return &Loop{step: interval, stepFunc: step}
}

// Start begins ticking until the context is cancelled, Stop is invoked, or the step
// function asks to stop.
func (l *Loop) Start(ctx context.Context) {
	if l == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.mu.Lock()
	l.cancel, l.done = cancel, done
	l.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		ticker := time.NewTicker(l.step)
		defer ticker.Stop()
		last := time.Now()
		accumulator := time.Duration(0)
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				//1.- Accumulate elapsed time and run fixed steps while catching up.
				accumulator += now.Sub(last)
				last = now
				if limit := maxCatchUp * l.step; accumulator > limit {
					accumulator = limit
				}
				for accumulator >= l.step {
					if !l.stepFunc(l.step) {
						return
					}
					accumulator -= l.step
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the goroutine to exit.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Done is closed once the loop goroutine exits. It is nil before Start.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// StepDuration exposes the configured timestep for testing.
func (l *Loop) StepDuration() time.Duration {
	if l == nil {
		return 0
	}
	return l.step
}
