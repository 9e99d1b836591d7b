package engine

import (
	"sync"
	"time"
)

// CancelFunc stops a scheduled callback. Safe to call more than once; calling
// it after the callback has fired is a no-op.
type CancelFunc func()

// Scheduler abstracts timer creation so the session's scripted delays (shadow
// test, advisory sequence, decision timeout, sampler ticks) can be driven
// synchronously in tests.
type Scheduler interface {
	// AfterFunc runs fn once after d elapses.
	AfterFunc(d time.Duration, fn func()) CancelFunc
	// TickFunc runs fn repeatedly every interval until cancelled.
	TickFunc(interval time.Duration, fn func()) CancelFunc
}

type clockScheduler struct{}

// NewScheduler returns the wall-clock Scheduler used in production.
func NewScheduler() Scheduler {
	return clockScheduler{}
}

func (clockScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

func (clockScheduler) TickFunc(interval time.Duration, fn func()) CancelFunc {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
