// Package scheduler provides the cancellable-timer capability the session
// engine runs on. The engine never owns a tick loop of its own: countdowns
// and turn clocks are registered against a Scheduler and every token is
// cancelled when the owning session concludes.
package scheduler

import (
	"sync"
	"time"
)

// CancelToken stops a pending or repeating callback. Cancel is idempotent.
// A callback already executing may still finish; callers guard against stale
// fires with their own state checks.
type CancelToken interface {
	Cancel()
}

// Scheduler abstracts the host clock.
type Scheduler interface {
	// After runs fn once after d elapses.
	After(d time.Duration, fn func()) CancelToken
	// Every runs fn repeatedly at the given interval until cancelled.
	Every(interval time.Duration, fn func()) CancelToken
}

// Wall is a Scheduler backed by the runtime timers.
type Wall struct{}

// NewWall returns a wall-clock scheduler.
func NewWall() *Wall {
	return &Wall{}
}

type afterToken struct {
	timer *time.Timer
}

func (t *afterToken) Cancel() {
	t.timer.Stop()
}

// After implements Scheduler.
func (w *Wall) After(d time.Duration, fn func()) CancelToken {
	return &afterToken{timer: time.AfterFunc(d, fn)}
}

type everyToken struct {
	stop chan struct{}
	once sync.Once
}

func (t *everyToken) Cancel() {
	t.once.Do(func() { close(t.stop) })
}

// Every implements Scheduler.
func (w *Wall) Every(interval time.Duration, fn func()) CancelToken {
	tok := &everyToken{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-tok.stop:
				return
			}
		}
	}()
	return tok
}
