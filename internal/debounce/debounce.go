// Package debounce delays a function until its caller has been quiet for a
// fixed window.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once, wait after the last Call, with the argument of that
// last Call. At most one invocation is pending at any time.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New returns a Debouncer for fn. A non-positive wait still defers fn to its
// own goroutine.
func New[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	if wait < 0 {
		wait = 0
	}
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Call cancels any pending invocation and schedules a new one with arg.
// Calls after Stop are ignored.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen, arg) })
}

// fire runs fn unless a later Call or Stop superseded this timer. A timer
// whose Stop lost the race still sees a newer generation and bails out.
func (d *Debouncer[T]) fire(gen uint64, arg T) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn(arg)
}

// Pending reports whether an invocation is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending invocation and disables the Debouncer. It is safe
// to call more than once.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
