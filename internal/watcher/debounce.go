package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of Trigger() calls into a single callback
// fired after delay has elapsed with no further triggers arriving.
// Reconstructed from its call sites in the teacher's daemon
// (daemon_watcher.go, daemon_event_loop.go called
// NewDebouncer/Trigger/Cancel, but its defining file was not present in
// the retrieved pack) — one Debouncer instance guards one timer, so the
// watcher keeps one per watched path.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	callback func()
	timer    *time.Timer
}

// NewDebouncer returns a Debouncer that fires callback once delay has
// elapsed since the last Trigger call.
func NewDebouncer(delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{delay: delay, callback: callback}
}

// Trigger resets the settle timer. If no further Trigger arrives within
// delay, callback fires on its own goroutine.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.callback)
}

// Fire immediately invokes the callback and cancels any pending timer;
// used for events that must short-circuit the settle window (a Deleted
// event, per spec §4.4).
func (d *Debouncer) Fire() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.callback()
}

// Cancel stops any pending timer without firing the callback.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
