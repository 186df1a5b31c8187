// Package watch notifies on changes to the shiplift workspace with debounce
// support, so bursts of filesystem events render once.
package watch

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers into a single callback invocation. The
// callback receives how many triggers it stands in for.
type Debouncer struct {
	window   time.Duration
	callback func(coalesced int)

	mu      sync.Mutex
	timer   *time.Timer
	pending int
}

// NewDebouncer creates a debouncer with the given window duration.
func NewDebouncer(window time.Duration, callback func(coalesced int)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger resets the debounce timer. The callback fires after the window
// elapses with no further triggers.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending++
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	coalesced := d.pending
	d.pending = 0
	d.mu.Unlock()

	if coalesced > 0 {
		d.callback(coalesced)
	}
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = 0
	if d.timer != nil {
		d.timer.Stop()
	}
}
