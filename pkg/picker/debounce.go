package picker

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer is a trailing debounce polled from the refresh loop: it becomes
// due once wait has passed since the latest Trigger. A newer Trigger pushes
// the deadline back.
type Debouncer struct {
	clock   clockwork.Clock
	wait    time.Duration
	last    time.Time
	pending bool
}

func NewDebouncer(clock clockwork.Clock, wait time.Duration) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{clock: clock, wait: wait}
}

func (d *Debouncer) Trigger() {
	d.last = d.clock.Now()
	d.pending = true
}

// Due reports whether the pending action should run now, and consumes it
// if so.
func (d *Debouncer) Due() bool {
	if !d.pending || d.clock.Since(d.last) < d.wait {
		return false
	}
	d.pending = false
	return true
}

func (d *Debouncer) Pending() bool { return d.pending }
