package hostmap

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/anrid/covid-scope/pkg/logger"
)

var ErrStopped = errors.New("loop stopped")

// Loop owns the only goroutine allowed to touch the map and everything
// attached to it. Frames run on a ticker; other goroutines get in with Do.
type Loop struct {
	m        *Map
	clock    clockwork.Clock
	interval time.Duration

	reqs    chan func()
	stopped chan struct{}
}

func NewLoop(m *Map, clock clockwork.Clock, interval time.Duration) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{
		m:        m,
		clock:    clock,
		interval: interval,
		reqs:     make(chan func()),
		stopped:  make(chan struct{}),
	}
}

// Run blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	ticker := l.clock.NewTicker(l.interval)
	defer ticker.Stop()

	logger.Debugf(ctx, "host loop started, frame every %v", l.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			l.m.Frame()
		case fn := <-l.reqs:
			fn()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	req := func() {
		defer close(done)
		fn()
	}

	select {
	case l.reqs <- req:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
