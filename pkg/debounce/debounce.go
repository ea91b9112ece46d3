package debounce

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSuperseded is returned to a call replaced by a newer call on the same key.
var ErrSuperseded = errors.New("debounce: superseded by a newer call")

type pendingCall struct {
	superseded chan struct{}
}

// Debouncer coalesces bursts of calls per key into a single trailing call.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*pendingCall
}

// New returns a debouncer firing after delay of quiet per key.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*pendingCall)}
}

// Delay reports the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Do waits for the quiet period and runs fn unless a newer call for key arrives first,
// in which case it returns ErrSuperseded without running fn.
func (d *Debouncer) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	call := d.replace(key)

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-call.superseded:
		return ErrSuperseded
	case <-ctx.Done():
		d.release(key, call)
		return ctx.Err()
	case <-timer.C:
	}

	d.mu.Lock()
	if d.pending[key] != call {
		d.mu.Unlock()
		return ErrSuperseded
	}
	delete(d.pending, key)
	d.mu.Unlock()

	return fn(ctx)
}

// Now supersedes any pending call for key and runs fn immediately.
func (d *Debouncer) Now(ctx context.Context, key string, fn func(context.Context) error) error {
	call := d.replace(key)
	d.release(key, call)
	return fn(ctx)
}

func (d *Debouncer) replace(key string) *pendingCall {
	call := &pendingCall{superseded: make(chan struct{})}
	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		close(prev.superseded)
	}
	d.pending[key] = call
	d.mu.Unlock()
	return call
}

func (d *Debouncer) release(key string, call *pendingCall) {
	d.mu.Lock()
	if d.pending[key] == call {
		delete(d.pending, key)
	}
	d.mu.Unlock()
}
