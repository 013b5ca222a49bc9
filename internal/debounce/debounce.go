// Package debounce provides keyed, cancellable delayed execution: each
// trigger for a key restarts that key's timer and only the last scheduled
// function runs once the key has been quiet for the delay.
package debounce

import (
	"sync"
	"time"
)

type pending struct {
	timer *time.Timer
	fn    func()
	seq   uint64
}

// Debouncer schedules functions per key.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	seq     uint64
	stopped bool
}

// New returns a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*pending)}
}

// Trigger schedules fn for key, replacing any function already waiting.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.seq++
	seq := d.seq
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pending{fn: fn, seq: seq}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(key, seq) })
	d.pending[key] = p
}

func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.seq != seq {
		// Superseded by a later trigger or cancelled.
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	p.fn()
}

// Flush runs the function waiting for key immediately, if any.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()
	if ok {
		p.fn()
	}
	return ok
}

// Cancel drops the function waiting for key without running it.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	return ok
}

// Pending reports whether a function is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels every waiting function and rejects further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for k, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, k)
	}
}

// FlushAll runs every waiting function immediately and rejects further
// triggers. Used on shutdown so pending work is not lost.
func (d *Debouncer) FlushAll() {
	d.mu.Lock()
	d.stopped = true
	fns := make([]func(), 0, len(d.pending))
	for k, p := range d.pending {
		p.timer.Stop()
		fns = append(fns, p.fn)
		delete(d.pending, k)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
