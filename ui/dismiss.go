package ui

import (
	"sync"
	"time"
)

// dismisser runs one cancellable timer per notification id. A timer that
// fires after its id was cancelled does nothing.
type dismisser struct {
	fire func(id string)

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup // one per timer not yet stopped or finished
}

func newDismisser(fire func(id string)) *dismisser {
	return &dismisser{fire: fire, timers: make(map[string]*time.Timer)}
}

// schedule arranges for fire(id) after d. No-op once closed.
func (x *dismisser) schedule(id string, d time.Duration) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	if old, ok := x.timers[id]; ok && old.Stop() {
		x.wg.Done()
	}

	x.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer x.wg.Done()
		x.mu.Lock()
		current, ok := x.timers[id]
		if !ok || current != t {
			x.mu.Unlock()
			return
		}
		delete(x.timers, id)
		x.mu.Unlock()
		x.fire(id)
	})
	x.timers[id] = t
}

// cancel stops the timer for id, if any.
func (x *dismisser) cancel(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.cancelLocked(id)
}

// cancelAll stops every pending timer.
func (x *dismisser) cancelAll() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for id := range x.timers {
		x.cancelLocked(id)
	}
}

func (x *dismisser) cancelLocked(id string) {
	t, ok := x.timers[id]
	if !ok {
		return
	}
	delete(x.timers, id)
	if t.Stop() {
		x.wg.Done()
	}
}

// pending returns the number of scheduled timers.
func (x *dismisser) pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.timers)
}

// close cancels everything, rejects new timers, and waits for callbacks
// already running to return.
func (x *dismisser) close() {
	x.mu.Lock()
	x.closed = true
	for id := range x.timers {
		x.cancelLocked(id)
	}
	x.mu.Unlock()
	x.wg.Wait()
}
