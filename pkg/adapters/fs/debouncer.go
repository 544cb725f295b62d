package fs

import (
	"sync"
	"time"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

// debouncer folds bursts of filesystem events per path into one event.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]core.Event
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]core.Event),
	}
}

// mergeEventType combines two consecutive event types for the same path.
func mergeEventType(prev, next core.EventType) core.EventType {
	switch {
	case next == core.EventDelete:
		return core.EventDelete
	case prev == core.EventCreate:
		return core.EventCreate
	case prev == core.EventDelete && next == core.EventCreate:
		return core.EventModify
	}
	return next
}

func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	key := e.Path
	if prev, ok := d.pending[key]; ok {
		e.Type = mergeEventType(prev.Type, e.Type)
	}
	d.pending[key] = e

	if t, ok := d.timers[key]; ok && t.Stop() {
		t.Reset(d.delay)
		return
	}

	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		ev, ok := d.pending[key]
		delete(d.pending, key)
		d.mu.Unlock()

		if ok {
			emit(ev)
		}
	})
	d.timers[key] = t
}

// stopAndWait rejects new events, cancels pending timers and waits up to
// timeout for callbacks already running.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.pending = make(map[string]core.Event)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
