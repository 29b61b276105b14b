package store

import (
	"context"
	"log"
	"sync"
	"time"

	"InkBoard/internal/state"
)

const (
	DefaultAutosaveDelay = 1500 * time.Millisecond
	saveTimeout          = 30 * time.Second
)

// Autosaver coalesces bursts of edits into single Update calls. At most
// one write is in flight; edits made meanwhile are held in one pending
// slot and written when the current write finishes, so the last edit
// always reaches the store.
type Autosaver struct {
	store Store
	delay time.Duration

	// OnError is called from the writing goroutine when a save fails.
	OnError func(id string, err error)
	// OnSaved is called after every successful write.
	OnSaved func(id string)

	mu       sync.Mutex
	idle     *sync.Cond
	timer    *time.Timer
	id       string
	pages    state.PageAnnotations
	pending  bool
	inFlight bool
	queued   bool
	closed   bool
}

func NewAutosaver(s Store, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	a := &Autosaver{store: s, delay: delay}
	a.idle = sync.NewCond(&a.mu)
	return a
}

// Schedule records pages as the latest state of document id and restarts
// the debounce timer.
func (a *Autosaver) Schedule(id string, pages state.PageAnnotations) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || id == "" {
		return
	}
	a.id, a.pages, a.pending = id, pages, true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Pending reports whether an edit is waiting to be written.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending || a.inFlight
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	if a.inFlight {
		a.queued = true
		a.mu.Unlock()
		return
	}
	a.inFlight = true
	a.mu.Unlock()

	for {
		a.mu.Lock()
		if !a.pending {
			a.finish()
			return
		}
		id, pages := a.id, a.pages
		a.pending, a.queued = false, false
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := a.store.Update(ctx, id, pages)
		cancel()
		a.report(id, err)

		a.mu.Lock()
		if !a.queued {
			a.finish()
			return
		}
		a.mu.Unlock()
	}
}

// finish must be called with mu held; it releases it.
func (a *Autosaver) finish() {
	a.inFlight, a.queued = false, false
	a.idle.Broadcast()
	a.mu.Unlock()
}

func (a *Autosaver) report(id string, err error) {
	if err != nil {
		log.Printf("[STORE] Autosave of %s failed: %v", id, err)
		if a.OnError != nil {
			a.OnError(id, err)
		}
		return
	}
	if a.OnSaved != nil {
		a.OnSaved(id)
	}
}

// Flush cancels the debounce and writes any pending edit now, after
// waiting for a write already in flight.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	for a.inFlight {
		a.idle.Wait()
	}
	if !a.pending {
		a.mu.Unlock()
		return nil
	}
	id, pages := a.id, a.pages
	a.pending = false
	a.inFlight = true
	a.mu.Unlock()

	err := a.store.Update(ctx, id, pages)
	a.report(id, err)

	a.mu.Lock()
	// a timer that fired during this write found us busy
	again := a.queued && a.pending
	a.finish()
	if again {
		go a.fire()
	}
	return err
}

// Close flushes and stops accepting new edits.
func (a *Autosaver) Close(ctx context.Context) error {
	err := a.Flush(ctx)
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return err
}

// Watch schedules a save of document id whenever m's committed
// annotations change. Loading another document stops further saves for
// id.
func (a *Autosaver) Watch(m *state.Machine, id string) {
	m.Subscribe(func(prev, next state.State) {
		if next.Document == nil || next.Document.ID != id {
			return
		}
		if prev.Document == nil || prev.Document.ID != id {
			return
		}
		if prev.Revision != next.Revision {
			a.Schedule(id, next.Pages)
		}
	})
}
