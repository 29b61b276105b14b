package surface

import (
	"sync"
	"time"
)

// FrameInterval is the display frame period redraws are aligned to.
const FrameInterval = time.Second / 60

// FrameScheduler runs at most one pending redraw. Schedule replaces any
// redraw that has not run yet.
type FrameScheduler interface {
	Schedule(fn func())
	Cancel()
}

// TimerScheduler fires on a fixed frame grid, so a stream of Schedule
// calls still produces one redraw per frame instead of postponing it.
type TimerScheduler struct {
	Interval time.Duration
	// Run executes the redraw; it defaults to calling fn directly. The
	// fyne host uses it to hop onto the UI goroutine.
	Run func(fn func())

	mu    sync.Mutex
	epoch time.Time
	timer *time.Timer
	fn    func()
}

func NewTimerScheduler(run func(fn func())) *TimerScheduler {
	return &TimerScheduler{Interval: FrameInterval, Run: run, epoch: time.Now()}
}

func (t *TimerScheduler) Schedule(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn = fn
	if t.timer != nil {
		// the pending tick will pick up the new fn
		return
	}
	t.timer = time.AfterFunc(t.untilNextFrame(), t.fire)
}

func (t *TimerScheduler) untilNextFrame() time.Duration {
	interval := t.Interval
	if interval <= 0 {
		interval = FrameInterval
	}
	if t.epoch.IsZero() {
		t.epoch = time.Now()
	}
	return interval - time.Since(t.epoch)%interval
}

func (t *TimerScheduler) fire() {
	t.mu.Lock()
	fn := t.fn
	t.fn, t.timer = nil, nil
	run := t.Run
	t.mu.Unlock()

	if fn == nil {
		return
	}
	if run != nil {
		run(fn)
		return
	}
	fn()
}

func (t *TimerScheduler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.fn = nil
}

// ManualScheduler holds the pending redraw until Flush. Tests and headless
// callers use it to control exactly when frames happen.
type ManualScheduler struct {
	mu      sync.Mutex
	pending func()
}

func (m *ManualScheduler) Schedule(fn func()) {
	m.mu.Lock()
	m.pending = fn
	m.mu.Unlock()
}

func (m *ManualScheduler) Cancel() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}

// Flush runs the pending redraw, if any, and reports whether one ran.
func (m *ManualScheduler) Flush() bool {
	m.mu.Lock()
	fn := m.pending
	m.pending = nil
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}
