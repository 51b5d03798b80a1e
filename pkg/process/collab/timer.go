package collab

import (
	"sync"
	"time"
)

// RescheduleDecision is returned by a one-shot timer callback to tell
// the interrupt tail whether the dispatcher must run.
type RescheduleDecision int

const (
	IntNoReschedule RescheduleDecision = iota
	IntReschedule
)

// CancelFunc cancels a previously armed timer. Calling it after the
// timer has already fired is a no-op.
type CancelFunc func()

// Timer is the capability surface the core needs from the timer
// subsystem: a one-shot per-CPU event (used to arm the scheduler
// quantum) and a per-thread alarm event.
type Timer interface {
	OneShot(cpu int, d time.Duration, cb func() RescheduleDecision) CancelFunc
	Alarm(d time.Duration, cb func()) CancelFunc
}

// WallTimer is a reference Timer backed by time.AfterFunc.
type WallTimer struct {
	mu      sync.Mutex
	pending map[int]*time.Timer
}

// NewWallTimer creates a reference timer service.
func NewWallTimer() *WallTimer {
	return &WallTimer{pending: make(map[int]*time.Timer)}
}

func (w *WallTimer) OneShot(cpu int, d time.Duration, cb func() RescheduleDecision) CancelFunc {
	t := time.AfterFunc(d, func() { cb() })
	w.mu.Lock()
	if old, ok := w.pending[cpu]; ok {
		// spec.md §4.1: "If the current thread was preempted (timer
		// already fired) the old event is not re-cancelled" — mirrored
		// here by simply overwriting the bookkeeping without stopping
		// the old timer.
		_ = old
	}
	w.pending[cpu] = t
	w.mu.Unlock()
	return func() { t.Stop() }
}

func (w *WallTimer) Alarm(d time.Duration, cb func()) CancelFunc {
	t := time.AfterFunc(d, cb)
	return func() { t.Stop() }
}
