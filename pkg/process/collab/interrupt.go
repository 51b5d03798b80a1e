package collab

import "sync"

// IntState is an opaque token returned by Interrupt.Disable and
// consumed by Interrupt.Restore.
type IntState struct {
	wasEnabled bool
}

// Interrupt is the capability surface the core needs to bracket
// critical sections that must run with local interrupts disabled. The
// reschedule verdict at the tail of an interrupt is carried by
// RescheduleDecision (timer.go), not by this interface.
type Interrupt interface {
	Disable() IntState
	Restore(IntState)
}

// LocalInterrupt is a reference Interrupt implementation. Since this
// module has no real interrupt controller, "disabled" only means
// "another goroutine calling Disable on the same instance will block
// until Restore" — it exists so call sites can bracket critical
// sections the way spec.md §4.5 requires, without pretending to model
// hardware interrupt masking.
type LocalInterrupt struct {
	mu      sync.Mutex
	enabled bool
}

// NewLocalInterrupt creates a reference Interrupt starting enabled.
func NewLocalInterrupt() *LocalInterrupt {
	return &LocalInterrupt{enabled: true}
}

func (l *LocalInterrupt) Disable() IntState {
	l.mu.Lock()
	was := l.enabled
	l.enabled = false
	return IntState{wasEnabled: was}
}

func (l *LocalInterrupt) Restore(s IntState) {
	l.enabled = s.wasEnabled
	l.mu.Unlock()
}
