package process

import (
	"time"

	"kestrel/pkg/process/ipc"
)

// sendSignal implements spec.md §4.4's signal delivery: STOP and CONT
// drive the suspend/resume state machine directly, SIGKILLTHR drives
// the self-exit walk, and every other signal is recorded pending
// unless the target has registered ActionIgnore for it.
//
// flags mirrors thread.c's send_signal, which accepts
// B_DO_NOT_RESCHEDULE so a multi-target fan-out (SignalPgroup) only
// reschedules once instead of once per member. This reference core
// never reschedules implicitly from inside sendSignal — Dispatch is
// always invoked explicitly by a driver — so flags is accepted but not
// used; the audit log records only the signal and the time.
//
// sendSignal must be called with neither the thread lock nor the
// process lock held; it acquires exactly what each case needs itself.
// A caller that already holds one or both locks (pgroup.go's
// signalPgroupLocked, invoked from exit.go's finishProcessExit,
// process.go's reparentChildren, and SignalPgroup) must use the
// *Locked helpers below instead.
func (k *Kernel) sendSignal(t *Thread, sig Signal, flags SignalFlag) error {
	if t == nil {
		return errThreadNotFound
	}
	k.sigLog.Record(int64(t.ID), ipc.Signal(sig), time.Now())

	switch sig {
	case SigStop:
		unlock := k.lockThread()
		defer unlock()
		return k.stopThreadLocked(t)
	case SigCont:
		unlock := k.lockThread()
		defer unlock()
		return k.continueThreadLocked(t)
	case SigKillThr:
		k.exitThread(t, ExitStatus{Signal: sig, Signaled: true})
		return nil
	}

	deliverPending(t, sig)
	return nil
}

// deliverPending records sig as pending on t, unless t has registered
// ActionIgnore for it. It only ever takes the per-thread mutex, so it
// is always safe to call regardless of what package-level locks the
// caller holds. A blocked signal is still recorded pending, exactly
// like sigprocmask defers rather than drops delivery; t.blocked only
// changes what handlePendingSignals does with it later.
func deliverPending(t *Thread, sig Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.actions[sig] == ActionIgnore {
		return
	}
	t.pending.Add(sig)
}

// handlePendingSignals clears every pending signal on t that isn't
// currently in t.blocked and reports whether it found at least one,
// the same decision thread.c's handle_signals feeds into a reschedule.
// Signals still blocked are left pending untouched, so unblocking them
// later still observes them.
func handlePendingSignals(t *Thread) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	resched := false
	for sig := range t.pending {
		if t.blocked.Has(sig) {
			continue
		}
		delete(t.pending, sig)
		resched = true
	}
	return resched
}

// KernelEntry implements thread.c's thread_atkernel_entry: called by
// the trap handler when a thread enters the kernel from user space. It
// credits the time just spent in user mode, flips the in-kernel flag
// so accountTime (scheduler.go) attributes time correctly until
// KernelExit, and holds an interrupt-disable bracket across the
// critical section the same way thread.c's int_disable_interrupts/
// int_restore_interrupts do.
func (k *Kernel) KernelEntry(t *Thread) {
	t.EnterNoInterrupt()
	t.mu.Lock()
	now := time.Now()
	t.userTime += now.Sub(t.lastTime)
	t.lastTime = now
	t.inKernel = true
	t.mu.Unlock()
	t.ExitNoInterrupt()
}

// KernelExit implements thread_atkernel_exit: called as a thread
// returns from the kernel to user space. It delivers any pending,
// unblocked signals, credits kernel time, and reports whether the
// caller should reschedule before actually returning to user space.
func (k *Kernel) KernelExit(t *Thread) bool {
	t.EnterNoInterrupt()
	resched := handlePendingSignals(t)

	t.mu.Lock()
	now := time.Now()
	t.kernelTime += now.Sub(t.lastTime)
	t.lastTime = now
	t.inKernel = false
	t.mu.Unlock()
	t.ExitNoInterrupt()

	return resched
}

// InterruptExit implements thread_atinterrupt_exit: called at the end
// of an interrupt handler to decide whether it should reschedule
// before returning. Unlike KernelEntry/KernelExit it never touches the
// in-kernel flag or time accounting, since an interrupt can land while
// a thread is already in the kernel.
func (k *Kernel) InterruptExit(t *Thread) bool {
	return handlePendingSignals(t)
}

// stopThreadLocked moves a READY thread to SUSPENDED and dequeues it.
// A thread that isn't READY (RUNNING, WAITING, already SUSPENDED) has
// the stop recorded pending instead; thread.c instead parks a running
// thread directly off its CPU, a distinction that only matters once
// real thread execution is driven (see scheduler.go's Dispatch doc).
// Callers must already hold the thread lock.
func (k *Kernel) stopThreadLocked(t *Thread) error {
	if t.State() != ThreadReady {
		t.mu.Lock()
		t.pending.Add(SigStop)
		t.mu.Unlock()
		return nil
	}
	k.rq.remove(t)
	return t.transitionTo(ThreadSuspended)
}

// continueThreadLocked moves a SUSPENDED thread back to READY and
// enqueues it, clearing any pending STOP. Callers must already hold
// the thread lock.
func (k *Kernel) continueThreadLocked(t *Thread) error {
	t.mu.Lock()
	t.pending.Remove(SigStop)
	t.mu.Unlock()

	if t.State() != ThreadSuspended {
		return nil
	}
	if err := t.transitionTo(ThreadReady); err != nil {
		return err
	}
	k.rq.enqueue(t)
	return nil
}
