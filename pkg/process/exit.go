package process

import (
	"context"
	"time"

	"kestrel/pkg/process/collab"
)

// siblingPollInterval is how often a process's exiting main thread
// re-checks whether every sibling thread has finished dying, per
// spec.md §4.2 step 3.
const siblingPollInterval = 10 * time.Millisecond

// exitThread runs the self-exit walk spec.md §4.2 describes: boost
// priority, release the user stack, detach from the dying process and
// attach to the kernel process, cascade through the rest of the
// process if this was its main thread, publish the retcode, and
// finally borrow a death stack to remove the thread record itself.
func (k *Kernel) exitThread(t *Thread, status ExitStatus) {
	// SetThreadPriority re-queues a READY thread at the boosted level, so
	// the rq.remove in deathStackContinuation unlinks it from the level it
	// is actually linked into.
	_ = k.SetThreadPriority(t, MaxRTPriority)

	t.mu.Lock()
	t.exitStatus = status
	alarmCancel := t.alarmCancel
	t.alarmCancel = nil
	userStack := t.userStack
	proc := t.process
	t.mu.Unlock()

	if alarmCancel != nil {
		alarmCancel()
	}

	wasMain := proc != nil && proc.MainThread() == t

	// origProcAS is the address space the thread's kernel stack was
	// allocated in; t.process is repointed at the kernel process below,
	// so the release in deathStackContinuation needs this captured now.
	var origProcAS collab.AddressSpace
	if proc != nil {
		origProcAS = proc.addressSpace()
		if userStack != nil {
			_ = k.coll.VM.ReleaseRegion(origProcAS, userStack)
		}
	}

	if proc != nil {
		k.enforcer.RemoveThread(proc.ID)
	}

	if proc != nil && proc != k.kernelProcess {
		k.detachFromProcess(t, proc)
		k.attachToProcess(t, k.kernelProcess)
		_ = k.coll.VM.SwapAddressSpace(-1, k.kernelProcess.addressSpace())
	}

	var rememberedParent *Process
	if wasMain {
		proc.setState(ProcessDeath)
		k.killSiblings(proc, t)
		for proc.NumThreads() > 0 {
			k.Snooze(siblingPollInterval)
		}
		rememberedParent = k.finishProcessExit(proc)
	}

	if wasMain && rememberedParent != nil {
		if main := rememberedParent.MainThread(); main != nil {
			_ = k.sendSignal(main, SigChld, FlagNoResched)
		}
	}

	_ = k.coll.Semaphore.Delete(t.retcodeSem, status.Code)

	bit, err := k.deathStacks.acquire(context.Background())
	if err != nil {
		panic("process: failed to acquire death stack: " + err.Error())
	}
	k.coll.Arch.SwitchStackAndCall(nil, func() {
		k.deathStackContinuation(t, bit, origProcAS)
	})
}

// detachFromProcess removes t from p's thread list. Callers must not
// already hold the process lock.
func (k *Kernel) detachFromProcess(t *Thread, p *Process) {
	unlock := k.lockProcess()
	defer unlock()
	if t.procElem != nil {
		p.threads.Remove(t.procElem)
		t.procElem = nil
		p.numThreads--
		if p.mainThread == t {
			p.mainThread = nil
		}
	}
}

// attachToProcess inserts t into p's thread list, making it p's main
// thread if p doesn't have one yet. The kernel process always has one
// (its first idle thread), so dying threads passing through it never
// become its main thread.
func (k *Kernel) attachToProcess(t *Thread, p *Process) {
	unlock := k.lockProcess()
	defer unlock()
	t.procElem = p.threads.PushBack(t)
	p.numThreads++
	if p.mainThread == nil {
		p.mainThread = t
	}
	t.mu.Lock()
	t.process = p
	t.mu.Unlock()
}

// killSiblings sends SIGKILLTHR to every other thread still in p,
// snapshotting the target list before signalling since sendSignal for
// SIGKILLTHR runs the target's own exit walk synchronously (this
// reference core never runs thread bodies concurrently — see
// scheduler.go's Dispatch doc — so there is no separate execution
// context to race p.threads while we walk it).
func (k *Kernel) killSiblings(p *Process, self *Thread) {
	unlock := k.lockProcess()
	var targets []*Thread
	for e := p.threads.Front(); e != nil; e = e.Next() {
		if th := e.Value.(*Thread); th != self {
			targets = append(targets, th)
		}
	}
	unlock()

	for _, th := range targets {
		_ = k.sendSignal(th, SigKillThr, FlagNoResched)
	}
}

// finishProcessExit implements the rest of spec.md §4.3's teardown
// once every thread in p (including its main thread) is gone:
// determine whether p's exit orphans its pgroup, remove p from every
// index, reparent its children, leave its pgroup/session, and release
// its address space, I/O context, and any kernel objects Ports still
// attributes to it. It returns p's parent, remembered before the
// parent link is cleared, so the caller can still deliver SIGCHLD.
func (k *Kernel) finishProcessExit(p *Process) *Process {
	unlock := k.lockBoth()
	defer unlock()

	orphaned := p.parent != nil && p.pgid != p.parent.pgid && p.sid == p.parent.sid &&
		k.checkForPgrpConnectionLocked(p.pgid, p.parent.pgid, p)

	delete(k.processes, p.ID)

	k.reparentChildren(p)

	if p.pgroupElem != nil {
		if g, ok := k.pgroups[p.pgid]; ok {
			g.members.Remove(p.pgroupElem)
			if g.members.Len() == 0 {
				delete(k.pgroups, p.pgid)
			}
		}
	}
	if p.sessionElem != nil {
		if s, ok := k.sessions[p.sid]; ok {
			s.members.Remove(p.sessionElem)
			if s.members.Len() == 0 {
				delete(k.sessions, p.sid)
			}
		}
	}

	if orphaned {
		k.signalPgroupLocked(p.pgid, SigHup)
		k.signalPgroupLocked(p.pgid, SigCont)
	}

	parent := p.parent
	if p.siblingElem != nil && parent != nil {
		parent.children.Remove(p.siblingElem)
	}
	p.parent = nil

	k.enforcer.Remove(p.ID)
	if p.as != nil {
		_ = k.coll.VM.DeleteAddressSpace(p.as)
	}
	if p.ioctx != nil {
		_ = k.coll.IOContext.Free(p.ioctx)
	}
	for _, id := range k.coll.Ports.ReleaseOwner(ownerKey(p)) {
		_ = k.coll.Semaphore.Delete(id, -1)
	}

	return parent
}

// deathStackContinuation is the tail of the self-exit walk, run on
// the borrowed death stack (spec.md §4.2 step 8): release the dying
// thread's own kernel stack, unlink it from the run queue, the global
// thread index and the kernel process, mark it FREE_ON_RESCHED, clear
// any FPU ownership it held, and release the death stack back to the
// pool. If the thread was ever dispatched, it then invokes the
// dispatcher on the thread's last CPU; the dispatcher moves the thread
// onto the dead queue only when it is still that CPU's current thread.
func (k *Kernel) deathStackContinuation(t *Thread, bit int, origProcAS collab.AddressSpace) {
	t.mu.Lock()
	cpu := t.cpu
	t.mu.Unlock()

	unlock := k.lockThread()
	if t.kernelStack != nil && origProcAS != nil {
		_ = k.coll.VM.ReleaseRegion(origProcAS, t.kernelStack)
	}
	k.rq.remove(t)
	delete(k.threads, t.ID)
	_ = t.transitionTo(ThreadFreeOnResched)
	unlock()

	k.detachFromProcess(t, k.kernelProcess)

	if cpu != nil {
		if fpuOwner, _ := cpu.fpuOwner(); fpuOwner == t {
			cpu.setFPUOwner(nil, false)
		}
	}

	k.sigLog.Forget(int64(t.ID))
	k.deathStacks.release(bit)

	if cpu != nil {
		k.Dispatch(cpu)
	}
}
