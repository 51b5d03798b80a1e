package process

import (
	"container/list"
	"time"

	"kestrel/pkg/process/collab"
)

// quantumDuration is the fixed time slice armed on every dispatch
// (spec.md §4.1).
const quantumDuration = 10 * time.Millisecond

// skipProbabilityNumerator/Denominator implement the ≈5/8 immediate-
// pick probability spec.md §4.1 specifies for the regular band's
// probabilistic skip.
const (
	skipProbabilityNumerator   = 5
	skipProbabilityDenominator = 8
)

// runQueue holds one FIFO per priority level, split conceptually into
// an RT band (levels >= MinRTPriority) and a regular band below it.
// container/list gives O(1) tail-insert/head-remove, matching spec.md
// §9's intrusive-list-node requirement far better than the teacher's
// container/heap (which orders by pid, not insertion order — see
// DESIGN.md's Open Question resolution).
type runQueue struct {
	levels [numPriorityLevels]*list.List
}

func newRunQueue() *runQueue {
	rq := &runQueue{}
	for i := range rq.levels {
		rq.levels[i] = list.New()
	}
	return rq
}

// enqueue appends t to its priority level's tail. Callers must hold
// the thread lock.
func (rq *runQueue) enqueue(t *Thread) {
	t.mu.Lock()
	level := t.priority
	t.mu.Unlock()
	t.runElem = rq.levels[level].PushBack(t)
}

// remove detaches t from whichever level it is currently queued on,
// if any. Callers must hold the thread lock.
func (rq *runQueue) remove(t *Thread) {
	if t.runElem == nil {
		return
	}
	t.mu.Lock()
	level := t.priority
	t.mu.Unlock()
	rq.levels[level].Remove(t.runElem)
	t.runElem = nil
}

// selectNext implements spec.md §4.1's selection algorithm and
// returns the chosen thread, or nil if every level (RT and regular)
// is empty. rnd is called at most once per non-empty regular level
// scanned.
func (rq *runQueue) selectNext(rnd func() float64) *Thread {
	for level := MaxRTPriority; level >= MinRTPriority; level-- {
		if t := popFront(rq.levels[level]); t != nil {
			return t
		}
	}

	var fallback int = -1
	for level := MaxRegularPriority; level >= MinPriority; level-- {
		l := rq.levels[level]
		if l.Len() == 0 {
			continue
		}
		if rnd() < float64(skipProbabilityNumerator)/float64(skipProbabilityDenominator) {
			return popFront(l)
		}
		if fallback == -1 {
			fallback = level
		}
	}
	if fallback != -1 {
		return popFront(rq.levels[fallback])
	}
	return nil
}

func popFront(l *list.List) *Thread {
	e := l.Front()
	if e == nil {
		return nil
	}
	l.Remove(e)
	t := e.Value.(*Thread)
	t.runElem = nil
	return t
}

// spawnIdleThread creates cpu's dedicated idle thread: IdlePriority,
// never enqueued, never selected except as the dispatcher's last
// resort.
func (k *Kernel) spawnIdleThread(cpu *CPU) (*Thread, error) {
	t, err := k.CreateThread(CreateThreadConfig{
		Name:     "idle",
		Process:  k.kernelProcess,
		Priority: IdlePriority,
		Kernel:   true,
	})
	if err != nil {
		return nil, err
	}
	// Idle threads are brought straight to READY; nothing ever sends
	// them a CONT.
	if err := t.transitionTo(ThreadReady); err != nil {
		return nil, err
	}
	return t, nil
}

// Dispatch runs the selection algorithm for cpu, transitions the
// outgoing and incoming threads, performs time accounting, arms the
// quantum timer, and delegates the register swap to the architecture
// collaborator. It returns the thread now current on cpu.
//
// This reference scheduler performs exactly the bookkeeping spec.md
// §4.1 describes; it does not itself invoke any thread's entry
// function; a driver (see cmd/kernelsim) is responsible for actually
// running a thread's work between dispatches.
func (k *Kernel) Dispatch(cpu *CPU) *Thread {
	unlock := k.lockThread()
	defer unlock()

	now := time.Now()
	prev := cpu.Current()
	if prev != nil {
		k.accountTime(prev, now)
		switch prev.State() {
		case ThreadRunning:
			if err := prev.transitionTo(ThreadReady); err == nil {
				k.rq.enqueue(prev)
			}
		case ThreadFreeOnResched:
			// deathStackContinuation (exit.go) already removed prev from
			// the thread index; this is the "dispatcher moves the dying
			// thread onto the dead queue" half of spec.md §4.2 step 8.
			k.deadMu.Lock()
			prev.runElem = k.deadList.PushBack(prev)
			k.deadMu.Unlock()
		}
	}

	next := k.rq.selectNext(k.nextRand)
	if next == nil {
		next = cpu.IdleThread()
		cpu.addIdleTime(quantumDuration)
	} else {
		_ = next.transitionTo(ThreadRunning)
	}

	next.mu.Lock()
	next.lastTime = now
	next.cpu = cpu
	next.mu.Unlock()
	cpu.setCurrent(next)

	k.armQuantum(cpu)
	k.coll.Arch.ContextSwitch(nil, nil)

	return next
}

// accountTime credits the outgoing thread's active bucket with the
// elapsed time since its last_time, per spec.md §4.1.
func (k *Kernel) accountTime(t *Thread, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := now.Sub(t.lastTime)
	if elapsed < 0 {
		elapsed = 0
	}
	if t.inKernel {
		t.kernelTime += elapsed
	} else {
		t.userTime += elapsed
	}
	t.lastTime = now
}

// armQuantum arms a one-shot quantum timer on cpu. Per spec.md §4.1,
// "if the current thread was preempted (timer already fired) the old
// event is not re-cancelled" — WallTimer already implements that, so
// this call simply overwrites the bookkeeping.
func (k *Kernel) armQuantum(cpu *CPU) {
	cpu.quantumCancel = k.coll.Timer.OneShot(cpu.ID, quantumDuration, func() collab.RescheduleDecision {
		return collab.IntReschedule // the interrupt tail would call Dispatch again.
	})
}
