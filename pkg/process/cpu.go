package process

import (
	"sync"
	"sync/atomic"
	"time"

	"kestrel/pkg/process/collab"
)

// CPU is the per-processor scheduling record: which thread it is
// currently running, its dedicated idle thread, FPU ownership
// tracking, and the handle of its currently-armed quantum timer.
type CPU struct {
	ID int

	mu         sync.Mutex
	current    *Thread
	idleThread *Thread

	// fpuThread is the thread whose FPU state this CPU last loaded.
	// fpuSaved records whether that state has already been flushed back
	// to the owning thread's record; see spec.md §5's FPU ownership
	// invariant.
	fpuThread *Thread
	fpuSaved  bool

	quantumCancel collab.CancelFunc

	idleNanos int64
}

// newCPU creates a CPU record with no current or idle thread assigned
// yet; the kernel assigns the idle thread during NewKernel.
func newCPU(id int) *CPU {
	return &CPU{ID: id}
}

// Current returns the thread this CPU is presently running, or nil.
func (c *CPU) Current() *Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CPU) setCurrent(t *Thread) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// IdleThread returns this CPU's dedicated idle thread.
func (c *CPU) IdleThread() *Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idleThread
}

// IdleTime returns the accumulated time this CPU has spent running its
// idle thread, the per-CPU accounting thread.c keeps distinct from
// ordinary user/kernel time for /proc-style reporting.
func (c *CPU) IdleTime() time.Duration {
	return time.Duration(atomic.LoadInt64(&c.idleNanos))
}

func (c *CPU) addIdleTime(d time.Duration) {
	atomic.AddInt64(&c.idleNanos, int64(d))
}

// fpuOwner returns the thread whose FPU state this CPU currently owns
// and whether that state has been saved back to the record.
func (c *CPU) fpuOwner() (*Thread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fpuThread, c.fpuSaved
}

func (c *CPU) setFPUOwner(t *Thread, saved bool) {
	c.mu.Lock()
	c.fpuThread = t
	c.fpuSaved = saved
	c.mu.Unlock()
}
