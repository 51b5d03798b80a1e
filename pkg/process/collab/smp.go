package collab

import "sync/atomic"

// SMP is the capability surface the core needs for cross-CPU
// broadcasts: TLB shootdown after an address-space change, and a
// reschedule request to a CPU whose run queue just gained work.
type SMP interface {
	BroadcastTLBShootdown(exceptCPU int)
	BroadcastReschedule(cpu int)
}

// CountingSMP is a reference SMP implementation that only counts
// broadcasts, for tests that assert cross-CPU signaling happened
// without needing real CPUs.
type CountingSMP struct {
	shootdowns   int64
	reschedules  int64
}

// NewCountingSMP creates a reference SMP collaborator.
func NewCountingSMP() *CountingSMP { return &CountingSMP{} }

func (c *CountingSMP) BroadcastTLBShootdown(exceptCPU int) {
	atomic.AddInt64(&c.shootdowns, 1)
}

func (c *CountingSMP) BroadcastReschedule(cpu int) {
	atomic.AddInt64(&c.reschedules, 1)
}

// Shootdowns returns the number of TLB shootdown broadcasts observed.
func (c *CountingSMP) Shootdowns() int64 { return atomic.LoadInt64(&c.shootdowns) }

// Reschedules returns the number of reschedule broadcasts observed.
func (c *CountingSMP) Reschedules() int64 { return atomic.LoadInt64(&c.reschedules) }
