package process

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// maxDeathStacks caps the pool regardless of CPU count (spec.md §4.2
// step 6: "sized to the CPU count, capped at 32").
const maxDeathStacks = 32

// numDeathStacks returns the pool size for a kernel with numCPU CPUs.
func numDeathStacks(numCPU int) int {
	if numCPU < 1 {
		return 1
	}
	if numCPU > maxDeathStacks {
		return maxDeathStacks
	}
	return numCPU
}

// deathStackPool is the fixed pool of pre-allocated wired kernel
// stacks a self-exiting thread borrows to tear down its own kernel
// stack (spec.md §4.2 step 6). The bitmap tracks which slots are in
// use; the weighted semaphore gates concurrent holders at the pool
// size, grounded on
// _examples/original_source/kernel/thread.c's get_death_stack /
// put_death_stack_and_reschedule.
type deathStackPool struct {
	mu   sync.Mutex
	bits []bool
	gate *semaphore.Weighted
}

func newDeathStackPool(n int) *deathStackPool {
	return &deathStackPool{
		bits: make([]bool, n),
		gate: semaphore.NewWeighted(int64(n)),
	}
}

// acquire blocks on the gate until a slot is free, then finds and
// sets the lowest zero bit.
func (p *deathStackPool) acquire(ctx context.Context) (int, error) {
	if err := p.gate.Acquire(ctx, 1); err != nil {
		return -1, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, used := range p.bits {
		if !used {
			p.bits[i] = true
			return i, nil
		}
	}
	// The gate only ever admits as many holders as there are bits; if
	// every bit is set here, the bitmap and the gate have diverged.
	// spec.md §7 treats this class of internal inconsistency as fatal.
	panic("process: death-stack bitmap/gate out of sync")
}

// release clears bit and releases the gate with NO_RESCHED, matching
// spec.md step 8's "releasing the gate semaphore with NO_RESCHED".
// Rescheduling is the caller's responsibility (see exit.go).
func (p *deathStackPool) release(bit int) {
	p.mu.Lock()
	p.bits[bit] = false
	p.mu.Unlock()
	p.gate.Release(1)
}

// popcount reports the number of slots currently in use, for the
// Testable Properties invariant "bitmap popcount <= num_death_stacks
// and the gate's value equals num_death_stacks - popcount".
func (p *deathStackPool) popcount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.bits {
		if b {
			n++
		}
	}
	return n
}
