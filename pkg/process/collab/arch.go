package collab

import "sync/atomic"

// ThreadContext is an opaque, architecture-owned register/stack save
// area. The core never inspects its contents; it only threads the
// pointer between Arch calls at the right lifecycle points.
type ThreadContext struct {
	stackTop uintptr
	entry    func()
}

// Arch is the capability surface the core needs from the architecture
// layer: initializing a new thread's or process's machine state,
// preparing a kernel stack for first entry, dropping to user mode, and
// switching the live context at a reschedule. A real kernel implements
// these in assembly; this reference implementation models each call as
// a plain Go function invocation since Go cannot switch stacks out
// from under its own goroutine scheduler.
type Arch interface {
	InitThread(stackBase uintptr, stackSize int, entry func()) *ThreadContext
	InitProcess(as AddressSpace) error
	PrepareKernelStack(ctx *ThreadContext) error
	EnterUserMode(ctx *ThreadContext) error
	ContextSwitch(from, to *ThreadContext)
	SwitchStackAndCall(ctx *ThreadContext, fn func())
}

// HostArch is a reference Arch implementation. InitThread records the
// entry closure rather than emitting real machine code; ContextSwitch
// invokes the incoming context's recorded entry point inline and
// SwitchStackAndCall invokes fn inline, preserving call order without
// any real stack manipulation.
type HostArch struct {
	switches int64
}

// NewHostArch creates a reference Arch.
func NewHostArch() *HostArch { return &HostArch{} }

func (a *HostArch) InitThread(stackBase uintptr, stackSize int, entry func()) *ThreadContext {
	return &ThreadContext{stackTop: stackBase + uintptr(stackSize), entry: entry}
}

func (a *HostArch) InitProcess(as AddressSpace) error {
	return nil
}

func (a *HostArch) PrepareKernelStack(ctx *ThreadContext) error {
	return nil
}

func (a *HostArch) EnterUserMode(ctx *ThreadContext) error {
	return nil
}

func (a *HostArch) ContextSwitch(from, to *ThreadContext) {
	atomic.AddInt64(&a.switches, 1)
	if to != nil && to.entry != nil {
		to.entry()
	}
}

func (a *HostArch) SwitchStackAndCall(ctx *ThreadContext, fn func()) {
	atomic.AddInt64(&a.switches, 1)
	fn()
}

// Switches returns how many context switches this Arch has performed,
// for tests that assert the dispatcher actually ran.
func (a *HostArch) Switches() int64 { return atomic.LoadInt64(&a.switches) }
