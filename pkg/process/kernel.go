package process

import (
	"container/list"
	"fmt"
	"math/rand"
	"sync"

	"kestrel/pkg/process/collab"
	"kestrel/pkg/process/ipc"
)

// Kernel is the top-level facade: it owns the thread and process
// indexes, the pgroup/session tables, the per-CPU records, the
// death-stack pool, and the external collaborators, and exposes the
// operations spec.md §6 lists as what the core exposes.
type Kernel struct {
	locks

	ids idGen

	threads   map[ThreadID]*Thread
	processes map[ProcessID]*Process

	pgroups  map[PgroupID]*Pgroup
	sessions map[SessionID]*Session

	rq       *runQueue
	deadMu   sync.Mutex
	deadList *list.List

	cpus []*CPU

	deathStacks *deathStackPool

	coll *collab.ReferenceSet

	enforcer *Enforcer

	kernelProcess *Process

	rngMu sync.Mutex
	rng   *rand.Rand

	sigLog *ipc.Log
}

// NewKernel builds a Kernel with numCPU per-CPU records, each with its
// own idle thread, and wires coll as the set of external collaborators
// consumed through the collab interfaces (spec.md §6). Passing nil
// selects collab.NewReferenceSet().
func NewKernel(numCPU int, coll *collab.ReferenceSet) *Kernel {
	if numCPU < 1 {
		numCPU = 1
	}
	if coll == nil {
		coll = collab.NewReferenceSet()
	}

	k := &Kernel{
		threads:   make(map[ThreadID]*Thread),
		processes: make(map[ProcessID]*Process),
		pgroups:   make(map[PgroupID]*Pgroup),
		sessions:  make(map[SessionID]*Session),
		rq:        newRunQueue(),
		deadList:  list.New(),
		coll:      coll,
		enforcer:  NewEnforcer(),
		rng:       rand.New(rand.NewSource(1)),
		sigLog:    ipc.NewLog(),
	}
	k.deathStacks = newDeathStackPool(numDeathStacks(numCPU))

	k.kernelProcess = k.newKernelProcess()

	k.cpus = make([]*CPU, numCPU)
	for i := range k.cpus {
		cpu := newCPU(i)
		idle, err := k.spawnIdleThread(cpu)
		if err != nil {
			panic(fmt.Sprintf("process: failed to create idle thread for cpu %d: %v", i, err))
		}
		cpu.idleThread = idle
		cpu.current = idle
		k.cpus[i] = cpu
	}

	return k
}

// CPUs returns the kernel's per-CPU records.
func (k *Kernel) CPUs() []*CPU { return k.cpus }

// KernelProcess returns the kernel process, which is its own parent
// and the ultimate reparenting target for orphaned children.
func (k *Kernel) KernelProcess() *Process { return k.kernelProcess }

func (k *Kernel) nextRand() float64 {
	k.rngMu.Lock()
	defer k.rngMu.Unlock()
	return k.rng.Float64()
}

// newKernelProcess creates the process record that owns the idle
// threads and every self-exiting thread's final moments. It is its
// own parent per spec.md invariant 5.
func (k *Kernel) newKernelProcess() *Process {
	unlock := k.lockBoth()

	pid := k.ids.processID()
	p := &Process{
		ID:       pid,
		Name:     "kernel",
		state:    ProcessNormal,
		pgid:     PgroupID(pid),
		sid:      SessionID(pid),
		limits:   DefaultUlimit(),
		threads:  list.New(),
		children: list.New(),
	}
	p.parent = p
	k.processes[pid] = p
	k.enforcer.Register(pid, p.limits)

	g := &Pgroup{id: p.pgid, members: list.New()}
	p.pgroupElem = g.members.PushBack(p)
	k.pgroups[p.pgid] = g

	s := &Session{id: p.sid, members: list.New()}
	p.sessionElem = s.members.PushBack(p)
	k.sessions[p.sid] = s

	unlock()
	if as, err := k.coll.VM.CreateAddressSpace("kernel"); err == nil {
		p.as = as
	}
	if ioctx, err := k.coll.IOContext.Create(); err == nil {
		p.ioctx = ioctx
	}

	return p
}
