package process

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"kestrel/pkg/process/collab"
)

// Process is an address-space-and-resource container (spec.md §3).
type Process struct {
	ID   ProcessID
	Name string

	mu    sync.Mutex
	state ProcessState

	parent      *Process
	siblingElem *list.Element
	children    *list.List // of *Process

	threads    *list.List // of *Thread
	mainThread *Thread
	numThreads int

	pgid        PgroupID
	sid         SessionID
	pgroupElem  *list.Element
	sessionElem *list.Element

	as    collab.AddressSpace
	ioctx collab.IOContext

	limits Ulimit

	createdAt time.Time
}

func (p *Process) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) setState(s ProcessState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Process) addressSpace() collab.AddressSpace {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.as
}

// MainThread returns the process's designated main thread, or nil if
// the process has no threads yet. Like Parent below, mainThread is
// mutated only under the kernel's process lock (CreateThread, and
// exit.go's detachFromProcess/attachToProcess), never under p.mu, so
// this is a plain field read.
func (p *Process) MainThread() *Thread { return p.mainThread }

// Parent returns the process's parent. Only the kernel process is its
// own parent (spec.md invariant 5). Parent/child/sibling links are
// governed by the kernel's process lock (spec.md §4.5); like Pgid and
// Sid below, this accessor is safe against the one lock-ordering rule
// the package enforces but assumes the caller isn't racing a
// concurrent setpgid/setsid/reparent from another goroutine.
func (p *Process) Parent() *Process { return p.parent }

// NumThreads returns the live thread count. numThreads is likewise
// mutated only under the process lock, not p.mu.
func (p *Process) NumThreads() int { return p.numThreads }

// Pgid and Sid report the process's current group and session ids.
func (p *Process) Pgid() PgroupID { return p.pgid }
func (p *Process) Sid() SessionID { return p.sid }

// CreateProcessConfig configures CreateProcess.
type CreateProcessConfig struct {
	Name   string
	Args   []string
	Parent *Process // nil selects the kernel process

	// NewSession and NewPgroup implement spec.md §4.3's session/pgroup
	// selection; NewSession implies NewPgroup.
	NewSession bool
	NewPgroup  bool

	Suspended bool
	Limits    *Ulimit

	// Entry is the user program's entry point, run (by convention) the
	// first time the new process's main thread is dispatched. It is
	// recorded on the launch thread's Thread.entry; nothing in this
	// package invokes it automatically (see scheduler.go's Dispatch,
	// which only performs the bookkeeping a monolithic kernel's
	// scheduler owns, not arbitrary user code execution).
	Entry func(args []string)
}

// CreateProcess implements spec.md §4.3's create path: allocate the
// record, link it into the process index/children/pgroup/session
// under the process lock, then outside the lock clone the I/O
// context, create the address space, and spawn the main thread whose
// trampoline loads the image and (conceptually) enters user mode.
func (k *Kernel) CreateProcess(cfg CreateProcessConfig) (*Process, error) {
	if cfg.Name == "" {
		return nil, ErrInvalidArgs
	}
	parent := cfg.Parent
	if parent == nil {
		parent = k.kernelProcess
	}
	if cfg.NewSession {
		cfg.NewPgroup = true
	}

	// Pre-allocate pgroup/session nodes before taking the process lock,
	// since allocation must not happen while the lock is held (spec.md
	// §4.3, §4.4's setpgid/setsid note).
	var freshPgroup *Pgroup
	var freshSession *Session
	if cfg.NewPgroup {
		freshPgroup = &Pgroup{members: list.New()}
	}
	if cfg.NewSession {
		freshSession = &Session{members: list.New()}
	}

	p := &Process{
		state:     ProcessBirth,
		Name:      cfg.Name,
		threads:   list.New(),
		children:  list.New(),
		createdAt: time.Now(),
	}

	unlock := k.lockBoth()
	p.ID = k.ids.processID()
	p.parent = parent
	p.siblingElem = parent.children.PushBack(p)

	if cfg.NewSession {
		p.sid = SessionID(p.ID)
		p.pgid = PgroupID(p.ID)
		freshSession.id = p.sid
		freshPgroup.id = p.pgid
		p.sessionElem = freshSession.members.PushBack(p)
		p.pgroupElem = freshPgroup.members.PushBack(p)
		k.sessions[p.sid] = freshSession
		k.pgroups[p.pgid] = freshPgroup
	} else if cfg.NewPgroup {
		p.sid = parent.Sid()
		p.pgid = PgroupID(p.ID)
		freshPgroup.id = p.pgid
		p.pgroupElem = freshPgroup.members.PushBack(p)
		k.pgroups[p.pgid] = freshPgroup
		if sess, ok := k.sessions[p.sid]; ok {
			p.sessionElem = sess.members.PushBack(p)
		}
	} else {
		p.sid = parent.Sid()
		p.pgid = parent.Pgid()
		if g, ok := k.pgroups[p.pgid]; ok {
			p.pgroupElem = g.members.PushBack(p)
		}
		if sess, ok := k.sessions[p.sid]; ok {
			p.sessionElem = sess.members.PushBack(p)
		}
	}

	k.processes[p.ID] = p
	unlock()

	lim := DefaultUlimit()
	if cfg.Limits != nil {
		lim = *cfg.Limits
	}
	p.limits = lim
	k.enforcer.Register(p.ID, lim)

	as, err := k.coll.VM.CreateAddressSpace(fmt.Sprintf("%s#%d", cfg.Name, p.ID))
	if err != nil {
		k.unwindProcessCreate(p)
		return nil, err
	}
	p.as = as

	var ioctx collab.IOContext
	if parent.ioctx != nil {
		ioctx, err = k.coll.IOContext.Clone(parent.ioctx)
	} else {
		ioctx, err = k.coll.IOContext.Create()
	}
	if err != nil {
		k.unwindProcessCreate(p)
		return nil, err
	}
	p.ioctx = ioctx

	args := append([]string(nil), cfg.Args...)
	entry := cfg.Entry
	launch := func(t *Thread) {
		k.coll.ELF.Load(p.as, cfg.Name, args) //nolint:errcheck // launch is best-effort in this reference core
		p.setState(ProcessNormal)
		k.coll.Arch.EnterUserMode(nil)
		if entry != nil {
			entry(args)
		}
	}

	main, err := k.CreateThread(CreateThreadConfig{
		Name:     cfg.Name,
		Process:  p,
		Priority: MinPriority + 1,
		Kernel:   true,
		Entry:    launch,
	})
	if err != nil {
		k.unwindProcessCreate(p)
		return nil, err
	}

	if !cfg.Suspended {
		if err := k.ResumeThread(main); err != nil {
			return p, err
		}
	}

	return p, nil
}

// unwindProcessCreate removes a partially created process from every
// index, per spec.md §4.3's "on any failure, unwind in reverse."
func (k *Kernel) unwindProcessCreate(p *Process) {
	unlock := k.lockBoth()
	defer unlock()
	delete(k.processes, p.ID)
	if p.siblingElem != nil && p.parent != nil {
		p.parent.children.Remove(p.siblingElem)
	}
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
	k.enforcer.Remove(p.ID)
}

// KillProcess targets the process's main thread; the exit path
// (exit.go) performs the rest of the teardown.
func (k *Kernel) KillProcess(p *Process) (ExitStatus, error) {
	main := p.MainThread()
	if main == nil {
		return ExitStatus{}, ErrInvalidHandle
	}
	return k.KillThread(main)
}

// ProcessByID looks up a process by id.
func (k *Kernel) ProcessByID(id ProcessID) (*Process, error) {
	unlock := k.lockProcess()
	defer unlock()
	p, ok := k.processes[id]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return p, nil
}

// Processes returns every process currently in the process index.
func (k *Kernel) Processes() []*Process {
	unlock := k.lockProcess()
	defer unlock()
	out := make([]*Process, 0, len(k.processes))
	for _, p := range k.processes {
		out = append(out, p)
	}
	return out
}

// reparentChildren executed during exit (spec.md §4.3): for each
// child of p, detach it from p and attach it to p's parent. If the
// move orphans the child's pgroup, signal SIGHUP then SIGCONT to the
// entire pgroup. Callers must hold the process lock.
func (k *Kernel) reparentChildren(p *Process) {
	newParent := p.parent

	var next *list.Element
	for e := p.children.Front(); e != nil; e = next {
		next = e.Next()
		child := e.Value.(*Process)

		p.children.Remove(e)
		child.parent = newParent
		child.siblingElem = newParent.children.PushBack(child)

		if k.checkForPgrpConnectionLocked(child.pgid, p.pgid, nil) {
			k.signalPgroupLocked(child.pgid, SigHup)
			k.signalPgroupLocked(child.pgid, SigCont)
		}
	}
}
