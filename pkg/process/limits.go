package process

import "sync"

// Ulimit holds per-process resource limits, mirroring the fields a
// monolithic kernel's process record tracks directly rather than
// through a generic quota service: page count, open-file count, VMA
// (region) count, and thread count.
type Ulimit struct {
	Pages  int
	Nofile uint
	Novma  uint
	Noproc uint
}

// DefaultUlimit returns the limits assigned to a process created
// without an explicit Ulimit.
func DefaultUlimit() Ulimit {
	return Ulimit{
		Pages:  1 << 18, // 1GiB worth of 4K pages
		Nofile: 256,
		Novma:  256,
		Noproc: 64,
	}
}

// ErrLimitExceeded is returned by Enforcer checks once a counter
// reaches its configured ceiling.
type ErrLimitExceeded struct {
	Resource string
	Limit    uint
	Used     uint
}

func (e *ErrLimitExceeded) Error() string {
	return e.Resource + " limit exceeded"
}

// usage tracks live consumption against a process's Ulimit.
type usage struct {
	mu    sync.Mutex
	nvma  uint
	nproc uint
}

// Enforcer tracks resource consumption against each process's Ulimit.
// CreateThread consults it directly; Nofile and Novma have no
// consuming subsystem in this reference core (no file descriptor or
// VMA-granular accounting exists — see DESIGN.md) and are carried as
// plain data on Ulimit only.
type Enforcer struct {
	mu     sync.RWMutex
	limits map[ProcessID]Ulimit
	usage  map[ProcessID]*usage
}

// NewEnforcer creates an empty resource-limit enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{
		limits: make(map[ProcessID]Ulimit),
		usage:  make(map[ProcessID]*usage),
	}
}

// Register starts tracking pid against the given limits.
func (e *Enforcer) Register(pid ProcessID, lim Ulimit) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limits[pid] = lim
	e.usage[pid] = &usage{}
}

// Remove stops tracking pid.
func (e *Enforcer) Remove(pid ProcessID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.limits, pid)
	delete(e.usage, pid)
}

func (e *Enforcer) get(pid ProcessID) (Ulimit, *usage, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	lim, ok := e.limits[pid]
	if !ok {
		return Ulimit{}, nil, false
	}
	return lim, e.usage[pid], true
}

// AddThread accounts for one more thread, failing if it would exceed
// Noproc. Called under the process lock during thread creation.
func (e *Enforcer) AddThread(pid ProcessID) error {
	lim, u, ok := e.get(pid)
	if !ok {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if lim.Noproc > 0 && u.nproc >= lim.Noproc {
		return &ErrLimitExceeded{Resource: "noproc", Limit: lim.Noproc, Used: u.nproc}
	}
	u.nproc++
	return nil
}

// RemoveThread releases one thread's accounting.
func (e *Enforcer) RemoveThread(pid ProcessID) {
	_, u, ok := e.get(pid)
	if !ok {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.nproc > 0 {
		u.nproc--
	}
}
