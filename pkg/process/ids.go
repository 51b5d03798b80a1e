package process

import "sync/atomic"

// ThreadID uniquely identifies a thread for the lifetime of the kernel.
type ThreadID int64

// ProcessID uniquely identifies a process for the lifetime of the kernel.
type ProcessID int64

// PgroupID is a process group id; it equals the ProcessID of the
// group's founder.
type PgroupID ProcessID

// SessionID is a session id; it equals the ProcessID of the session's
// founder.
type SessionID ProcessID

// idGen hands out monotonically increasing ids shared by threads and
// processes, mirroring how a single global counter is simplest to
// reason about under the thread/process lock discipline in lock.go.
type idGen struct {
	next int64
}

func (g *idGen) threadID() ThreadID {
	return ThreadID(atomic.AddInt64(&g.next, 1))
}

func (g *idGen) processID() ProcessID {
	return ProcessID(atomic.AddInt64(&g.next, 1))
}
