package process

import "container/list"

// Pgroup is a process group: a circular list of member processes
// identified by the ProcessID of its founder (spec.md §3).
type Pgroup struct {
	id      PgroupID
	members *list.List // of *Process
}

// Session is a job-control session; it always wholly contains any
// pgroup it references (spec.md §3).
type Session struct {
	id      SessionID
	members *list.List // of *Process
}

// checkForPgrpConnectionLocked implements spec.md §4.4's
// check_for_pgrp_connection: the group named pgid is orphaned unless
// some member other than ignore has a parent in parentPgid. Callers
// must hold the process lock.
func (k *Kernel) checkForPgrpConnectionLocked(pgid, parentPgid PgroupID, ignore *Process) bool {
	g, ok := k.pgroups[pgid]
	if !ok {
		return false
	}
	for e := g.members.Front(); e != nil; e = e.Next() {
		m := e.Value.(*Process)
		if m == ignore {
			continue
		}
		if m.parent != nil && m.parent.pgid == parentPgid {
			return false
		}
	}
	return true
}

// signalPgroupLocked delivers sig to every member's main thread, per
// spec.md §4.4's group-directed signal fan-out. Callers must already
// hold both the process lock and the thread lock (via lockBoth) —
// STOP/CONT delivery needs the thread lock, and re-entering sendSignal
// here would try to reacquire it. SIGKILLTHR is never routed through
// this path; it targets a single thread directly (see
// thread.go's KillThread), so it falls through to the pending-signal
// case below rather than running the exit walk while locked.
func (k *Kernel) signalPgroupLocked(pgid PgroupID, sig Signal) {
	g, ok := k.pgroups[pgid]
	if !ok {
		return
	}
	for e := g.members.Front(); e != nil; e = e.Next() {
		m := e.Value.(*Process)
		main := m.MainThread()
		if main == nil {
			continue
		}
		switch sig {
		case SigStop:
			_ = k.stopThreadLocked(main)
		case SigCont:
			_ = k.continueThreadLocked(main)
		default:
			deliverPending(main, sig)
		}
	}
}

// SignalPgroup is the exported form of signalPgroupLocked, acquiring
// both locks itself.
func (k *Kernel) SignalPgroup(pgid PgroupID, sig Signal) error {
	unlock := k.lockBoth()
	defer unlock()
	if _, ok := k.pgroups[pgid]; !ok {
		return ErrNotFound
	}
	k.signalPgroupLocked(pgid, sig)
	return nil
}

// normalizeSetpgidArgs implements spec.md §4.4's pid==0/pgid==0
// normalization: pid==0 means the caller itself, pgid==0 means pid.
func normalizeSetpgidArgs(target, caller *Process, pgid PgroupID) (*Process, PgroupID) {
	p := target
	if p == nil {
		p = caller
	}
	g := pgid
	if g == 0 {
		g = PgroupID(p.ID)
	}
	return p, g
}

// Setpgid moves target into the group pgid, creating the group if it
// doesn't exist yet. Passing target==nil selects caller; pgid==0
// selects target's own id (spec.md §4.4).
func (k *Kernel) Setpgid(target, caller *Process, pgid PgroupID) error {
	p, g := normalizeSetpgidArgs(target, caller, pgid)

	unlock := k.lockProcess()
	_, exists := k.pgroups[g]
	unlock()

	var fresh *Pgroup
	if !exists {
		// Allocation must happen outside the lock since it may block
		// (spec.md §4.4); reacquire and re-check before publishing.
		fresh = &Pgroup{id: g, members: list.New()}
	}

	unlock = k.lockProcess()
	defer unlock()

	target_, ok := k.pgroups[g]
	if !ok {
		if fresh == nil {
			fresh = &Pgroup{id: g, members: list.New()}
		}
		k.pgroups[g] = fresh
		target_ = fresh
	}

	if p.pgroupElem != nil {
		if old, ok := k.pgroups[p.pgid]; ok {
			old.members.Remove(p.pgroupElem)
			if old.members.Len() == 0 {
				delete(k.pgroups, p.pgid)
			}
		}
	}
	p.pgid = g
	p.pgroupElem = target_.members.PushBack(p)
	return nil
}

// Setsid creates a new session (and a new pgroup within it) for p, or
// is a no-op returning the existing sid if p is already a session
// leader (spec.md's "setsid called twice is idempotent" property).
func (k *Kernel) Setsid(p *Process) (SessionID, error) {
	unlock := k.lockProcess()
	defer unlock()

	if p.sid == SessionID(p.ID) {
		return p.sid, nil
	}

	if p.sessionElem != nil {
		if old, ok := k.sessions[p.sid]; ok {
			old.members.Remove(p.sessionElem)
			if old.members.Len() == 0 {
				delete(k.sessions, p.sid)
			}
		}
	}
	if p.pgroupElem != nil {
		if old, ok := k.pgroups[p.pgid]; ok {
			old.members.Remove(p.pgroupElem)
			if old.members.Len() == 0 {
				delete(k.pgroups, p.pgid)
			}
		}
	}

	newSid := SessionID(p.ID)
	newPgid := PgroupID(p.ID)
	s := &Session{id: newSid, members: list.New()}
	g := &Pgroup{id: newPgid, members: list.New()}
	p.sid = newSid
	p.pgid = newPgid
	p.sessionElem = s.members.PushBack(p)
	p.pgroupElem = g.members.PushBack(p)
	k.sessions[newSid] = s
	k.pgroups[newPgid] = g

	return newSid, nil
}
