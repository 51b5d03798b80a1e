package process

import (
	"testing"

	"kestrel/pkg/process/collab"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	return NewKernel(1, collab.NewReferenceSet())
}

func mustCreateProcess(t *testing.T, k *Kernel, cfg CreateProcessConfig) *Process {
	t.Helper()
	p, err := k.CreateProcess(cfg)
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}
	return p
}

func TestCreateProcessLinksKernelProcessAsParent(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "init", Suspended: true})

	if p.Parent() != k.KernelProcess() {
		t.Errorf("Parent() = %v, want kernel process", p.Parent())
	}
	if p.Pgid() != k.KernelProcess().Pgid() {
		t.Errorf("Pgid() = %v, want inherited from parent (kernel process) = %v", p.Pgid(), k.KernelProcess().Pgid())
	}
}

func TestCreateProcessRejectsEmptyName(t *testing.T) {
	k := newTestKernel(t)
	if _, err := k.CreateProcess(CreateProcessConfig{Suspended: true}); err != ErrInvalidArgs {
		t.Errorf("CreateProcess() error = %v, want ErrInvalidArgs", err)
	}
}

func TestCreateProcessSuspendedLeavesMainThreadSuspended(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "child", Suspended: true})

	main := p.MainThread()
	if main == nil {
		t.Fatal("MainThread() = nil")
	}
	if main.State() != ThreadSuspended {
		t.Errorf("main thread State() = %v, want suspended", main.State())
	}
}

func TestCreateProcessNotSuspendedResumesMainThread(t *testing.T) {
	k := newTestKernel(t)
	p, err := k.CreateProcess(CreateProcessConfig{Name: "runner"})
	if err != nil {
		t.Fatalf("CreateProcess() error = %v", err)
	}
	if p.MainThread().State() != ThreadReady {
		t.Errorf("main thread State() = %v, want ready", p.MainThread().State())
	}
}

func TestCreateProcessNewSessionImpliesNewPgroup(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "leader", NewSession: true, Suspended: true})

	if p.Sid() != SessionID(p.ID) {
		t.Errorf("Sid() = %v, want own id", p.Sid())
	}
	if p.Pgid() != PgroupID(p.ID) {
		t.Errorf("Pgid() = %v, want own id", p.Pgid())
	}
}

func TestCreateProcessChildInheritsParentGroupAndSession(t *testing.T) {
	k := newTestKernel(t)
	parent := mustCreateProcess(t, k, CreateProcessConfig{Name: "parent", NewSession: true, Suspended: true})
	child := mustCreateProcess(t, k, CreateProcessConfig{Name: "child", Parent: parent, Suspended: true})

	if child.Pgid() != parent.Pgid() {
		t.Errorf("child Pgid() = %v, want %v", child.Pgid(), parent.Pgid())
	}
	if child.Sid() != parent.Sid() {
		t.Errorf("child Sid() = %v, want %v", child.Sid(), parent.Sid())
	}
}

func TestKillProcessReapsMainThreadAndRemovesFromIndex(t *testing.T) {
	k := newTestKernel(t)
	parent := k.KernelProcess()
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "victim", Suspended: true})
	_ = k.ResumeThread(p.MainThread())

	status, err := k.KillProcess(p)
	if err != nil {
		t.Fatalf("KillProcess() error = %v", err)
	}
	if !status.Signaled || status.Signal != SigKillThr {
		t.Errorf("status = %+v, want signaled by SigKillThr", status)
	}

	if _, err := k.ProcessByID(p.ID); err != ErrInvalidHandle {
		t.Errorf("ProcessByID() after kill error = %v, want ErrInvalidHandle", err)
	}

	found := false
	for e := parent.children.Front(); e != nil; e = e.Next() {
		if e.Value.(*Process) == p {
			found = true
		}
	}
	if found {
		t.Error("killed process still linked into parent's children list")
	}
}

func TestKillProcessReparentsGrandchildToKernelProcess(t *testing.T) {
	k := newTestKernel(t)
	mid := mustCreateProcess(t, k, CreateProcessConfig{Name: "mid", Suspended: true})
	_ = k.ResumeThread(mid.MainThread())
	grandchild := mustCreateProcess(t, k, CreateProcessConfig{Name: "grandchild", Parent: mid, Suspended: true})

	if _, err := k.KillProcess(mid); err != nil {
		t.Fatalf("KillProcess() error = %v", err)
	}

	if grandchild.Parent() != k.KernelProcess() {
		t.Errorf("grandchild Parent() = %v, want kernel process", grandchild.Parent())
	}
}

func TestSetpgidCreatesGroupAndMovesMembership(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "p", Suspended: true})

	if err := k.Setpgid(p, nil, PgroupID(p.ID)+1000); err != nil {
		t.Fatalf("Setpgid() error = %v", err)
	}
	if p.Pgid() != PgroupID(p.ID)+1000 {
		t.Errorf("Pgid() = %v, want %v", p.Pgid(), PgroupID(p.ID)+1000)
	}
}

func TestSetpgidZeroPgidSelectsTargetOwnID(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "p", Suspended: true})

	if err := k.Setpgid(p, nil, 0); err != nil {
		t.Fatalf("Setpgid() error = %v", err)
	}
	if p.Pgid() != PgroupID(p.ID) {
		t.Errorf("Pgid() = %v, want own id", p.Pgid())
	}
}

func TestSetsidIsIdempotentForASessionLeader(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{Name: "p", Suspended: true})

	sid1, err := k.Setsid(p)
	if err != nil {
		t.Fatalf("Setsid() error = %v", err)
	}
	sid2, err := k.Setsid(p)
	if err != nil {
		t.Fatalf("second Setsid() error = %v", err)
	}
	if sid1 != sid2 {
		t.Errorf("Setsid() not idempotent: %v != %v", sid1, sid2)
	}
}

func TestOrphanedPgroupGetsSighupThenSigcont(t *testing.T) {
	k := newTestKernel(t)

	// Three processes in the same session, each in its own pgroup, chained
	// parent->child->grandchild. Killing the middle process reparents the
	// grandchild to the session leader; the grandchild's own pgroup has no
	// remaining member whose parent sits in the killed process's old
	// pgroup, so reparentChildren must find it orphaned and fan out
	// SIGHUP then SIGCONT to it.
	grandparent := mustCreateProcess(t, k, CreateProcessConfig{Name: "session-leader", NewSession: true, Suspended: true})
	_ = k.ResumeThread(grandparent.MainThread())

	parent := mustCreateProcess(t, k, CreateProcessConfig{Name: "parent", Parent: grandparent, NewPgroup: true, Suspended: true})
	_ = k.ResumeThread(parent.MainThread())

	child := mustCreateProcess(t, k, CreateProcessConfig{Name: "child", Parent: parent, NewPgroup: true, Suspended: true})
	_ = k.ResumeThread(child.MainThread())
	_ = k.SuspendThread(child.MainThread())

	if _, err := k.KillProcess(parent); err != nil {
		t.Fatalf("KillProcess(parent) error = %v", err)
	}

	if child.Parent() != grandparent {
		t.Fatalf("child Parent() = %v, want grandparent (reparented)", child.Parent())
	}
	if child.MainThread().State() != ThreadReady {
		t.Errorf("orphaned pgroup's member state = %v, want ready (SIGHUP then SIGCONT should resume it)", child.MainThread().State())
	}
}
