package process

import "testing"

func TestNewCPUHasNoCurrentOrIdleThreadYet(t *testing.T) {
	c := newCPU(3)
	if c.ID != 3 {
		t.Errorf("ID = %d, want 3", c.ID)
	}
	if c.Current() != nil {
		t.Error("Current() = non-nil, want nil before the kernel assigns an idle thread")
	}
}

func TestCPUIdleTimeAccumulates(t *testing.T) {
	c := newCPU(0)
	c.addIdleTime(quantumDuration)
	c.addIdleTime(quantumDuration)
	if got := c.IdleTime(); got != 2*quantumDuration {
		t.Errorf("IdleTime() = %v, want %v", got, 2*quantumDuration)
	}
}

func TestCPUFPUOwnership(t *testing.T) {
	c := newCPU(0)
	th := &Thread{ID: 1}

	owner, saved := c.fpuOwner()
	if owner != nil || saved {
		t.Errorf("fpuOwner() = (%v, %v), want (nil, false) initially", owner, saved)
	}

	c.setFPUOwner(th, true)
	owner, saved = c.fpuOwner()
	if owner != th || !saved {
		t.Errorf("fpuOwner() = (%v, %v), want (%v, true)", owner, saved, th)
	}
}

func TestSpawnIdleThreadIsReadyAndNeverEnqueued(t *testing.T) {
	k := newTestKernel(t)
	cpu := k.CPUs()[0]

	idle := cpu.IdleThread()
	if idle == nil {
		t.Fatal("IdleThread() = nil")
	}
	if idle.State() != ThreadReady {
		t.Errorf("idle thread State() = %v, want ready", idle.State())
	}
	if idle.Priority() != IdlePriority {
		t.Errorf("idle thread Priority() = %d, want %d", idle.Priority(), IdlePriority)
	}
	if idle.runElem != nil {
		t.Error("idle thread should never be linked into a run queue level")
	}
}
