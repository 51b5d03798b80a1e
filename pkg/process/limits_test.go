package process

import "testing"

func TestEnforcerAddThreadRespectsNoproc(t *testing.T) {
	e := NewEnforcer()
	e.Register(1, Ulimit{Noproc: 2})

	if err := e.AddThread(1); err != nil {
		t.Fatalf("first AddThread() error = %v", err)
	}
	if err := e.AddThread(1); err != nil {
		t.Fatalf("second AddThread() error = %v", err)
	}
	if err := e.AddThread(1); err == nil {
		t.Error("third AddThread() should exceed a Noproc of 2")
	}
}

func TestEnforcerRemoveThreadFreesASlot(t *testing.T) {
	e := NewEnforcer()
	e.Register(1, Ulimit{Noproc: 1})

	if err := e.AddThread(1); err != nil {
		t.Fatalf("AddThread() error = %v", err)
	}
	if err := e.AddThread(1); err == nil {
		t.Fatal("AddThread() should have exceeded a Noproc of 1")
	}
	e.RemoveThread(1)
	if err := e.AddThread(1); err != nil {
		t.Errorf("AddThread() after RemoveThread() error = %v, want nil", err)
	}
}

func TestEnforcerAddThreadOnUnregisteredPidIsNoop(t *testing.T) {
	e := NewEnforcer()
	if err := e.AddThread(99); err != nil {
		t.Errorf("AddThread() on an unregistered pid error = %v, want nil", err)
	}
}

func TestEnforcerRemoveAfterRemoveStopsTracking(t *testing.T) {
	e := NewEnforcer()
	e.Register(1, Ulimit{Noproc: 1})
	e.Remove(1)

	if err := e.AddThread(1); err != nil {
		t.Errorf("AddThread() after Remove() error = %v, want nil (untracked)", err)
	}
}

func TestCreateThreadFailsOnceProcessNoprocIsExhausted(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{
		Name:      "p",
		Suspended: true,
		Limits:    &Ulimit{Noproc: 1}, // the main thread already consumed the only slot
	})

	if _, err := k.CreateThread(CreateThreadConfig{Name: "extra", Process: p}); err == nil {
		t.Error("CreateThread() should fail once the process's Noproc limit is exhausted")
	}
	if p.NumThreads() != 1 {
		t.Errorf("NumThreads() = %d, want 1 (failed create must not attach)", p.NumThreads())
	}
}

func TestKillThreadReleasesItsNoprocSlot(t *testing.T) {
	k := newTestKernel(t)
	p := mustCreateProcess(t, k, CreateProcessConfig{
		Name:      "p",
		Suspended: true,
		Limits:    &Ulimit{Noproc: 2},
	})
	extra, err := k.CreateThread(CreateThreadConfig{Name: "extra", Process: p})
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}

	if _, err := k.KillThread(extra); err != nil {
		t.Fatalf("KillThread() error = %v", err)
	}

	if _, err := k.CreateThread(CreateThreadConfig{Name: "extra2", Process: p}); err != nil {
		t.Errorf("CreateThread() after KillThread() error = %v, want nil (slot should be freed)", err)
	}
}
