package collab

import (
	"fmt"
	"sync"
)

// IOContext is an opaque handle to a process's file-descriptor table
// and working directory, owned by the I/O subsystem and only ever
// touched by the core through Create/Clone/Free.
type IOContext interface {
	ID() string
}

// IOContexts is the capability surface the core needs from the I/O
// subsystem: creating a fresh context for a new process, cloning a
// parent's context for fork-style creation, and freeing one when its
// owning process dies.
type IOContexts interface {
	Create() (IOContext, error)
	Clone(parent IOContext) (IOContext, error)
	Free(IOContext) error
}

type memIOContext struct{ id string }

func (c *memIOContext) ID() string { return c.id }

// MemIOContexts is an in-memory reference IOContexts. It tracks only
// that a context exists and which context it was cloned from; it does
// not model file descriptors.
type MemIOContexts struct {
	mu      sync.Mutex
	next    int64
	clones  map[string]string
	live    map[string]bool
}

// NewMemIOContexts creates a reference I/O context service.
func NewMemIOContexts() *MemIOContexts {
	return &MemIOContexts{clones: make(map[string]string), live: make(map[string]bool)}
}

func (m *MemIOContexts) Create() (IOContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("io#%d", m.next)
	m.live[id] = true
	return &memIOContext{id: id}, nil
}

func (m *MemIOContexts) Clone(parent IOContext) (IOContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if parent == nil || !m.live[parent.ID()] {
		return nil, fmt.Errorf("collab: clone of unknown io context")
	}
	m.next++
	id := fmt.Sprintf("io#%d", m.next)
	m.live[id] = true
	m.clones[id] = parent.ID()
	return &memIOContext{id: id}, nil
}

func (m *MemIOContexts) Free(c IOContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, c.ID())
	delete(m.clones, c.ID())
	return nil
}
