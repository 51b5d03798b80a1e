package collab

import (
	"errors"
	"fmt"
	"sync"
)

// ErrImageNotFound is returned by ELFLoader.Load for an unregistered
// image name.
var ErrImageNotFound = errors.New("elf: image not found")

// Image describes a loaded executable image well enough for the core
// to seed a new process's main thread: its entry point and the user
// stack size it requests.
type Image struct {
	Name        string
	EntryPoint  uintptr
	StackSize   int
	Argv        []string
}

// ELFLoader is the capability surface the core needs from the
// executable loader: map an image into a freshly created address
// space and return enough of it to start the main thread.
type ELFLoader interface {
	Load(as AddressSpace, name string, argv []string) (*Image, error)
}

// MemELFLoader is an in-memory reference ELFLoader. Images are
// registered ahead of time with Register; Load never touches a real
// file system.
type MemELFLoader struct {
	mu     sync.Mutex
	images map[string]Image
}

// NewMemELFLoader creates a reference loader with no registered
// images.
func NewMemELFLoader() *MemELFLoader {
	return &MemELFLoader{images: make(map[string]Image)}
}

// Register adds a loadable image under name. entry and stackSize
// describe the fabricated binary's properties.
func (l *MemELFLoader) Register(name string, entry uintptr, stackSize int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.images[name] = Image{Name: name, EntryPoint: entry, StackSize: stackSize}
}

func (l *MemELFLoader) Load(as AddressSpace, name string, argv []string) (*Image, error) {
	l.mu.Lock()
	img, ok := l.images[name]
	l.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
	}
	out := img
	out.Argv = argv
	return &out, nil
}
