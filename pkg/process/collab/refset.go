package collab

// ReferenceSet bundles one in-memory reference implementation of every
// external collaborator the core consumes. Production embedders are
// expected to provide their own VM/Semaphore/Timer/etc backed by real
// hardware and subsystems; ReferenceSet exists so the core can be
// exercised and tested standalone.
type ReferenceSet struct {
	VM        VM
	Semaphore Semaphore
	Timer     Timer
	Interrupt Interrupt
	SMP       SMP
	IOContext IOContexts
	ELF       ELFLoader
	Arch      Arch
	Ports     Ports
	Net       Datagram
}

// NewReferenceSet constructs a ReferenceSet with the package's
// in-memory implementations wired together.
func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{
		VM:        NewMemVM(),
		Semaphore: NewMemSemaphore(),
		Timer:     NewWallTimer(),
		Interrupt: NewLocalInterrupt(),
		SMP:       NewCountingSMP(),
		IOContext: NewMemIOContexts(),
		ELF:       NewMemELFLoader(),
		Arch:      NewHostArch(),
		Ports:     NewOwnerTracker(),
		Net:       NewNullDatagram(),
	}
}
