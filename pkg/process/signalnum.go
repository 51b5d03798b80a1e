package process

import "golang.org/x/sys/unix"

// Signal is a signal number. Values are the real POSIX numbers from
// golang.org/x/sys/unix rather than a private numbering, so that a
// caller comparing against os/signal or golang.org/x/sys/unix
// constants elsewhere in a larger program sees the same values.
type Signal int

const (
	SigHup    Signal = Signal(unix.SIGHUP)
	SigInt    Signal = Signal(unix.SIGINT)
	SigKill   Signal = Signal(unix.SIGKILL)
	SigAlrm   Signal = Signal(unix.SIGALRM)
	SigTerm   Signal = Signal(unix.SIGTERM)
	SigChld   Signal = Signal(unix.SIGCHLD)
	SigCont   Signal = Signal(unix.SIGCONT)
	SigStop   Signal = Signal(unix.SIGSTOP)
	SigTstp   Signal = Signal(unix.SIGTSTP)
	SigTtin   Signal = Signal(unix.SIGTTIN)
	SigTtou   Signal = Signal(unix.SIGTTOU)
	SigUsr1   Signal = Signal(unix.SIGUSR1)
	SigUsr2   Signal = Signal(unix.SIGUSR2)
	// SigKillThr is a kernel-internal signal used by KillThread to ask
	// a single thread (not its whole process) to terminate.
	SigKillThr Signal = Signal(64)
)

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return unix.SignalName(unixSignal(s))
}

func unixSignal(s Signal) unix.Signal { return unix.Signal(int(s)) }

var signalNames = map[Signal]string{
	SigKillThr: "SIGKILLTHR",
}

// SignalFlag modifies how a signal is delivered or how a blocking
// primitive behaves.
type SignalFlag uint32

const (
	// FlagNoResched defers the dispatcher invocation to the outermost
	// caller, letting a multi-target fan-out (e.g. a process-group
	// signal) perform at most one reschedule.
	FlagNoResched SignalFlag = 1 << iota
	// FlagInterruptable allows a pending signal to abort a blocking wait.
	FlagInterruptable
)

// SignalSet is a set of pending or blocked signals.
type SignalSet map[Signal]struct{}

// NewSignalSet builds a SignalSet from the given signals.
func NewSignalSet(sigs ...Signal) SignalSet {
	s := make(SignalSet, len(sigs))
	for _, sig := range sigs {
		s[sig] = struct{}{}
	}
	return s
}

// Has reports whether sig is a member of the set.
func (s SignalSet) Has(sig Signal) bool {
	_, ok := s[sig]
	return ok
}

// Add inserts sig into the set.
func (s SignalSet) Add(sig Signal) { s[sig] = struct{}{} }

// Remove deletes sig from the set.
func (s SignalSet) Remove(sig Signal) { delete(s, sig) }

// Len returns the number of pending signals.
func (s SignalSet) Len() int { return len(s) }

// SignalAction is the disposition a thread has registered for a signal.
type SignalAction int

const (
	// ActionDefault applies the kernel's built-in behavior for the signal.
	ActionDefault SignalAction = iota
	// ActionIgnore discards the signal on delivery.
	ActionIgnore
	// ActionHandler invokes a registered user handler (opaque to the core).
	ActionHandler
)
