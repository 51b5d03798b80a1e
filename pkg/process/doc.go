/*
Package process implements a monolithic-kernel process and thread
subsystem: a run-queue scheduler with preemption and priority classes,
a thread lifecycle built around a self-teardown "death stack", a
process lifecycle with orphan detection across process groups and
sessions, and the two-spinlock discipline that orders access to all of
it.

The virtual-memory subsystem, the semaphore and port primitives, the
filesystem I/O context, the ELF loader, architecture-specific context
switching, and networking are treated as external collaborators and
consumed only through the narrow interfaces in the collab subpackage —
see that package's doc comment for the full list.

# Threads and processes

A Thread is the schedulable entity: it has a state, a priority, a
kernel stack, optionally a user stack, and belongs to at most one
Process at a time. A Process is an address-space-and-resource
container; its first thread becomes its main thread, and the process
dies when that thread exits.

	k := process.NewKernel(4, collab.NewReferenceSet())
	kproc := k.KernelProcess()

	p, err := k.CreateProcess(process.CreateProcessConfig{Name: "init", Parent: kproc})
	if err != nil {
		log.Fatal(err)
	}

	status, err := k.WaitOnThread(p.MainThread())

# Process groups and sessions

Every process belongs to exactly one process group and one session.
Setpgid and Setsid move a process between groups; exit and reparenting
detect when a group becomes orphaned and deliver SIGHUP then SIGCONT to
it, matching POSIX job-control semantics.

# Scheduling

The dispatcher keeps one FIFO queue per priority level, split into a
real-time band and a regular band. Selection scans the RT band first,
then the regular band high to low with a probabilistic skip that gives
near-equal priorities a weak form of aging without strict fairness
accounting.
*/
package process
