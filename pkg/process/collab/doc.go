/*
Package collab defines the narrow interfaces the process/thread
subsystem consumes from external collaborators it does not itself
implement: virtual memory, the semaphore and port primitives, timers,
interrupts, SMP cross-calls, the I/O context, the ELF loader, and
architecture-specific context switching.

Each interface is deliberately thin — it exposes only the capability
the core actually invokes, not a general-purpose subsystem API. Each
comes with one in-memory reference implementation suitable for tests
and for driving the kernel without real hardware; NewReferenceSet
bundles all of them together.

None of these model a real MMU, disk, or CPU. That is the point: the
process/thread core is specified and tested against the interfaces
alone, the same way spec.md treats address spaces, semaphores, and
architecture primitives as opaque collaborators reachable only through
a contract.
*/
package collab
