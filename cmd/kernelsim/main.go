// Command kernelsim drives the process kernel core through a handful
// of scenarios a real boot sequence would exercise: process creation,
// job control, priority scheduling, and process exit. It is a
// reference driver, not a real operating system — it runs every
// "thread" as a plain Go function invoked at the point a real
// architecture context switch would first jump into it.
package main

import (
	"log"
	"os"
	"time"

	"kestrel/pkg/process"
	"kestrel/pkg/process/collab"
)

var logger = log.New(os.Stderr, "kernelsim: ", log.LstdFlags)

func main() {
	coll := collab.NewReferenceSet()
	if loader, ok := coll.ELF.(*collab.MemELFLoader); ok {
		loader.Register("shell", 0x1000, 1<<16)
		loader.Register("worker", 0x2000, 1<<16)
	}

	k := process.NewKernel(2, coll)
	logger.Printf("kernel up: %d CPUs, kernel process %d", len(k.CPUs()), k.KernelProcess().ID)

	shell := spawn(k, "shell", nil, "ready for jobs")
	runOnce(k, shell)

	logger.Println("--- job control ---")
	worker := spawn(k, "worker", shell, "crunching numbers")
	if _, err := k.Setsid(worker); err != nil {
		logger.Fatalf("setsid: %v", err)
	}
	runOnce(k, worker)

	if err := k.SuspendThread(worker.MainThread()); err != nil {
		logger.Fatalf("suspend: %v", err)
	}
	logger.Printf("worker state after SIGSTOP: %s", worker.MainThread().State())

	if err := k.ResumeThread(worker.MainThread()); err != nil {
		logger.Fatalf("resume: %v", err)
	}
	logger.Printf("worker state after SIGCONT: %s", worker.MainThread().State())

	logger.Println("--- priority scheduling ---")
	cpu := k.CPUs()[0]
	for i := 0; i < 4; i++ {
		runOnce(k, spawn(k, "worker", shell, "batch job"))
	}
	for i := 0; i < 5; i++ {
		next := k.Dispatch(cpu)
		logger.Printf("dispatch %d: running %q (priority %d)", i, next.Name, next.Priority())
	}

	logger.Println("--- exit and reaping ---")
	status, err := k.KillProcess(worker)
	if err != nil {
		logger.Fatalf("kill worker: %v", err)
	}
	logger.Printf("worker exited: signaled=%v signal=%v code=%d", status.Signaled, status.Signal, status.Code)

	for _, p := range k.Processes() {
		logger.Printf("still alive: pid=%d name=%s state=%s", p.ID, p.Name, p.State())
	}
}

// spawn creates a suspended process whose entry point logs msg once
// run and returns it still suspended; callers decide when to resume.
func spawn(k *process.Kernel, image string, parent *process.Process, msg string) *process.Process {
	p, err := k.CreateProcess(process.CreateProcessConfig{
		Name:      image,
		Parent:    parent,
		Suspended: true,
		Entry: func(args []string) {
			logger.Printf("[%s] %s", image, msg)
		},
	})
	if err != nil {
		logger.Fatalf("create process %q: %v", image, err)
	}
	return p
}

// runOnce resumes p's main thread, dispatches it onto a CPU, and runs
// its recorded entry point exactly once — the bookkeeping Dispatch
// performs plus the entry invocation a real context switch would
// perform as its last step.
func runOnce(k *process.Kernel, p *process.Process) {
	main := p.MainThread()
	if err := k.ResumeThread(main); err != nil {
		logger.Fatalf("resume %s: %v", p.Name, err)
	}
	cpu := k.CPUs()[0]
	current := k.Dispatch(cpu)
	for current != main {
		current = k.Dispatch(cpu)
	}
	k.KernelEntry(current)
	current.RunEntry()
	k.KernelExit(current)
	time.Sleep(time.Millisecond)
}
