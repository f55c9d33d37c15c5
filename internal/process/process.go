// Package process implements the process table of the simulated kernel. It
// assigns monotonic, never reused pids, accounts every process' memory with
// the address-space allocator and protects the processes started at boot.
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/clock"
	"github.com/desertwitch/forthos/internal/schema"
)

const (
	// MinPriority is the highest scheduling priority.
	MinPriority = 0

	// MaxPriority is the lowest scheduling priority.
	MaxPriority = 19

	// DefaultPriority is the priority of processes started by the user.
	DefaultPriority = 10

	// StrictProtectedMax is the highest pid that can never be terminated,
	// whether it currently exists or not.
	StrictProtectedMax schema.Pid = 2

	// PidKernel is the pid of the kernel task.
	PidKernel schema.Pid = 1

	// PidVirtualMachine is the pid of the VM.
	PidVirtualMachine schema.Pid = 2

	// PidShell is the pid of the shell.
	PidShell schema.Pid = 3
)

type allocProvider interface {
	Allocate(size uint, label string, pid schema.Pid) (allocation.BlockID, error)
	FreeByPid(pid schema.Pid) error
}

type taskCanceller interface {
	Cancel(pid schema.Pid) bool
}

// Handler is the principal implementation of the process table.
type Handler struct {
	sync.RWMutex
	allocHandler  allocProvider
	tasks         taskCanceller
	defaultMemory uint
	nextPid       schema.Pid
	processes     map[schema.Pid]*Process
	protected     map[schema.Pid]struct{}
}

// NewHandler returns a pointer to a new, empty process table. Processes that
// are created without an explicit memory request receive defaultMemory units.
func NewHandler(allocHandler allocProvider, tasks taskCanceller, defaultMemory uint) *Handler {
	return &Handler{
		allocHandler:  allocHandler,
		tasks:         tasks,
		defaultMemory: defaultMemory,
		nextPid:       1,
		processes:     make(map[schema.Pid]*Process),
		protected:     make(map[schema.Pid]struct{}),
	}
}

// Boot registers the essential processes: the kernel task, the VM and the
// shell. Their memory is the boot-reserved regions of the address space, so
// nothing is allocated for them. All of them are protected.
func (h *Handler) Boot(kernelMemory uint, vmMemory uint) []schema.Pid {
	h.Lock()
	defer h.Unlock()

	now := clock.Now()

	essentials := []Process{
		{Command: "[kernel_task]", Priority: MinPriority, User: UserRoot, MemoryFootprint: kernelMemory},
		{Command: "micropython_vm", Priority: DefaultPriority, User: UserRoot, MemoryFootprint: vmMemory},
		{Command: "sh (CLI)", Priority: DefaultPriority, User: UserUser},
	}

	pids := make([]schema.Pid, 0, len(essentials))

	for _, p := range essentials {
		p.Pid = h.mintPid()
		p.Status = StatusRunning
		p.StartTime = now

		h.processes[p.Pid] = &p
		h.protected[p.Pid] = struct{}{}
		pids = append(pids, p.Pid)
	}

	return pids
}

// Create starts a new process and allocates its memory, using the default
// amount when requestedMemory is zero. The pid is consumed even when the
// creation fails, so the returned pid is meaningful for reporting in both
// cases. On allocation failure no process is recorded.
func (h *Handler) Create(command string, priority int, user User, requestedMemory uint) (schema.Pid, error) {
	h.Lock()
	defer h.Unlock()

	pid := h.mintPid()

	if priority < MinPriority || priority > MaxPriority {
		return pid, fmt.Errorf("(proc) %w", ErrPriorityRange)
	}

	size := requestedMemory
	if size == 0 {
		size = h.defaultMemory
	}

	label := fmt.Sprintf("Process %d (%s)", pid, command)
	if _, err := h.allocHandler.Allocate(size, label, pid); err != nil {
		slog.Debug("Process creation failed",
			"pid", pid,
			"command", command,
			"size", size,
			"err", err,
		)

		return pid, fmt.Errorf("(proc) pid %d: %w: %w", pid, ErrNoMemory, err)
	}

	h.processes[pid] = &Process{
		Pid:             pid,
		Command:         command,
		Status:          StatusRunning,
		Priority:        priority,
		StartTime:       clock.Now(),
		User:            user,
		MemoryFootprint: size,
	}

	return pid, nil
}

// NextPid consumes and returns a pid without creating a process.
func (h *Handler) NextPid() schema.Pid {
	h.Lock()
	defer h.Unlock()

	return h.mintPid()
}

// Terminate removes a process, frees its memory and cancels any of its
// scheduled tasks. Pids up to [StrictProtectedMax] are always refused, even
// if they do not exist, as is any other boot-protected process.
func (h *Handler) Terminate(pid schema.Pid) (Process, error) {
	h.Lock()

	if _, protected := h.protected[pid]; protected || pid <= StrictProtectedMax {
		h.Unlock()

		return Process{}, fmt.Errorf("(proc) pid %d: %w", pid, ErrProtected)
	}

	p, exists := h.processes[pid]
	if !exists {
		h.Unlock()

		return Process{}, fmt.Errorf("(proc) pid %d: %w", pid, ErrNoSuchProcess)
	}

	delete(h.processes, pid)
	h.Unlock()

	if err := h.allocHandler.FreeByPid(pid); err != nil && !errors.Is(err, schema.ErrNotFound) {
		return *p, fmt.Errorf("(proc) pid %d: %w", pid, err)
	}

	if h.tasks != nil {
		h.tasks.Cancel(pid)
	}

	return *p, nil
}

// SetPriority changes the priority of a process. Changing the priority of a
// protected process succeeds, but warn is returned as true.
func (h *Handler) SetPriority(pid schema.Pid, priority int) (bool, error) {
	if priority < MinPriority || priority > MaxPriority {
		return false, fmt.Errorf("(proc) %w", ErrPriorityRange)
	}

	h.Lock()
	defer h.Unlock()

	p, exists := h.processes[pid]
	if !exists {
		return false, fmt.Errorf("(proc) pid %d: %w", pid, ErrNoSuchProcess)
	}

	p.Priority = priority
	_, warn := h.protected[pid]

	return warn, nil
}

// Get returns a copy of the process with the given pid.
func (h *Handler) Get(pid schema.Pid) (Process, bool) {
	h.RLock()
	defer h.RUnlock()

	p, exists := h.processes[pid]
	if !exists {
		return Process{}, false
	}

	return *p, true
}

// IsProtected returns whether pid belongs to a boot-protected process.
func (h *Handler) IsProtected(pid schema.Pid) bool {
	h.RLock()
	defer h.RUnlock()

	_, protected := h.protected[pid]

	return protected || pid <= StrictProtectedMax
}

// List returns copies of all processes in ascending pid order.
func (h *Handler) List() []Process {
	h.RLock()
	defer h.RUnlock()

	out := make([]Process, 0, len(h.processes))
	for _, p := range h.processes {
		out = append(out, *p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Pid < out[j].Pid
	})

	return out
}

// mintPid returns the next pid and advances the counter. Must be called with
// the lock held.
func (h *Handler) mintPid() schema.Pid {
	pid := h.nextPid
	h.nextPid++

	return pid
}
