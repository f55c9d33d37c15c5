// Package kernel implements the simulated kernel: one state aggregate over the
// address-space allocator, the process table, the filesystem tree and the
// script scheduler, and the command interpreter that drives them.
//
// The kernel is single-writer. Every command and every fired scheduler step
// holds the kernel lock from start to end, so no reader ever observes a
// half-applied transition.
package kernel

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/clock"
	"github.com/desertwitch/forthos/internal/configuration"
	"github.com/desertwitch/forthos/internal/filesystem"
	"github.com/desertwitch/forthos/internal/idgen"
	"github.com/desertwitch/forthos/internal/process"
	"github.com/desertwitch/forthos/internal/queue"
	"github.com/desertwitch/forthos/internal/schema"
	"github.com/desertwitch/forthos/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

// Options are the optional collaborators of a [Kernel].
type Options struct {
	// Tracer records commands and fired steps. Defaults to the global tracer.
	Tracer trace.Tracer

	// Host is a description of the host system, written to the kernel log
	// at the end of booting.
	Host string
}

// Kernel is the state aggregate of the simulated kernel.
type Kernel struct {
	sync.RWMutex
	cfg    configuration.Config
	image  *configuration.Image
	host   string
	tracer trace.Tracer
	rng    *rand.Rand

	alloc *allocation.Handler
	procs *process.Handler
	fs    *filesystem.Handler
	sched *queue.Scheduler

	commands []command

	session  string
	started  time.Time
	cwd      string
	booting  bool
	progress int
	labelSeq int
	entrySeq uint64
	output   []schema.OutputEntry
	klog     []schema.KernelLogEntry
}

// New returns a pointer to a new [Kernel] laid out according to cfg and
// seeded from img. The boot sequence is scheduled but not yet run; the kernel
// rejects commands until enough simulated time has passed for it to finish.
func New(cfg configuration.Config, img *configuration.Image, opts Options) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("(kernel) %w", err)
	}

	alloc, err := allocation.NewHandler(allocation.Layout{
		TotalSize:  cfg.TotalMemory,
		KernelSize: cfg.KernelMemory,
		VMSize:     cfg.VMMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("(kernel) %w", err)
	}

	sched := queue.NewScheduler()

	k := &Kernel{
		cfg:     cfg,
		image:   img,
		host:    opts.Host,
		tracer:  opts.Tracer,
		alloc:   alloc,
		procs:   process.NewHandler(alloc, sched, cfg.ProcessMemory),
		fs:      filesystem.NewHandler(),
		sched:   sched,
		session: idgen.New(),
		started: clock.Now(),
		cwd:     filesystem.Root,
		booting: true,
	}

	if k.tracer == nil {
		k.tracer = tracing.Global()
	}

	seed := uint64(cfg.Seed) //nolint:gosec
	if cfg.Seed == 0 {
		seed = uint64(clock.Now().UnixNano()) //nolint:gosec
	}
	k.rng = rand.New(rand.NewPCG(seed, seed>>1)) //nolint:gosec

	k.commands = k.commandTable()

	if err := k.seedFilesystem(); err != nil {
		return nil, err
	}

	if err := k.scheduleBoot(); err != nil {
		return nil, err
	}

	return k, nil
}

// seedFilesystem creates the nodes of the boot image.
func (k *Kernel) seedFilesystem() error {
	for _, n := range k.image.Filesystem {
		var err error

		switch n.Type {
		case configuration.NodeDirectory:
			err = k.fs.CreateDirectory(n.Path)
		default:
			err = k.fs.WriteFile(n.Path, n.Content)
		}

		if err != nil {
			return fmt.Errorf("(kernel) failed to seed %s: %w", n.Path, err)
		}
	}

	return nil
}

// Advance moves the simulated clock forward by d, firing every due step of
// the boot sequence and of running scripts. It returns the number of fired
// steps.
func (k *Kernel) Advance(d time.Duration) int {
	k.Lock()
	defer k.Unlock()

	return k.sched.Advance(d)
}

// Output returns a copy of the output log.
func (k *Kernel) Output() []schema.OutputEntry {
	k.RLock()
	defer k.RUnlock()

	return append([]schema.OutputEntry(nil), k.output...)
}

// KernelLog returns a copy of the kernel log.
func (k *Kernel) KernelLog() []schema.KernelLogEntry {
	k.RLock()
	defer k.RUnlock()

	return append([]schema.KernelLogEntry(nil), k.klog...)
}

// MemoryMap returns a snapshot of the memory blocks in address order.
func (k *Kernel) MemoryMap() []allocation.Block {
	k.RLock()
	defer k.RUnlock()

	return k.alloc.Snapshot()
}

// MemoryStats returns a summary of the memory map.
func (k *Kernel) MemoryStats() allocation.Stats {
	k.RLock()
	defer k.RUnlock()

	return k.alloc.Stats()
}

// Processes returns a snapshot of the process table in pid order.
func (k *Kernel) Processes() []process.Process {
	k.RLock()
	defer k.RUnlock()

	return k.procs.List()
}

// Tasks returns a snapshot of the scheduled tasks.
func (k *Kernel) Tasks() []queue.ScheduledTask {
	k.RLock()
	defer k.RUnlock()

	return k.sched.Pending()
}

// Cwd returns the current working directory.
func (k *Kernel) Cwd() string {
	k.RLock()
	defer k.RUnlock()

	return k.cwd
}

// Booting returns whether the boot sequence is still in progress.
func (k *Kernel) Booting() bool {
	k.RLock()
	defer k.RUnlock()

	return k.booting
}

// BootProgress returns the progress of the boot sequence in percent.
func (k *Kernel) BootProgress() int {
	k.RLock()
	defer k.RUnlock()

	return k.progress
}

// Session returns the identifier of this kernel session.
func (k *Kernel) Session() string {
	return k.session
}

// Uptime returns the elapsed simulated time.
func (k *Kernel) Uptime() time.Duration {
	return k.sched.Now()
}
