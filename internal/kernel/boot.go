package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/desertwitch/forthos/internal/filesystem"
	"github.com/desertwitch/forthos/internal/queue"
	"github.com/desertwitch/forthos/internal/schema"
	"github.com/desertwitch/forthos/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// bootTask is the name of the scheduled boot sequence.
const bootTask = "boot"

// scheduleBoot queues the boot message sequence as an ownerless task that
// cannot be cancelled. Its last step finishes the initialization.
func (k *Kernel) scheduleBoot() error {
	speed := time.Duration(max(k.cfg.BootSpeed, 1))

	k.emit(schema.OutputSystem, " ")

	steps := make([]queue.Step, 0, len(k.image.Boot.Steps)+1)

	for _, bs := range k.image.Boot.Steps {
		steps = append(steps, queue.Step{
			Delay: bs.Delay / speed,
			Run: k.traced(bootTask, func() {
				k.emit(schema.OutputSystem, bs.Message)
				k.progress = bs.Progress
				if bs.KernelLog != "" {
					k.logf("%s", bs.KernelLog)
				}
			}),
		})
	}

	steps = append(steps, queue.Step{
		Delay: k.image.Boot.Settle / speed,
		Run:   k.traced(bootTask, k.finishBoot),
	})

	if _, err := k.sched.Schedule(queue.MultiStage(schema.NoPid, bootTask, steps...)); err != nil {
		return fmt.Errorf("(kernel) failed to schedule boot: %w", err)
	}

	return nil
}

// finishBoot brings up the process table and the shell once the boot
// messages are done.
func (k *Kernel) finishBoot() {
	k.booting = false
	k.progress = 100

	k.logf("ForthOS System Initializing post-boot...")
	k.logf("Memory Manager Initialized.")
	k.logf("Total Memory: %d units. Kernel: %d, VM: %d.", k.cfg.TotalMemory, k.cfg.KernelMemory, k.cfg.VMMemory)

	k.procs.Boot(k.cfg.KernelMemory, k.cfg.VMMemory)
	k.logf("Process Manager Initialized. Essential processes started.")

	k.cwd = filesystem.Root
	if k.fs.IsDir(k.image.Home) {
		k.cwd = filesystem.Normalize(k.image.Home)
	}
	k.logf("Filesystem initialized. Current path: %s", k.cwd)

	if k.host != "" {
		k.logf("Host: %s", k.host)
	}

	k.logf("MicroPython Userland Ready.")

	if k.image.Motd != "" {
		if motd, err := k.fs.Read(k.image.Motd); err == nil && motd != "" {
			k.print(motd)
		}
	}

	k.printf("Type 'help' for available commands. Current directory: %s", k.cwd)
}

// traced wraps a scheduler step into a span.
func (k *Kernel) traced(name string, run func()) func() {
	return func() {
		_, span := k.tracer.Start(context.Background(), "step "+name)
		span.SetAttributes(attribute.Int64("sim.time_ms", k.sched.Now().Milliseconds()))
		run()
		tracing.End(span, nil)
	}
}
