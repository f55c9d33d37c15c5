package kernel

import (
	"context"
	"errors"
	"strconv"

	"github.com/desertwitch/forthos/internal/process"
	"github.com/desertwitch/forthos/internal/schema"
)

// parsePid parses a pid argument. Unlike [schema.ParsePid], zero is accepted
// so that it reaches the protection check of the process table.
func parsePid(s string) (schema.Pid, bool) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return schema.NoPid, false
	}

	return schema.Pid(n), true
}

func (k *Kernel) cmdPs(context.Context, []string) error {
	k.logf("Userland 'ps' command executed.")

	procs := k.procs.List()
	if len(procs) == 0 {
		k.print("No active processes.")

		return nil
	}

	k.print("PID\tUSER\tPRI\tSTATUS\t\tMEM\tCOMMAND")

	for _, p := range procs {
		k.printf("%d\t%s\t%d\t%-8s\t%dkb\t%s", p.Pid, p.User, p.Priority, p.Status, p.MemoryFootprint, p.Command)
	}

	return nil
}

func (k *Kernel) cmdKill(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fail(ErrUsage, "Usage: kill <pid>")
	}

	pid, ok := parsePid(args[0])
	if !ok {
		return fail(ErrUsage, "PID must be a number.")
	}

	_, hasTask := k.sched.Owned(pid)

	p, err := k.procs.Terminate(pid)
	switch {
	case errors.Is(err, schema.ErrPermissionDenied):
		k.logf("Attempt to kill system process %d blocked.", pid)

		return fail(err, "Cannot kill essential system process PID %d.", pid)
	case errors.Is(err, schema.ErrNotFound):
		return fail(err, "Process with PID %d not found.", pid)
	case err != nil:
		return fail(err, "Failed to terminate process %d.", pid)
	}

	k.printf("Process %d (%s) terminated.", pid, p.Command)
	k.logf("Process %d (%s) killed by user.", pid, p.Command)
	k.logf("Memory for PID %d freed and coalesced.", pid)

	if hasTask {
		k.logf("Cancelled scheduled task of killed PID %d.", pid)
	}

	return nil
}

func (k *Kernel) cmdNice(_ context.Context, args []string) error {
	if len(args) < 2 { //nolint:mnd
		return fail(ErrUsage, "Usage: nice <pid> <priority>")
	}

	pid, okPid := parsePid(args[0])
	priority, err := strconv.Atoi(args[1])
	if !okPid || err != nil {
		return fail(ErrUsage, "PID and priority must be numbers.")
	}

	warn, err := k.procs.SetPriority(pid, priority)
	switch {
	case errors.Is(err, process.ErrPriorityRange):
		return fail(err, "Priority must be between %d (high) and %d (low).", process.MinPriority, process.MaxPriority)
	case err != nil:
		return fail(err, "Process with PID %d not found.", pid)
	}

	if warn {
		k.printf("Warning: Changing priority of system process PID %d.", pid)
	}

	p, _ := k.procs.Get(pid)

	k.printf("Priority of process %d (%s) changed to %d.", pid, p.Command, priority)
	k.logf("Priority for PID %d set to %d.", pid, priority)

	return nil
}
