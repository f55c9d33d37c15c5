package kernel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/schema"
	"github.com/dustin/go-humanize"
)

func (k *Kernel) cmdMemMap(context.Context, []string) error {
	k.logf("User requested memory map display.")
	k.print("Current Memory Map:")

	for _, b := range k.alloc.Snapshot() {
		k.print(formatBlock(b))
	}

	stats := k.alloc.Stats()
	k.printf("  Used: %s of %s units (%s%%), Free: %s units in %d block(s), Largest free: %s units",
		humanize.Comma(int64(stats.Used)),  //nolint:gosec
		humanize.Comma(int64(stats.Total)), //nolint:gosec
		humanize.FtoaWithDigits(100*float64(stats.Used)/float64(stats.Total), 1),
		humanize.Comma(int64(stats.Free)), //nolint:gosec
		stats.FreeBlocks,
		humanize.Comma(int64(stats.LargestFree)), //nolint:gosec
	)

	return nil
}

func formatBlock(b allocation.Block) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "  ID: %s, Addr: %d, Size: %d, Status: %s", b.ID, b.Address, b.Size, b.Status.Kind)

	if b.Label != "" {
		fmt.Fprintf(&sb, ", Label: %s", b.Label)
	}

	if pid := b.Pid(); pid != schema.NoPid {
		fmt.Fprintf(&sb, ", PID: %d", pid)
	}

	return sb.String()
}

// cmdMemAlloc reserves an anonymous user allocation. A pid is consumed from
// the process counter to account for the request, but no process is created
// and the block is not owned by it.
func (k *Kernel) cmdMemAlloc(_ context.Context, args []string) error {
	size, err := strconv.Atoi(firstArg(args))
	if err != nil || size <= 0 {
		k.logf("Failed mem_alloc: Invalid size.")

		return fail(ErrUsage, "Invalid size for mem_alloc.")
	}

	label := strings.Join(args[1:], " ")
	if label == "" {
		k.labelSeq++
		label = fmt.Sprintf("User Allocation %d", k.labelSeq)
	}

	k.logf("System Call: mem_alloc request for %d units for '%s'.", size, label)

	pid := k.procs.NextPid()
	k.logf("Process %d requesting %d units of memory for %s.", pid, size, label)

	id, err := k.alloc.Allocate(uint(size), label, schema.NoPid)
	if err != nil {
		k.logf("Memory allocation failed for PID %d: Not enough contiguous free memory.", pid)

		return fail(err, "Not enough memory for %s.", label)
	}

	if b, ok := k.alloc.Get(id); ok {
		k.logf("Memory allocated for PID %d at %d, size %d.", pid, b.Address, b.Size)
	}

	k.printf("Memory allocated. Block ID: %s, Size: %d, Label: %s", id, size, label)

	return nil
}

// cmdMemFree frees by pid first if the argument is numeric, then by block
// identifier.
func (k *Kernel) cmdMemFree(_ context.Context, args []string) error {
	target := firstArg(args)
	if target == "" {
		k.logf("Failed mem_free: Missing block ID/PID.")

		return fail(ErrUsage, "Missing block ID or PID for mem_free.")
	}

	k.logf("System Call: mem_free request for %s.", target)

	err := allocation.ErrNoSuchBlock
	if pid, ok := schema.ParsePid(target); ok {
		err = k.alloc.FreeByPid(pid)
	}

	if errors.Is(err, schema.ErrNotFound) {
		err = k.alloc.Free(allocation.BlockID(target))
	}

	if err != nil {
		k.logf("mem_free failed: %s invalid or not found.", target)

		return fail(err, "Block/PID %s not found or not eligible for free.", target)
	}

	k.logf("Memory for %s freed and coalesced.", target)
	k.printf("Memory for %s freed.", target)

	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
