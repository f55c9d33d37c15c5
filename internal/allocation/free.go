package allocation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/desertwitch/forthos/internal/schema"
)

// Free releases the block with the given identifier. Only process and user
// allocations can be freed; kernel, VM and already free blocks are reported
// as not found. Adjacent free blocks are coalesced afterwards.
func (a *Handler) Free(id BlockID) error {
	a.Lock()
	defer a.Unlock()

	for i, b := range a.blocks {
		if b.ID == id && b.Status.Freeable() {
			a.release(i)

			return nil
		}
	}

	return fmt.Errorf("(alloc) block %q: %w", id, ErrNoSuchBlock)
}

// FreeByPid releases the process or user allocation owned by pid. Adjacent
// free blocks are coalesced afterwards.
func (a *Handler) FreeByPid(pid schema.Pid) error {
	a.Lock()
	defer a.Unlock()

	if pid != schema.NoPid {
		for i, b := range a.blocks {
			if b.Pid() == pid && b.Status.Freeable() {
				a.release(i)

				return nil
			}
		}
	}

	return fmt.Errorf("(alloc) pid %d: %w", pid, ErrNoSuchBlock)
}

// release marks the block at idx as free and coalesces. Must be called with
// the lock held.
func (a *Handler) release(idx int) {
	freed := a.blocks[idx]

	a.blocks[idx].Status = Free()
	a.blocks[idx].Label = ""

	slog.Debug("Freed block",
		"id", freed.ID,
		"addr", freed.Address,
		"size", freed.Size,
		"status", freed.Status,
	)

	a.coalesce()
}

// coalesce merges every maximal run of adjacent free blocks into a single
// free block with a new identifier. Must be called with the lock held.
func (a *Handler) coalesce() {
	sort.Slice(a.blocks, func(i, j int) bool {
		return a.blocks[i].Address < a.blocks[j].Address
	})

	merged := make([]Block, 0, len(a.blocks))

	for i := 0; i < len(a.blocks); i++ {
		current := a.blocks[i]

		if current.IsFree() {
			j := i + 1
			for j < len(a.blocks) && a.blocks[j].IsFree() && a.blocks[j].Address == current.End() {
				current.Size += a.blocks[j].Size
				j++
			}

			if j > i+1 {
				current.ID = a.newID("mem_free_coalesced_")
				slog.Debug("Coalesced free blocks",
					"id", current.ID,
					"addr", current.Address,
					"size", current.Size,
					"merged", j-i,
				)
			}

			i = j - 1
		}

		merged = append(merged, current)
	}

	a.blocks = merged
}
