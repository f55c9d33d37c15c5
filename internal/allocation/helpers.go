package allocation

import (
	"fmt"
	"strconv"
)

// Stats summarizes the memory map.
type Stats struct {
	Total       uint
	Used        uint
	Free        uint
	LargestFree uint
	FreeBlocks  int
}

// Stats returns a [Stats] summary of the current memory map.
func (a *Handler) Stats() Stats {
	a.RLock()
	defer a.RUnlock()

	stats := Stats{Total: a.total}

	for _, b := range a.blocks {
		if !b.IsFree() {
			stats.Used += b.Size

			continue
		}

		stats.Free += b.Size
		stats.FreeBlocks++
		stats.LargestFree = max(stats.LargestFree, b.Size)
	}

	return stats
}

// Verify checks the memory map invariants: blocks are sorted, contiguous,
// non-overlapping, cover the whole address space and no two adjacent blocks
// are both free.
func (a *Handler) Verify() error {
	a.RLock()
	defer a.RUnlock()

	var expected uint

	for i, b := range a.blocks {
		if b.Size == 0 {
			return fmt.Errorf("(alloc) block %s has zero size: %w", b.ID, ErrBrokenInvariant)
		}
		if b.Address != expected {
			return fmt.Errorf("(alloc) block %s at %d, expected %d: %w", b.ID, b.Address, expected, ErrBrokenInvariant)
		}
		if i > 0 && b.IsFree() && a.blocks[i-1].IsFree() {
			return fmt.Errorf("(alloc) adjacent free blocks at %d: %w", b.Address, ErrBrokenInvariant)
		}
		expected = b.End()
	}

	if expected != a.total {
		return fmt.Errorf("(alloc) map covers %d of %d units: %w", expected, a.total, ErrBrokenInvariant)
	}

	return nil
}

// firstFit returns the index of the lowest-addressed free block of at least
// size units, or -1. Must be called with the lock held.
func (a *Handler) firstFit(size uint) int {
	for i, b := range a.blocks {
		if b.IsFree() && b.Size >= size {
			return i
		}
	}

	return -1
}

// newID returns a new unique [BlockID] with the given prefix. Must be called
// with the lock held or during construction.
func (a *Handler) newID(prefix string) BlockID {
	a.nextID++

	return BlockID(prefix + strconv.FormatUint(a.nextID, 10))
}
