// Package allocation implements the address-space allocator of the simulated
// kernel. It owns the memory map and provides first-fit allocation with block
// splitting, as well as freeing with maximal coalescing of free neighbors.
package allocation

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/desertwitch/forthos/internal/schema"
)

const (
	// LabelKernel is the label of the boot-reserved kernel region.
	LabelKernel = "Forth Kernel"

	// LabelVirtualMachine is the label of the boot-reserved VM region.
	LabelVirtualMachine = "MicroPython VM"
)

// Layout describes the boot partitioning of the address space.
type Layout struct {
	TotalSize  uint
	KernelSize uint
	VMSize     uint
}

// Handler is the principal implementation of the address-space allocator.
// The blocks are always kept sorted by address, contiguous and covering the
// whole address space.
type Handler struct {
	sync.RWMutex
	total  uint
	blocks []Block
	nextID uint64
}

// NewHandler returns a pointer to a new [Handler] laid out according to the
// given [Layout]: the kernel region at address 0, the VM region directly
// after it and the remainder as a single free block.
func NewHandler(layout Layout) (*Handler, error) {
	if layout.TotalSize == 0 || layout.KernelSize+layout.VMSize > layout.TotalSize {
		return nil, fmt.Errorf("(alloc) %w", ErrBadLayout)
	}

	a := &Handler{
		total: layout.TotalSize,
	}

	var addr uint

	if layout.KernelSize > 0 {
		a.blocks = append(a.blocks, Block{
			ID:      a.newID("mem_kernel_"),
			Address: addr,
			Size:    layout.KernelSize,
			Status:  Status{Kind: StatusKernel},
			Label:   LabelKernel,
		})
		addr += layout.KernelSize
	}

	if layout.VMSize > 0 {
		a.blocks = append(a.blocks, Block{
			ID:      a.newID("mem_vm_"),
			Address: addr,
			Size:    layout.VMSize,
			Status:  Status{Kind: StatusVirtualMachine},
			Label:   LabelVirtualMachine,
		})
		addr += layout.VMSize
	}

	if addr < layout.TotalSize {
		a.blocks = append(a.blocks, Block{
			ID:      a.newID("mem_free_"),
			Address: addr,
			Size:    layout.TotalSize - addr,
			Status:  Free(),
		})
	}

	return a, nil
}

// Allocate reserves size units at the lowest-addressed free block that is
// large enough (first-fit). The block becomes owned by pid, or a user
// allocation if pid is [schema.NoPid]. Any remainder of the matched block is
// split off into a new free block directly after the allocation. No
// coalescing happens on allocation.
func (a *Handler) Allocate(size uint, label string, pid schema.Pid) (BlockID, error) {
	if size == 0 {
		return "", fmt.Errorf("(alloc) %w", ErrZeroSize)
	}

	a.Lock()
	defer a.Unlock()

	idx := a.firstFit(size)
	if idx < 0 {
		slog.Debug("Allocation failed: no fitting block",
			"size", size,
			"label", label,
			"pid", pid,
		)

		return "", fmt.Errorf("(alloc) %d units: %w", size, ErrNoFit)
	}

	match := a.blocks[idx]

	status := Status{Kind: StatusUserAllocated}
	prefix := "mem_user_"
	if pid != schema.NoPid {
		status = Process(pid)
		prefix = fmt.Sprintf("mem_proc_%d_", pid)
	}

	allocated := Block{
		ID:      a.newID(prefix),
		Address: match.Address,
		Size:    size,
		Status:  status,
		Label:   label,
	}

	a.blocks[idx] = allocated

	if match.Size > size {
		a.blocks = slices.Insert(a.blocks, idx+1, Block{
			ID:      a.newID("mem_free_"),
			Address: match.Address + size,
			Size:    match.Size - size,
			Status:  Free(),
		})
	}

	slog.Debug("Allocated block",
		"id", allocated.ID,
		"addr", allocated.Address,
		"size", allocated.Size,
		"status", allocated.Status,
	)

	return allocated.ID, nil
}

// Snapshot returns a copy of the memory map in address order.
func (a *Handler) Snapshot() []Block {
	a.RLock()
	defer a.RUnlock()

	out := make([]Block, len(a.blocks))
	copy(out, a.blocks)

	return out
}

// Get returns a copy of the block with the given identifier.
func (a *Handler) Get(id BlockID) (Block, bool) {
	a.RLock()
	defer a.RUnlock()

	for _, b := range a.blocks {
		if b.ID == id {
			return b, true
		}
	}

	return Block{}, false
}

// TotalSize returns the size of the whole address space.
func (a *Handler) TotalSize() uint {
	return a.total
}
