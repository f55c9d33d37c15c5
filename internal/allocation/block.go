package allocation

import (
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

// BlockID identifies a [Block]. Identifiers are never reused; a block that is
// produced by coalescing receives a new identifier.
type BlockID string

// StatusKind is the closed set of states a [Block] can be in.
type StatusKind int

const (
	// StatusFree marks an unallocated block.
	StatusFree StatusKind = iota

	// StatusKernel marks the region reserved for the kernel at boot.
	StatusKernel

	// StatusVirtualMachine marks the region reserved for the VM at boot.
	StatusVirtualMachine

	// StatusProcess marks a block owned by a process.
	StatusProcess

	// StatusUserAllocated marks an anonymous allocation made by a user.
	StatusUserAllocated
)

// String returns the display name of a [StatusKind].
func (k StatusKind) String() string {
	switch k {
	case StatusFree:
		return "free"
	case StatusKernel:
		return "kernel"
	case StatusVirtualMachine:
		return "micropython_vm"
	case StatusProcess:
		return "process"
	case StatusUserAllocated:
		return "user_allocated"
	default:
		return "unknown"
	}
}

// Status is the state of a [Block]. Owner is the payload of the Process
// variant; it may optionally also tag a user allocation.
type Status struct {
	Kind  StatusKind
	Owner schema.Pid
}

// Free returns the [Status] of an unallocated block.
func Free() Status { return Status{Kind: StatusFree} }

// Process returns the [Status] of a block owned by pid.
func Process(pid schema.Pid) Status { return Status{Kind: StatusProcess, Owner: pid} }

// String returns e.g. "process(5)" or "free".
func (s Status) String() string {
	if s.Kind == StatusProcess {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Owner)
	}

	return s.Kind.String()
}

// Freeable returns whether a block in this [Status] may be freed.
func (s Status) Freeable() bool {
	return s.Kind == StatusProcess || s.Kind == StatusUserAllocated
}

// Block is a contiguous labeled range [Address, Address+Size) of the
// simulated address space.
type Block struct {
	ID      BlockID
	Address uint
	Size    uint
	Status  Status
	Label   string
}

// End returns the first address after the [Block].
func (b Block) End() uint {
	return b.Address + b.Size
}

// Pid returns the owning process, if any.
func (b Block) Pid() schema.Pid {
	return b.Status.Owner
}

// IsFree returns whether the [Block] is unallocated.
func (b Block) IsFree() bool {
	return b.Status.Kind == StatusFree
}
