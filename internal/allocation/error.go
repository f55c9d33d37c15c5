package allocation

import (
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

var (
	// ErrZeroSize is returned when an allocation of zero units is requested.
	ErrZeroSize = fmt.Errorf("allocation size must be positive: %w", schema.ErrInvalidArgument)

	// ErrNoFit is returned when no single free block is large enough for an
	// allocation, regardless of the total amount of free memory.
	ErrNoFit = fmt.Errorf("no contiguous free block large enough: %w", schema.ErrOutOfMemory)

	// ErrNoSuchBlock is returned when a block identifier or pid matches no
	// freeable block.
	ErrNoSuchBlock = fmt.Errorf("no freeable block: %w", schema.ErrNotFound)

	// ErrBadLayout is returned when the boot layout does not fit the address
	// space.
	ErrBadLayout = fmt.Errorf("reserved regions exceed address space: %w", schema.ErrInvalidArgument)

	// ErrBrokenInvariant is returned by [Handler.Verify] for an inconsistent
	// memory map. It is never expected outside of a defect.
	ErrBrokenInvariant = fmt.Errorf("memory map invariant broken: %w", schema.ErrInvalidArgument)
)
