package process

import (
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

var (
	// ErrNoSuchProcess is returned for a pid that is not in the table.
	ErrNoSuchProcess = fmt.Errorf("no such process: %w", schema.ErrNotFound)

	// ErrProtected is returned when terminating a boot-protected process.
	ErrProtected = fmt.Errorf("essential system process: %w", schema.ErrPermissionDenied)

	// ErrPriorityRange is returned for a priority outside of
	// [MinPriority, MaxPriority].
	ErrPriorityRange = fmt.Errorf("priority must be between %d and %d: %w", MinPriority, MaxPriority, schema.ErrInvalidArgument)

	// ErrNoMemory is returned when the memory for a new process could not be
	// allocated.
	ErrNoMemory = fmt.Errorf("not enough memory to start process: %w", schema.ErrOutOfMemory)
)
