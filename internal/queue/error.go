package queue

import (
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

var (
	// ErrNoSteps is returned when a task without any steps is scheduled.
	ErrNoSteps = fmt.Errorf("task has no steps: %w", schema.ErrInvalidArgument)

	// ErrNegativeDelay is returned for a step with a negative delay.
	ErrNegativeDelay = fmt.Errorf("step delay is negative: %w", schema.ErrInvalidArgument)

	// ErrBadPeriod is returned when a periodic task's sub-delay does not fit
	// into its interval or it has no ticks.
	ErrBadPeriod = fmt.Errorf("sub-delay must be shorter than the interval: %w", schema.ErrInvalidArgument)

	// ErrOwnerBusy is returned when the owner already has a live task.
	ErrOwnerBusy = fmt.Errorf("owner already has a scheduled task: %w", schema.ErrAlreadyExists)
)
