package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type advancer interface {
	Advance(d time.Duration) int
}

// Runner drives the simulated clock of a kernel from a wall-clock ticker.
type Runner struct {
	kernel advancer
	tick   time.Duration
}

// NewRunner returns a pointer to a new [Runner] advancing kernel by tick on
// every tick.
func NewRunner(kernel advancer, tick time.Duration) *Runner {
	return &Runner{
		kernel: kernel,
		tick:   tick,
	}
}

// Run advances the kernel until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.tick <= 0 {
		return fmt.Errorf("(kernel) non-positive tick %s", r.tick)
	}

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	slog.Debug("Runner started", "tick", r.tick)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Runner stopped", "reason", ctx.Err())

			return nil
		case <-ticker.C:
			r.kernel.Advance(r.tick)
		}
	}
}
