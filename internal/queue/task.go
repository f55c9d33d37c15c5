package queue

import (
	"fmt"
	"time"

	"github.com/desertwitch/forthos/internal/schema"
)

// Kind is the shape of a [Task].
type Kind int

const (
	// KindOneShot is a single delayed completion.
	KindOneShot Kind = iota

	// KindBoundedPeriodic is a fixed number of paired on/off ticks followed
	// by a completion.
	KindBoundedPeriodic

	// KindMultiStage is a fixed ordered sequence of delayed steps.
	KindMultiStage
)

// String returns the display name of a [Kind].
func (k Kind) String() string {
	switch k {
	case KindOneShot:
		return "one-shot"
	case KindBoundedPeriodic:
		return "bounded-periodic"
	case KindMultiStage:
		return "multi-stage"
	default:
		return "unknown"
	}
}

// Step is a single unit of work of a [Task]. Delay is relative to the firing
// of the previous step, or to the scheduling of the task for the first step.
type Step struct {
	Delay time.Duration
	Run   func()
}

// Task is a sequence of steps owned by a process. Tasks owned by
// [schema.NoPid] cannot be cancelled.
type Task struct {
	Owner schema.Pid
	Kind  Kind
	Name  string
	Steps []Step
}

// ScheduledTask is a snapshot of a live [Task].
type ScheduledTask struct {
	ID             uint64
	Owner          schema.Pid
	Kind           Kind
	Name           string
	RemainingSteps int
	Cancelled      bool
	NextFire       time.Duration
}

// OneShot returns a [Task] that runs done once after delay.
func OneShot(owner schema.Pid, name string, delay time.Duration, done func()) Task {
	return Task{
		Owner: owner,
		Kind:  KindOneShot,
		Name:  name,
		Steps: []Step{{Delay: delay, Run: done}},
	}
}

// BoundedPeriodic returns a [Task] that fires ticks times every interval. Each
// tick runs on(i), followed by off(i) after subDelay. One interval after the
// last tick, done runs.
func BoundedPeriodic(owner schema.Pid, name string, ticks int, interval time.Duration, subDelay time.Duration,
	on func(tick int), off func(tick int), done func(),
) (Task, error) {
	if ticks <= 0 || subDelay <= 0 || subDelay >= interval {
		return Task{}, fmt.Errorf("(queue) %s: %w", name, ErrBadPeriod)
	}

	steps := make([]Step, 0, 2*ticks+1) //nolint:mnd
	delay := interval

	for i := range ticks {
		steps = append(steps,
			Step{Delay: delay, Run: func() { on(i) }},
			Step{Delay: subDelay, Run: func() { off(i) }},
		)
		delay = interval - subDelay
	}

	steps = append(steps, Step{Delay: delay, Run: done})

	return Task{
		Owner: owner,
		Kind:  KindBoundedPeriodic,
		Name:  name,
		Steps: steps,
	}, nil
}

// MultiStage returns a [Task] running the given steps in order.
func MultiStage(owner schema.Pid, name string, steps ...Step) Task {
	return Task{
		Owner: owner,
		Kind:  KindMultiStage,
		Name:  name,
		Steps: steps,
	}
}

// liveTask is the scheduler's mutable state of a [Task].
type liveTask struct {
	id        uint64
	task      Task
	next      int
	cancelled bool
	nextFire  time.Duration
}

func (t *liveTask) snapshot() ScheduledTask {
	return ScheduledTask{
		ID:             t.id,
		Owner:          t.task.Owner,
		Kind:           t.task.Kind,
		Name:           t.task.Name,
		RemainingSteps: len(t.task.Steps) - t.next,
		Cancelled:      t.cancelled,
		NextFire:       t.nextFire,
	}
}
