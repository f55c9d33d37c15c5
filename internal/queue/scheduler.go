// Package queue implements the script scheduler of the simulated kernel. It
// runs tasks made of delayed steps against a simulated clock. Steps fire one
// at a time in order of their fire time, each running to completion before
// the next one fires, and tasks can be cancelled through their owning pid.
package queue

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/desertwitch/forthos/internal/schema"
)

// Scheduler is the principal implementation of the script scheduler.
//
// The scheduler's own lock is never held while a step runs, so a step may
// schedule or cancel tasks. It is the responsibility of the caller of
// [Scheduler.Advance] to serialize it with any other mutation of the state
// that the steps touch.
type Scheduler struct {
	sync.Mutex
	now     time.Duration
	seq     uint64
	nextID  uint64
	pending firingHeap
	tasks   map[uint64]*liveTask
	owners  map[schema.Pid]*liveTask
}

// NewScheduler returns a pointer to a new [Scheduler] at simulated time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks:  make(map[uint64]*liveTask),
		owners: make(map[schema.Pid]*liveTask),
	}
}

// Schedule registers a task; its first step fires after the first step's
// delay. An owner can have only one live task at a time.
func (s *Scheduler) Schedule(task Task) (uint64, error) {
	if len(task.Steps) == 0 {
		return 0, fmt.Errorf("(queue) %s: %w", task.Name, ErrNoSteps)
	}

	for _, step := range task.Steps {
		if step.Delay < 0 {
			return 0, fmt.Errorf("(queue) %s: %w", task.Name, ErrNegativeDelay)
		}
	}

	s.Lock()
	defer s.Unlock()

	if task.Owner != schema.NoPid {
		if _, busy := s.owners[task.Owner]; busy {
			return 0, fmt.Errorf("(queue) pid %d: %w", task.Owner, ErrOwnerBusy)
		}
	}

	s.nextID++
	t := &liveTask{id: s.nextID, task: task}

	s.tasks[t.id] = t
	if task.Owner != schema.NoPid {
		s.owners[task.Owner] = t
	}

	s.push(t, s.now+task.Steps[0].Delay)

	slog.Debug("Scheduled task",
		"id", t.id,
		"name", task.Name,
		"kind", task.Kind,
		"owner", task.Owner,
		"steps", len(task.Steps),
	)

	return t.id, nil
}

// Cancel flips the cancellation token of the task owned by pid, so that none
// of its remaining steps fire. A step that is already running is not affected.
// It returns whether a live task was cancelled.
func (s *Scheduler) Cancel(pid schema.Pid) bool {
	s.Lock()
	defer s.Unlock()

	if pid == schema.NoPid {
		return false
	}

	t, exists := s.owners[pid]
	if !exists {
		return false
	}

	t.cancelled = true
	s.forget(t)

	slog.Debug("Cancelled task",
		"id", t.id,
		"name", t.task.Name,
		"owner", pid,
		"remaining", len(t.task.Steps)-t.next,
	)

	return true
}

// Advance moves the simulated clock forward by d and fires every step that
// becomes due, in order of fire time. Steps scheduled by a firing step are
// fired within the same call if they become due in time. It returns the
// number of fired steps.
func (s *Scheduler) Advance(d time.Duration) int {
	s.Lock()
	target := s.now + max(d, 0)
	s.Unlock()

	fired := 0

	for {
		step, ok := s.nextDue(target)
		if !ok {
			break
		}

		step()
		fired++
	}

	return fired
}

// Now returns the elapsed simulated time.
func (s *Scheduler) Now() time.Duration {
	s.Lock()
	defer s.Unlock()

	return s.now
}

// Pending returns snapshots of all live tasks in scheduling order.
func (s *Scheduler) Pending() []ScheduledTask {
	s.Lock()
	defer s.Unlock()

	out := make([]ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.snapshot())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}

// Owned returns a snapshot of the live task owned by pid.
func (s *Scheduler) Owned(pid schema.Pid) (ScheduledTask, bool) {
	s.Lock()
	defer s.Unlock()

	t, exists := s.owners[pid]
	if !exists {
		return ScheduledTask{}, false
	}

	return t.snapshot(), true
}

// nextDue pops the next non-cancelled step due at or before target and
// advances the clock to its fire time. The step's successor is queued before
// the step is returned, so its delay counts from this firing. If nothing is
// due, the clock is moved to target.
func (s *Scheduler) nextDue(target time.Duration) (func(), bool) {
	s.Lock()
	defer s.Unlock()

	for s.pending.Len() > 0 {
		if s.pending[0].at > target {
			break
		}

		f, _ := heap.Pop(&s.pending).(firing)
		if f.task.cancelled {
			continue
		}

		s.now = f.at

		t := f.task
		step := t.task.Steps[t.next]
		t.next++

		if t.next < len(t.task.Steps) {
			s.push(t, s.now+t.task.Steps[t.next].Delay)
		} else {
			s.forget(t)
		}

		return step.Run, true
	}

	s.now = max(s.now, target)

	return nil, false
}

// push queues the next step of t. Must be called with the lock held.
func (s *Scheduler) push(t *liveTask, at time.Duration) {
	s.seq++
	t.nextFire = at
	heap.Push(&s.pending, firing{at: at, seq: s.seq, task: t})
}

// forget removes t from the live indexes. Queued firings of t are discarded
// lazily. Must be called with the lock held.
func (s *Scheduler) forget(t *liveTask) {
	delete(s.tasks, t.id)

	if owner := t.task.Owner; owner != schema.NoPid && s.owners[owner] == t {
		delete(s.owners, owner)
	}
}
