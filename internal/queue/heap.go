package queue

import "time"

// firing is a pending step of a task, ordered by fire time and then by the
// order in which it was queued.
type firing struct {
	at   time.Duration
	seq  uint64
	task *liveTask
}

// firingHeap implements [container/heap.Interface].
type firingHeap []firing

func (h firingHeap) Len() int { return len(h) }

func (h firingHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}

	return h[i].seq < h[j].seq
}

func (h firingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *firingHeap) Push(x any) {
	*h = append(*h, x.(firing)) //nolint:forcetypeassert
}

func (h *firingHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
