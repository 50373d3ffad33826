package scheduler

import "sync"

// TaskQueue is an unbounded FIFO of pending tasks, safe for concurrent use.
// A task in the queue has not yet executed.
type TaskQueue[C any] struct {
	mu    sync.Mutex
	items []*Task[C]
	head  int
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue[C any]() *TaskQueue[C] {
	return &TaskQueue[C]{}
}

// Enqueue appends a task at the tail.
func (q *TaskQueue[C]) Enqueue(task *Task[C]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, task)
}

// TryDequeue removes and returns the head task. It never blocks; ok is false
// when the queue is empty.
func (q *TaskQueue[C]) TryDequeue() (task *Task[C], ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.items) {
		return nil, false
	}

	task = q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return task, true
}

// Len returns the number of pending tasks.
func (q *TaskQueue[C]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items) - q.head
}

// snapshot returns the pending tasks in queue order.
func (q *TaskQueue[C]) snapshot() []*Task[C] {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]*Task[C](nil), q.items[q.head:]...)
}
