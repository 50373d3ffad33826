package scheduler

import "sync"

// Tracker is the set of identities of tasks that have run, successfully or
// not. It only grows.
type Tracker struct {
	mu        sync.RWMutex
	completed map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		completed: make(map[string]struct{}),
	}
}

// AllSatisfied reports whether every id has been marked completed.
// An empty list is always satisfied.
func (t *Tracker) AllSatisfied(ids []string) bool {
	if len(ids) == 0 {
		return true
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, id := range ids {
		if _, ok := t.completed[id]; !ok {
			return false
		}
	}
	return true
}

// MarkCompleted records id as completed. Marking twice is a no-op.
func (t *Tracker) MarkCompleted(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed[id] = struct{}{}
}

// Len returns the number of distinct completed identities.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.completed)
}
