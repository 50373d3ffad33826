package scheduler

import (
	"slices"
	"sync"
)

// ResourceLocks is a keyed mutex: each named resource gets its own lock, so
// tasks on different resources run in parallel while tasks sharing one are
// serialized.
type ResourceLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewResourceLocks creates an empty lock set.
func NewResourceLocks() *ResourceLocks {
	return &ResourceLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the lock for resource, creating it on first use.
func (r *ResourceLocks) Lock(resource string) {
	r.mu.Lock()
	l, ok := r.locks[resource]
	if !ok {
		l = &sync.Mutex{}
		r.locks[resource] = l
	}
	r.mu.Unlock()

	// Block outside the map lock
	l.Lock()
}

// Unlock releases the lock for resource.
func (r *ResourceLocks) Unlock(resource string) {
	r.mu.Lock()
	l, ok := r.locks[resource]
	r.mu.Unlock()

	if ok {
		l.Unlock()
	}
}

// LockAll acquires every named lock in sorted order. Duplicate names are
// acquired once. Sorted acquisition keeps two overlapping sets from
// deadlocking each other.
func (r *ResourceLocks) LockAll(resources []string) {
	for _, res := range sortedUnique(resources) {
		r.Lock(res)
	}
}

// UnlockAll releases the locks taken by LockAll, in reverse order.
func (r *ResourceLocks) UnlockAll(resources []string) {
	sorted := sortedUnique(resources)
	for i := len(sorted) - 1; i >= 0; i-- {
		r.Unlock(sorted[i])
	}
}

func sortedUnique(resources []string) []string {
	if len(resources) == 0 {
		return nil
	}
	sorted := slices.Clone(resources)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
