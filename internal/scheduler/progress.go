package scheduler

import "sync/atomic"

// Progress tracks completed versus total task counts.
//
// Completion is always decided by comparing the integer counts. The fraction
// is derived from them on demand and is never accumulated, so repeated
// floating-point additions cannot drift it away from exactly 1.0.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
}

// Initialize sets the total and resets the completed count.
func (p *Progress) Initialize(total int) {
	p.completed.Store(0)
	p.total.Store(int64(total))
}

// RecordCompletion counts one more completed task and returns the resulting
// fraction and whether the count has reached the total.
func (p *Progress) RecordCompletion() (fraction float64, complete bool) {
	completed := p.completed.Add(1)
	total := p.total.Load()
	return ratio(completed, total), completed == total
}

// Fraction returns completed/total in [0, 1].
func (p *Progress) Fraction() float64 {
	return ratio(p.completed.Load(), p.total.Load())
}

// Completed returns the number of completions recorded.
func (p *Progress) Completed() int {
	return int(p.completed.Load())
}

// Total returns the total set by Initialize.
func (p *Progress) Total() int {
	return int(p.total.Load())
}

func ratio(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	if completed >= total {
		return 1
	}
	return float64(completed) / float64(total)
}
